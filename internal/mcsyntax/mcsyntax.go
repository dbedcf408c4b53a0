// Package mcsyntax repairs the recurring syntax mistakes language models
// make when emitting Minecraft 1.21.5+ give/summon/effect commands:
// identifiers with missing underscores, pre-1.21.5 enchantment component
// shapes, and JSON text components where SNBT is required.
package mcsyntax

import (
	"regexp"
	"strings"
)

// Identifier fixups applied as plain substring replacement, in order.
// Items first, then component names, enchantment IDs and effect IDs.
var identifierFixer = strings.NewReplacer(
	"diamondsword", "diamond_sword",
	"netheritesword", "netherite_sword",
	"ironsword", "iron_sword",
	"stonesword", "stone_sword",
	"goldensword", "golden_sword",
	"woodensword", "wooden_sword",
	"diamondpickaxe", "diamond_pickaxe",
	"netheritepickaxe", "netherite_pickaxe",
	"ironpickaxe", "iron_pickaxe",
	"diamondaxe", "diamond_axe",
	"netheriteaxe", "netherite_axe",
	"diamondshovel", "diamond_shovel",
	"netheriteshovel", "netherite_shovel",
	"diamondhoe", "diamond_hoe",
	"netheritehoe", "netherite_hoe",
	"diamondhelmet", "diamond_helmet",
	"netheritehelmet", "netherite_helmet",
	"ironhelmet", "iron_helmet",
	"diamondchestplate", "diamond_chestplate",
	"netheritechestplate", "netherite_chestplate",
	"ironchestplate", "iron_chestplate",
	"diamondleggings", "diamond_leggings",
	"netheriteleggings", "netherite_leggings",
	"ironleggings", "iron_leggings",
	"diamondboots", "diamond_boots",
	"netheriteboots", "netherite_boots",
	"ironboots", "iron_boots",
	"goldenapple", "golden_apple",
	"enchantedgoldenapple", "enchanted_golden_apple",
	"enderpearl", "ender_pearl",
	"splashpotion", "splash_potion",
	"lingeringpotion", "lingering_potion",
	"totemofundying", "totem_of_undying",
	"nametag", "name_tag",
	"lightningbolt", "lightning_bolt",
	"irongolem", "iron_golem",
	"woodenspear", "wooden_spear",
	"stonespear", "stone_spear",
	"copperspear", "copper_spear",
	"ironspear", "iron_spear",
	"goldenspear", "golden_spear",
	"diamondspear", "diamond_spear",
	"netheritespear", "netherite_spear",

	"customname=", "custom_name=",
	"customname =", "custom_name =",
	"dyedcolor=", "dyed_color=",
	"potioncontents=", "potion_contents=",
	"customeffects", "custom_effects",

	"fireaspect", "fire_aspect",
	"baneofarthropods", "bane_of_arthropods",
	"sweepingedge", "sweeping_edge",
	"silktouch", "silk_touch",
	"fireprotection", "fire_protection",
	"blastprotection", "blast_protection",
	"projectileprotection", "projectile_protection",
	"featherfalling", "feather_falling",
	"depthstrider", "depth_strider",
	"frostwalker", "frost_walker",
	"soulspeed", "soul_speed",
	"swiftsneak", "swift_sneak",
	"quickcharge", "quick_charge",
	"aquaaffinity", "aqua_affinity",
	"windcharge", "wind_charge",
	"windburst", "wind_burst",
	"miningfatigue", "mining_fatigue",

	"jumpboost", "jump_boost",
	"instanthealth", "instant_health",
	"instantdamage", "instant_damage",
	"fireresistance", "fire_resistance",
	"waterbreathing", "water_breathing",
	"nightvision", "night_vision",
	"slowfalling", "slow_falling",
	"conduitpower", "conduit_power",
	"dolphinsgrace", "dolphins_grace",
	"windcharged", "wind_charged",
	"trialomen", "trial_omen",
	"raidomen", "raid_omen",
	"badomen", "bad_omen",
)

var (
	// enchantments={levels:{sharpness:5}} is the pre-1.21.5 shape; 1.21.5+
	// wants the map flat.
	levelsWrapRe = regexp.MustCompile(`enchantments=\{levels:\{([^}]+)\}\}`)
	enchBodyRe   = regexp.MustCompile(`(enchantments=\{)([^}]+)(\})`)
	quotedKeyRe  = regexp.MustCompile(`"([a-z_]+)":`)

	// custom_name='{"text":"NAME","color":"red","bold":true,"italic":false}'
	// with color/bold/italic each optional.
	customNameJSONRe = regexp.MustCompile(`custom_name='\{"text":"([^"]*?)"(?:,"color":"([^"]*?)")?(?:,"bold":(true|false))?(?:,"italic":(true|false))?\}'`)

	loreJSONRe = regexp.MustCompile(`'\{"text":"([^"]*?)"\}'`)
)

// Normalize rewrites a model-produced command into valid 1.21.5+ syntax.
// It is a pure function and idempotent: normalizing already-valid input
// returns it unchanged.
func Normalize(command string) string {
	if command == "" {
		return command
	}

	command = identifierFixer.Replace(command)
	command = unwrapEnchantmentLevels(command)
	command = stripEnchantmentKeyQuotes(command)
	command = rewriteCustomName(command)
	command = loreJSONRe.ReplaceAllString(command, "{text:'$1'}")
	return command
}

func unwrapEnchantmentLevels(command string) string {
	return levelsWrapRe.ReplaceAllStringFunc(command, func(match string) string {
		inner := levelsWrapRe.FindStringSubmatch(match)[1]
		inner = quotedKeyRe.ReplaceAllString(inner, "$1:")
		return "enchantments={" + inner + "}"
	})
}

func stripEnchantmentKeyQuotes(command string) string {
	return enchBodyRe.ReplaceAllStringFunc(command, func(match string) string {
		parts := enchBodyRe.FindStringSubmatch(match)
		return parts[1] + quotedKeyRe.ReplaceAllString(parts[2], "$1:") + parts[3]
	})
}

func rewriteCustomName(command string) string {
	return customNameJSONRe.ReplaceAllStringFunc(command, func(match string) string {
		parts := customNameJSONRe.FindStringSubmatch(match)
		var b strings.Builder
		b.WriteString("custom_name={text:'")
		b.WriteString(parts[1])
		b.WriteString("'")
		if parts[2] != "" {
			b.WriteString(",color:'")
			b.WriteString(parts[2])
			b.WriteString("'")
		}
		if parts[3] != "" {
			b.WriteString(",bold:")
			b.WriteString(parts[3])
		}
		if parts[4] != "" {
			b.WriteString(",italic:")
			b.WriteString(parts[4])
		}
		b.WriteString("}")
		return b.String()
	})
}
