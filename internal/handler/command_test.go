package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommandReply(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		commands []string
		explain  string
	}{
		{
			name:     "marked command and explanation",
			reply:    "COMMAND: /give @p diamond_sword 1\nEXPLAIN: Gives the nearest player a diamond sword.",
			commands: []string{"/give @p diamond_sword 1"},
			explain:  "Gives the nearest player a diamond sword.",
		},
		{
			name: "multiple commands",
			reply: "COMMAND: /gamemode creative @p\n" +
				"COMMAND: /time set day\n" +
				"EXPLAIN: Creative mode in daylight.",
			commands: []string{"/gamemode creative @p", "/time set day"},
			explain:  "Creative mode in daylight.",
		},
		{
			name:     "markdown wrapping is stripped",
			reply:    "**COMMAND:** `/tp @p 0 100 0`\nEXPLAIN: Teleports you up high.",
			commands: []string{"/tp @p 0 100 0"},
			explain:  "Teleports you up high.",
		},
		{
			name:     "fallback to first slash line",
			reply:    "Sure! Use this:\n/weather clear\nIt clears the rain.",
			commands: []string{"/weather clear"},
			explain:  "Sure! Use this:\n\nIt clears the rain.",
		},
		{
			name:     "identifiers are normalized",
			reply:    "COMMAND: /give @p diamondsword 1\nEXPLAIN: A sword.",
			commands: []string{"/give @p diamond_sword 1"},
			explain:  "A sword.",
		},
		{
			name:     "fallback command is normalized",
			reply:    "/give @p goldenapple 3",
			commands: []string{"/give @p golden_apple 3"},
			explain:  "",
		},
		{
			name:     "no command at all",
			reply:    "I cannot produce a command for that request.",
			commands: nil,
			explain:  "",
		},
		{
			name:     "marked explanation survives without fallback rewrite",
			reply:    "COMMAND: /say hi\nEXPLAIN: Says hi.\nExtra chatter the model added.",
			commands: []string{"/say hi"},
			explain:  "Says hi.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commands, explain := parseCommandReply(tt.reply)
			assert.Equal(t, tt.commands, commands)
			assert.Equal(t, tt.explain, explain)
		})
	}
}

func TestParseCommandReplyEnchantedItem(t *testing.T) {
	reply := `COMMAND: /give @p netheritesword[enchantments={levels:{"sharpness":5}}] 1
EXPLAIN: A maxed out sword.`

	commands, explain := parseCommandReply(reply)
	assert.Equal(t, []string{`/give @p netherite_sword[enchantments={sharpness:5}] 1`}, commands)
	assert.Equal(t, "A maxed out sword.", explain)
}
