package config

import "time"

// Text model identifiers. FlashThinking is a virtual model: it calls the
// Flash endpoint with a deeper thinking level.
const (
	ModelFlash         = "gemini-3-flash-preview"
	ModelFlashThinking = "gemini-3-flash-thinking"
	ModelPro           = "gemini-3-pro-preview"
)

// Image model identifiers.
const (
	ModelImage    = "gemini-2.5-flash-image"
	ModelImagePro = "gemini-3-pro-image-preview"
)

// Thinking levels accepted by generationConfig.thinkingConfig.
const (
	ThinkingMinimal = "minimal"
	ThinkingLow     = "low"
	ThinkingHigh    = "high"
)

// Image resolutions. The base image model only supports 1K.
const (
	Resolution1K = "1K"
	Resolution2K = "2K"
	Resolution4K = "4K"
)

// ValidAspectRatios lists every aspect ratio the image endpoint accepts.
var ValidAspectRatios = []string{
	"1:1", "2:3", "3:2", "3:4", "4:3", "4:5", "5:4", "9:16", "16:9", "21:9",
}

const (
	// Cooldown between image generations per user
	ImageCooldown = 10 * time.Second

	// Network timeouts, tuned per call weight
	TextRequestTimeout   = 120 * time.Second
	SearchRequestTimeout = 90 * time.Second
	ImageRequestTimeout  = 180 * time.Second
	UploadTimeout        = 60 * time.Second
	DownloadTimeout      = 30 * time.Second
	WebhookTimeout       = 10 * time.Second

	// Source image download cap for image-to-image
	MaxImageDownloadSize = 10 * 1024 * 1024

	// Redirect hop limit for manual redirect handling
	MaxRedirects = 5

	// Audit webhook response truncation
	MaxAuditResponseLen = 5000

	// Generation parameters shared by every text call
	GenTemperature     = 0.7
	GenTopK            = 40
	GenTopP            = 0.95
	GenMaxOutputTokens = 65536

	// Library entries per page
	LibraryPageSize = 5

	// Telegram message length limit
	MaxMessageLen = 4096
)

// Default system instructions. The exact wording is operator-facing
// configuration, not logic; see Config.
const (
	DefaultChatSystemPrompt = "You are a friendly counselor talking to players inside a Minecraft server. " +
		"Keep answers under 400 characters, acknowledge what the player said, restate it simply, " +
		"suggest one concrete next step, and end with a question that invites them to continue."

	DefaultSearchSystemPrompt = "You are a web search assistant for players chatting inside Minecraft. " +
		"Summarize search results in under 400 characters as short bullet points. " +
		"Output only the final answer, never your reasoning or progress."

	DefaultImageSystemPrompt = "You are an image generation assistant. Follow the user's prompt faithfully " +
		"and produce a high quality image. When a source image is provided, keep its composition " +
		"and apply the requested transformation."

	DefaultCommandSystemPrompt = "You are an expert in Minecraft Java Edition 1.21.5+ commands. " +
		"Generate commands from the user's natural language request. Always answer in the format:\n" +
		"COMMAND: /the command\nEXPLAIN: one or two sentences describing it.\n" +
		"Repeat the COMMAND line when several commands are needed."
)

// SupportsThinking reports whether a model accepts thinkingConfig. The list
// is a strict allow-list: unknown models never receive the parameter.
func SupportsThinking(model string) bool {
	switch model {
	case ModelFlash, ModelFlashThinking, ModelPro:
		return true
	}
	return false
}

// ThinkingLevel returns the thinking depth used for a model.
func ThinkingLevel(model string) string {
	switch model {
	case ModelFlashThinking, ModelPro:
		return ThinkingHigh
	case ModelFlash:
		return ThinkingMinimal
	}
	return ThinkingLow
}

// APIModel maps a session model to the model name sent to the API.
// FlashThinking shares the Flash endpoint.
func APIModel(model string) string {
	if model == ModelFlashThinking {
		return ModelFlash
	}
	return model
}

// ValidResolutions returns the resolutions an image model accepts.
func ValidResolutions(imageModel string) []string {
	if imageModel == ModelImagePro {
		return []string{Resolution1K, Resolution2K, Resolution4K}
	}
	return []string{Resolution1K}
}

// IsValidAspectRatio reports whether the ratio is one the API accepts.
func IsValidAspectRatio(ratio string) bool {
	for _, r := range ValidAspectRatios {
		if r == ratio {
			return true
		}
	}
	return false
}
