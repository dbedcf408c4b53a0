package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken     string `env:"BOT_TOKEN,required"`
	DatabaseURL  string `env:"DATABASE_URL,required"`
	GeminiAPIKey string `env:"GEMINI_API_KEY,required"`

	// Session defaults
	DefaultModel       string `env:"DEFAULT_MODEL" envDefault:"gemini-3-flash-preview"`
	DefaultImageModel  string `env:"DEFAULT_IMAGE_MODEL" envDefault:"gemini-2.5-flash-image"`
	DefaultAspectRatio string `env:"DEFAULT_ASPECT_RATIO" envDefault:"1:1"`
	DefaultResolution  string `env:"DEFAULT_RESOLUTION" envDefault:"1K"`
	MaxHistory         int    `env:"MAX_HISTORY" envDefault:"20"`
	MaxLibrarySize     int    `env:"MAX_LIBRARY_SIZE" envDefault:"50"`

	// System instructions sent with each generation call. Defaults live in
	// constants.go; operators can override without rebuilding.
	ChatSystemPrompt    string `env:"CHAT_SYSTEM_PROMPT"`
	SearchSystemPrompt  string `env:"SEARCH_SYSTEM_PROMPT"`
	ImageSystemPrompt   string `env:"IMAGE_SYSTEM_PROMPT"`
	CommandSystemPrompt string `env:"COMMAND_SYSTEM_PROMPT"`

	// Image hosting: "s3", "imgbb" or "catbox". The chain downgrades on
	// failure regardless of the configured primary.
	ImageHosting string `env:"IMAGE_HOSTING" envDefault:"catbox"`
	ImgBBAPIKey  string `env:"IMGBB_API_KEY"`

	// S3-compatible hosting (used when IMAGE_HOSTING=s3)
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3UseSSL        bool   `env:"S3_USE_SSL" envDefault:"true"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`

	// Audit webhook (optional). When set, every completed interaction is
	// POSTed there and the "history" view reads back from it.
	AuditWebhookURL string `env:"AUDIT_WEBHOOK_URL"`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ChatSystemPrompt == "" {
		cfg.ChatSystemPrompt = DefaultChatSystemPrompt
	}
	if cfg.SearchSystemPrompt == "" {
		cfg.SearchSystemPrompt = DefaultSearchSystemPrompt
	}
	if cfg.ImageSystemPrompt == "" {
		cfg.ImageSystemPrompt = DefaultImageSystemPrompt
	}
	if cfg.CommandSystemPrompt == "" {
		cfg.CommandSystemPrompt = DefaultCommandSystemPrompt
	}
	return cfg, nil
}

// S3Configured reports whether every field needed for the S3 backend is set.
func (c *Config) S3Configured() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != "" &&
		c.S3Bucket != "" && c.S3PublicBaseURL != ""
}

// ImgBBConfigured reports whether the ImgBB backend can be used.
func (c *Config) ImgBBConfigured() bool {
	return c.ImgBBAPIKey != ""
}
