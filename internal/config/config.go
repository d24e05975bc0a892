package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable the bot reads at startup. Values come from the
// environment, optionally seeded from a .env file in the working directory.
type Config struct {
	DiscordToken string   `env:"DISCORD_TOKEN,required"`
	AdminIDs     []string `env:"ADMIN_IDS" envSeparator:","`

	StoragePath string `env:"STORAGE_PATH" envDefault:"datastore.json"`
	LogPath     string `env:"LOG_PATH" envDefault:"logs/warden.log"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	CacheImages bool `env:"CACHE_IMAGES" envDefault:"true"`

	// Channel-history scanner knobs.
	ScanMaxChannelsPerRun     int           `env:"SCAN_MAX_CHANNELS_PER_RUN" envDefault:"5"`
	ScanMaxMessagesPerChannel int           `env:"SCAN_MAX_MESSAGES_PER_CHANNEL" envDefault:"10000"`
	ScanBatchSize             int           `env:"SCAN_BATCH_SIZE" envDefault:"100"`
	ScanBatchDelay            time.Duration `env:"SCAN_BATCH_DELAY" envDefault:"1s"`

	// Recommendation scanner knobs.
	RecommendBatchSize int `env:"RECOMMEND_BATCH_SIZE" envDefault:"1000"`

	// Retention windows for the cleanup jobs.
	LogRetentionDays   int `env:"LOG_RETENTION_DAYS" envDefault:"90"`
	MediaRetentionDays int `env:"MEDIA_RETENTION_DAYS" envDefault:"180"`
}

// New loads .env if present and parses the environment into a Config.
func New() (*Config, error) {
	// A missing .env is fine, the process environment is enough.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
