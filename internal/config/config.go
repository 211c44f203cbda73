// Package config loads eventdocs settings from the environment.
//
// A .env file in the working directory is read first when present.
// Variables already set in the environment win over the file, and
// command-line flags win over both.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the settings shared by all commands.
type Config struct {
	// Credentials is the path of the store credentials file.
	Credentials string `env:"EVENTDOCS_CREDENTIALS" envDefault:"credentials.yaml"`

	// Collection sources for upload and validate.
	TerritoryFile string `env:"EVENTDOCS_TERRITORY_FILE" envDefault:"assets/events/territory_events.json"`
	MilestoneFile string `env:"EVENTDOCS_MILESTONE_FILE" envDefault:"assets/events/milestone_events.json"`

	LogLevel string `env:"EVENTDOCS_LOG_LEVEL" envDefault:"info"`
	Format   string `env:"EVENTDOCS_FORMAT" envDefault:"text"`

	// StampMetadata enables createdAt/updatedAt/createdBy on add and update.
	StampMetadata bool   `env:"EVENTDOCS_STAMP_METADATA" envDefault:"false"`
	Author        string `env:"EVENTDOCS_AUTHOR"`
}

// Load reads the given dotenv files (".env" when none are given) and
// parses the environment. Missing dotenv files are ignored.
func Load(dotenv ...string) (Config, error) {
	_ = godotenv.Load(dotenv...)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("EVENTDOCS_FORMAT: invalid format %q (want text or json)", c.Format)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("EVENTDOCS_LOG_LEVEL: %w", err)
	}
	return nil
}

// Level returns LogLevel as a slog level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
