package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"muzzammil.xyz/jsonc"
)

// Config is the persistent application configuration
type Config struct {
	Bot      BotConfig      `json:"bot"`
	Database DatabaseConfig `json:"database"`
	Log      LogConfig      `json:"log"`
}

// BotConfig holds Discord bot settings
type BotConfig struct {
	Token                 string `json:"token"`
	CheckIntervalMinutes  int    `json:"check_interval_minutes"`
	StatusIntervalMinutes int    `json:"status_interval_minutes"`
}

// DatabaseConfig holds feed registry settings
type DatabaseConfig struct {
	Path string `json:"path"`
}

// LogConfig holds logging preferences
type LogConfig struct {
	Level string `json:"level"` // "debug", "info", "warn", "error"
	Dir   string `json:"dir"`   // empty means stderr only
}

// ErrTokenMissing is returned when the config has no bot token yet,
// typically right after a default config was generated.
var ErrTokenMissing = errors.New("bot token is not configured")

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".feedwire")

	return &Config{
		Bot: BotConfig{
			CheckIntervalMinutes:  5,
			StatusIntervalMinutes: 60,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir, "feedwire.db"),
		},
		Log: LogConfig{
			Level: "info",
			Dir:   filepath.Join(dataDir, "logs"),
		},
	}
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".feedwire", "config.jsonc")
}

// Load reads the config from path. The file may contain JSONC comments.
// A missing file is generated with defaults and reported via ErrTokenMissing
// so the operator knows to fill in the token.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			if werr := cfg.Save(path); werr != nil {
				return nil, fmt.Errorf("failed to write default config to %s: %w", path, werr)
			}
			return nil, fmt.Errorf("generated default config at %s: %w", path, ErrTokenMissing)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := jsonc.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return ErrTokenMissing
	}
	if c.Bot.CheckIntervalMinutes < 1 {
		return fmt.Errorf("check_interval_minutes must be >= 1, got %d", c.Bot.CheckIntervalMinutes)
	}
	if c.Bot.StatusIntervalMinutes < 1 {
		return fmt.Errorf("status_interval_minutes must be >= 1, got %d", c.Bot.StatusIntervalMinutes)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	return nil
}

// Save writes config to disk
func (c *Config) Save(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // Restrictive permissions for the token
}
