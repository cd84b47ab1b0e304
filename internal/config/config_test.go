package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileGeneratesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")

	_, err := Load(path)
	if !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config was not written: %v", err)
	}
}

func TestLoadWithComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	content := `{
  // Discord credentials
  "bot": {
    "token": "abc123",
    "check_interval_minutes": 10
  },
  "database": {"path": "/tmp/feedwire.db"}
}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Bot.Token != "abc123" {
		t.Errorf("token = %q", cfg.Bot.Token)
	}
	if cfg.Bot.CheckIntervalMinutes != 10 {
		t.Errorf("check interval = %d", cfg.Bot.CheckIntervalMinutes)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Bot.StatusIntervalMinutes != 60 {
		t.Errorf("status interval = %d", cfg.Bot.StatusIntervalMinutes)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing token", func(c *Config) { c.Bot.Token = "" }, true},
		{"zero check interval", func(c *Config) { c.Bot.CheckIntervalMinutes = 0 }, true},
		{"zero status interval", func(c *Config) { c.Bot.StatusIntervalMinutes = 0 }, true},
		{"missing db path", func(c *Config) { c.Database.Path = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Bot.Token = "abc123"
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.jsonc")

	cfg := DefaultConfig()
	cfg.Bot.Token = "abc123"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Bot.Token != "abc123" {
		t.Errorf("token = %q", loaded.Bot.Token)
	}
}
