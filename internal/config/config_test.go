package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "montage.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Timeline.SnapDistance != 10 || cfg.Timeline.FPS != 25 {
		t.Errorf("Unexpected defaults: %+v", cfg.Timeline)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Default file not written: %v", err)
	}
	if !strings.Contains(string(data), "snap_distance = 10") {
		t.Errorf("Default file missing timeline section:\n%s", data)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "montage.toml")
	content := `
[timeline]
fps = 30.0
snap_distance = 4
undo_limit = 10
notify_buffer = 8
default_tracks = 3

[database]
path = "edit.db"
max_connections = 2

[media]
library_path = "clips"
supported_formats = [".wav"]

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Timeline.FPS != 30 || cfg.Timeline.SnapDistance != 4 || cfg.Timeline.DefaultTracks != 3 {
		t.Errorf("Timeline section not decoded: %+v", cfg.Timeline)
	}
	if cfg.Database.Path != "edit.db" || cfg.Logging.Format != "json" {
		t.Errorf("Sections not decoded: %+v", cfg)
	}
	if !cfg.IsFormatSupported(".WAV") || cfg.IsFormatSupported(".mp3") {
		t.Error("IsFormatSupported mismatch")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "montage.toml")
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(EnvDBPath, "/tmp/override.db")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected warn, got %s", cfg.Logging.Level)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Expected db override, got %s", cfg.Database.Path)
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := ResolvePath("flag.toml"); got != "flag.toml" {
		t.Errorf("Flag should win, got %s", got)
	}
	if got := ResolvePath(""); got != DefaultPath {
		t.Errorf("Expected default path, got %s", got)
	}
	t.Setenv(EnvConfigPath, "env.toml")
	if got := ResolvePath(""); got != "env.toml" {
		t.Errorf("Expected env path, got %s", got)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("MONTAGE_TEST_VALUE=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MONTAGE_TEST_VALUE", "")
	os.Unsetenv("MONTAGE_TEST_VALUE")

	LoadEnv(path)
	if got := os.Getenv("MONTAGE_TEST_VALUE"); got != "from-dotenv" {
		t.Errorf("Expected dotenv value, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero fps", func(c *Config) { c.Timeline.FPS = 0 }},
		{"negative snap", func(c *Config) { c.Timeline.SnapDistance = -1 }},
		{"no notify buffer", func(c *Config) { c.Timeline.NotifyBuffer = 0 }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"no formats", func(c *Config) { c.Media.SupportedFormats = nil }},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Defaults should validate: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
