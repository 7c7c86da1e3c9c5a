package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Environment variables overriding file values.
const (
	EnvConfigPath = "MONTAGE_CONFIG"
	EnvLogLevel   = "MONTAGE_LOG_LEVEL"
	EnvDBPath     = "MONTAGE_DB_PATH"
)

// DefaultPath is used when neither a flag nor MONTAGE_CONFIG names a file.
const DefaultPath = "./montage.toml"

// Config represents the application configuration
type Config struct {
	Timeline TimelineConfig `toml:"timeline"`
	Database DatabaseConfig `toml:"database"`
	Media    MediaConfig    `toml:"media"`
	Logging  LoggingConfig  `toml:"logging"`
}

// TimelineConfig contains editing model settings
type TimelineConfig struct {
	FPS           float64 `toml:"fps"`
	SnapDistance  int     `toml:"snap_distance"` // 0 selects the model default
	UndoLimit     int     `toml:"undo_limit"`
	NotifyBuffer  int     `toml:"notify_buffer"`
	DefaultTracks int     `toml:"default_tracks"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
}

// MediaConfig contains media library configuration
type MediaConfig struct {
	LibraryPath      string   `toml:"library_path"`
	SupportedFormats []string `toml:"supported_formats"`
	WatchForChanges  bool     `toml:"watch_for_changes"`
	ScanOnStartup    bool     `toml:"scan_on_startup"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Timeline: TimelineConfig{
			FPS:           25,
			SnapDistance:  10,
			UndoLimit:     100,
			NotifyBuffer:  64,
			DefaultTracks: 2,
		},
		Database: DatabaseConfig{
			Path:           "./montage.db",
			MaxConnections: 4,
		},
		Media: MediaConfig{
			LibraryPath:      "./media",
			SupportedFormats: []string{".flac", ".mp3", ".wav", ".m4a"},
			WatchForChanges:  false,
			ScanOnStartup:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// ResolvePath returns flagPath, or MONTAGE_CONFIG, or DefaultPath. A .env
// file in the working directory is loaded first when present.
func ResolvePath(flagPath string) string {
	LoadEnv(".env")
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// LoadEnv loads a dotenv file without overriding variables already set.
func LoadEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		logrus.WithError(err).WithField("path", path).Warn("Could not load env file")
	}
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		logrus.WithField("path", configPath).Info("Created default configuration file")
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if path := os.Getenv(EnvDBPath); path != "" {
		c.Database.Path = path
	}
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Montage Timeline Editor Configuration
# Frame rate, snapping, undo history, project store and media library settings.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate timeline config
	if c.Timeline.FPS <= 0 {
		return fmt.Errorf("timeline fps must be positive")
	}
	if c.Timeline.SnapDistance < 0 {
		return fmt.Errorf("timeline snap distance cannot be negative")
	}
	if c.Timeline.UndoLimit < 0 {
		return fmt.Errorf("timeline undo limit cannot be negative")
	}
	if c.Timeline.NotifyBuffer < 1 {
		return fmt.Errorf("timeline notify buffer must be at least 1")
	}
	if c.Timeline.DefaultTracks < 0 {
		return fmt.Errorf("timeline default tracks cannot be negative")
	}

	// Validate database config
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	// Validate media config
	if c.Media.LibraryPath == "" {
		return fmt.Errorf("media library path cannot be empty")
	}
	if len(c.Media.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported media format must be specified")
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// IsFormatSupported checks if a media extension is supported
func (c *Config) IsFormatSupported(format string) bool {
	for _, supported := range c.Media.SupportedFormats {
		if strings.EqualFold(supported, format) {
			return true
		}
	}
	return false
}
