// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultRemoteHost = "0.0.0.0"
	defaultRemotePort = 9876
)

// Settings is the persisted, user-editable part of the configuration,
// read from settings.yaml in the home directory.
type Settings struct {
	// HooksEnabled gates both ingestion sources.
	HooksEnabled  bool   `yaml:"hooks_enabled"`
	RemoteEnabled bool   `yaml:"remote_enabled"`
	RemoteHost    string `yaml:"remote_host"`
	RemotePort    int    `yaml:"remote_port"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		HooksEnabled:  true,
		RemoteEnabled: true,
		RemoteHost:    defaultRemoteHost,
		RemotePort:    defaultRemotePort,
	}
}

// Config holds all application configuration.
type Config struct {
	Home       string
	StatusFile string
	LogFile    string
	Settings   Settings

	FrameInterval  time.Duration
	SettleWindow   time.Duration
	DebounceWindow time.Duration

	History HistoryConfig
	FeedURL string

	LogLevel string
}

// HistoryConfig controls the SQLite change history.
type HistoryConfig struct {
	Enabled   bool
	DBPath    string
	Retention time.Duration
	QueueSize int
}

// Load reads settings.yaml from the home directory and applies environment
// overrides on top.
func Load() (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}

	settings, err := LoadSettings(SettingsPath(home))
	if err != nil {
		return nil, err
	}
	settings.HooksEnabled = getEnvBool("HOOKS_ENABLED", settings.HooksEnabled)
	settings.RemoteEnabled = getEnvBool("REMOTE_ENABLED", settings.RemoteEnabled)
	settings.RemoteHost = getEnv("REMOTE_HOST", settings.RemoteHost)
	settings.RemotePort = getEnvInt("REMOTE_PORT", settings.RemotePort)

	cfg := &Config{
		Home:           home,
		StatusFile:     filepath.Join(home, "sessions", "current.json"),
		LogFile:        filepath.Join(home, "clawdachi.log"),
		Settings:       settings,
		FrameInterval:  getEnvDuration("FRAME_INTERVAL", 16*time.Millisecond),
		SettleWindow:   getEnvDuration("SETTLE_WINDOW", 100*time.Millisecond),
		DebounceWindow: getEnvDuration("DEBOUNCE_WINDOW", 50*time.Millisecond),
		History: HistoryConfig{
			Enabled:   getEnvBool("HISTORY_ENABLED", true),
			DBPath:    getEnv("HISTORY_DB_PATH", filepath.Join(home, "history.db")),
			Retention: getEnvDuration("HISTORY_RETENTION", 7*24*time.Hour),
			QueueSize: getEnvInt("HISTORY_QUEUE_SIZE", 256),
		},
		FeedURL:  getEnv("FEED_URL", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Home == "" {
		return fmt.Errorf("CLAWDACHI_HOME cannot be empty")
	}
	if c.Settings.RemotePort < 0 || c.Settings.RemotePort > 65535 {
		return fmt.Errorf("REMOTE_PORT must be between 0 and 65535, got %d", c.Settings.RemotePort)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("FRAME_INTERVAL must be > 0")
	}
	if c.SettleWindow <= 0 || c.DebounceWindow <= 0 {
		return fmt.Errorf("SETTLE_WINDOW and DEBOUNCE_WINDOW must be > 0")
	}
	if c.History.Enabled {
		if c.History.DBPath == "" {
			return fmt.Errorf("HISTORY_DB_PATH cannot be empty")
		}
		if c.History.QueueSize <= 0 {
			return fmt.Errorf("HISTORY_QUEUE_SIZE must be > 0")
		}
		if c.History.Retention <= 0 {
			return fmt.Errorf("HISTORY_RETENTION must be > 0")
		}
	}
	if c.FeedURL != "" && !strings.HasPrefix(c.FeedURL, "ws://") && !strings.HasPrefix(c.FeedURL, "wss://") {
		return fmt.Errorf("FEED_URL must be a ws:// or wss:// URL")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ParseLevel maps a LOG_LEVEL value onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// SettingsPath returns the settings file inside home.
func SettingsPath(home string) string {
	return filepath.Join(home, "settings.yaml")
}

// LoadSettings reads the settings file, falling back to DefaultSettings for
// a missing file and for keys the file leaves out.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("parse settings %s: %w", path, err)
	}
	return settings, nil
}

func homeDir() (string, error) {
	if home := getEnv("CLAWDACHI_HOME", ""); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(userHome, ".clawdachi"), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
