// Package config handles lotline configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for lotline.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Server settings
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Sync cadences
	Sync SyncConfig `yaml:"sync" mapstructure:"sync"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global lotline settings.
type GlobalConfig struct {
	// DataDir is where lotline stores its data (default: ~/.local/share/lotline).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/lotline).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// ServerConfig contains marketplace backend settings.
type ServerConfig struct {
	// BaseURL is the marketplace API root, e.g. https://market.example.no.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// SessionTokenFile holds the session token written by `lotline login`.
	// Empty means ConfigDir/session.
	SessionTokenFile string `yaml:"session_token_file" mapstructure:"session_token_file"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SyncConfig contains polling cadences. Zero values fall back to the
// sync package defaults.
type SyncConfig struct {
	// ListInterval is how often the conversation list is refreshed.
	ListInterval time.Duration `yaml:"list_interval" mapstructure:"list_interval"`

	// ThreadInterval is how often the open conversation is refreshed.
	ThreadInterval time.Duration `yaml:"thread_interval" mapstructure:"thread_interval"`

	// UnreadInterval is how often the unread total is refreshed.
	UnreadInterval time.Duration `yaml:"unread_interval" mapstructure:"unread_interval"`
}

// DatabaseConfig contains snapshot database settings.
type DatabaseConfig struct {
	// Path is the SQLite snapshot file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeout is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains settings for the watch view.
type TUIConfig struct {
	// Theme is the color theme (default, dark, light).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowTimestamps shows timestamps next to messages.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`

	// CompactMode uses a more compact layout.
	CompactMode bool `yaml:"compact_mode" mapstructure:"compact_mode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "lotline"),
			ConfigDir: filepath.Join(homeDir, ".config", "lotline"),
		},
		Server: ServerConfig{
			Timeout: 15 * time.Second,
		},
		Sync: SyncConfig{
			ListInterval:   5 * time.Second,
			ThreadInterval: 3 * time.Second,
			UnreadInterval: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:          "", // Will be set to DataDir/lotline.db
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		TUI: TUIConfig{
			Theme:          "default",
			ShowTimestamps: true,
			CompactMode:    false,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.BaseURL != "" {
		parsed, err := url.Parse(c.Server.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("server.base_url must be an absolute URL")
		}
	}

	if c.Server.Timeout < time.Second {
		return fmt.Errorf("server.timeout must be at least 1s")
	}

	if c.Sync.ListInterval < 500*time.Millisecond {
		return fmt.Errorf("sync.list_interval must be at least 500ms")
	}
	if c.Sync.ThreadInterval < 500*time.Millisecond {
		return fmt.Errorf("sync.thread_interval must be at least 500ms")
	}
	if c.Sync.UnreadInterval < 500*time.Millisecond {
		return fmt.Errorf("sync.unread_interval must be at least 500ms")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full snapshot database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "lotline.db")
}

// SessionTokenPath returns where the session token is stored.
func (c *Config) SessionTokenPath() string {
	if c.Server.SessionTokenFile != "" {
		return c.Server.SessionTokenFile
	}
	return filepath.Join(c.Global.ConfigDir, "session")
}
