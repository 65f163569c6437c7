// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values for the avsession CLI.
const (
	DefaultHistoryLimit = 20
	DefaultTimeFormat   = "relative"
	DefaultCallTimeout  = "5s"
)

// appDir is the directory name under the XDG config home.
const appDir = "avsession"

// Config represents the avsession CLI configuration.
type Config struct {
	Output  OutputConfig  `toml:"output"`
	History HistoryConfig `toml:"history"`
	Bus     ClientBus     `toml:"bus"`
}

// OutputConfig holds default rendering options.
type OutputConfig struct {
	JSON       bool   `toml:"json"`        // Print JSON instead of tables
	TimeFormat string `toml:"time_format"` // relative, absolute
	Color      bool   `toml:"color"`
}

// HistoryConfig holds defaults for the history command.
type HistoryConfig struct {
	Limit int `toml:"limit"` // Max entries (0 = all)
}

// ClientBus holds D-Bus client options.
type ClientBus struct {
	Timeout Duration `toml:"timeout"` // Per-call timeout
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	var timeout Duration
	_ = timeout.UnmarshalText([]byte(DefaultCallTimeout))
	return &Config{
		Output: OutputConfig{
			JSON:       false,
			TimeFormat: DefaultTimeFormat,
			Color:      true,
		},
		History: HistoryConfig{
			Limit: DefaultHistoryLimit,
		},
		Bus: ClientBus{
			Timeout: timeout,
		},
	}
}

// configHome returns XDG_CONFIG_HOME, falling back to ~/.config.
func configHome() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return dir
}

// ConfigPath returns the path to the CLI config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	home := configHome()
	if home == "" {
		return ""
	}
	return filepath.Join(home, appDir, "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Output.TimeFormat {
	case "relative", "absolute":
	default:
		return fmt.Errorf("invalid time_format %q, must be relative or absolute", c.Output.TimeFormat)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history limit must not be negative, got %d", c.History.Limit)
	}
	if c.Bus.Timeout.Duration() <= 0 {
		return errors.New("bus timeout must be positive")
	}
	return nil
}
