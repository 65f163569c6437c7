package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/avsessiond/internal/model"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "10s", "1m", "1h30m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Integer milliseconds
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Milliseconds returns the duration in milliseconds.
func (d Duration) Milliseconds() int {
	return int(time.Duration(d).Milliseconds())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for avsessiond.
// Loaded from ~/.config/avsession/avsessiond.toml
type DaemonConfig struct {
	Engine  EngineConfig  `toml:"engine"`
	Service ServiceConfig `toml:"service"`
	Bus     BusConfig     `toml:"bus"`
	Alerts  AlertsConfig  `toml:"alerts"`
	Log     LogConfig     `toml:"log"`

	// Startup is applied with Set once the daemon is up. Optional.
	Startup *model.Request `toml:"startup,omitempty"`
}

// EngineConfig contains reconciliation settings.
type EngineConfig struct {
	AutoReapply bool `toml:"auto_reapply"` // Initial enforcement flag
	HistorySize int  `toml:"history_size"` // Entries kept in memory
}

// ServiceConfig selects the audio service backend.
type ServiceConfig struct {
	Backend      string `toml:"backend"`       // "simulated"
	Profile      string `toml:"profile"`       // YAML device profile, empty = built-in
	WatchProfile bool   `toml:"watch_profile"` // Reload the profile when it changes
}

// BusConfig contains D-Bus settings.
type BusConfig struct {
	Name string `toml:"name"` // Well-known name to own
}

// AlertsConfig controls how failed reapplies are surfaced.
type AlertsConfig struct {
	Enabled              bool     `toml:"enabled"`
	DesktopNotifications bool     `toml:"desktop_notifications"`
	Sound                bool     `toml:"sound"`
	SoundFile            string   `toml:"sound_file"`   // WAV, OGG or MP3; empty = built-in chime
	Volume               int      `toml:"volume"`       // 0-100
	MinInterval          Duration `toml:"min_interval"` // Per-trigger rate limit
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Backend names.
const (
	BackendSimulated = "simulated"
)

// DefaultBusName is the well-known D-Bus name of the daemon.
const DefaultBusName = "io.github.jmylchreest.AVSession"

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Engine: EngineConfig{
			AutoReapply: true,
			HistorySize: 256,
		},
		Service: ServiceConfig{
			Backend:      BackendSimulated,
			Profile:      "",
			WatchProfile: true,
		},
		Bus: BusConfig{
			Name: DefaultBusName,
		},
		Alerts: AlertsConfig{
			Enabled:              true,
			DesktopNotifications: true,
			Sound:                false,
			Volume:               80,
			MinInterval:          Duration(30 * time.Second),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() (string, error) {
	home := configHome()
	if home == "" {
		return "", fmt.Errorf("unable to determine config directory")
	}
	return filepath.Join(home, appDir, "avsessiond.toml"), nil
}

// LoadDaemonConfig loads the daemon configuration from path, or from
// DaemonConfigPath when path is empty. A missing file yields the defaults.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	if path == "" {
		p, err := DaemonConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig saves the daemon configuration to path, or to
// DaemonConfigPath when path is empty.
func SaveDaemonConfig(config *DaemonConfig, path string) error {
	if path == "" {
		p, err := DaemonConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if c.Service.Backend != BackendSimulated {
		return fmt.Errorf("invalid backend %q, must be one of: [%s]", c.Service.Backend, BackendSimulated)
	}

	if c.Engine.HistorySize < 1 || c.Engine.HistorySize > 10000 {
		return fmt.Errorf("history_size must be between 1 and 10000, got %d", c.Engine.HistorySize)
	}

	if c.Bus.Name == "" || !strings.Contains(c.Bus.Name, ".") {
		return fmt.Errorf("invalid bus name %q", c.Bus.Name)
	}

	if c.Alerts.Volume < 0 || c.Alerts.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Alerts.Volume)
	}
	if c.Alerts.MinInterval < 0 {
		return fmt.Errorf("min_interval must not be negative")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// RestartRequired returns the keys of settings that differ between prev and
// next but are only read at startup. The profile path is left out since
// the --profile flag overrides it.
func RestartRequired(prev, next *DaemonConfig) []string {
	if prev == nil || next == nil {
		return nil
	}

	var keys []string
	if prev.Engine.AutoReapply != next.Engine.AutoReapply {
		keys = append(keys, "engine.auto_reapply")
	}
	if prev.Engine.HistorySize != next.Engine.HistorySize {
		keys = append(keys, "engine.history_size")
	}
	if prev.Service.Backend != next.Service.Backend {
		keys = append(keys, "service.backend")
	}
	if prev.Service.WatchProfile != next.Service.WatchProfile {
		keys = append(keys, "service.watch_profile")
	}
	if prev.Bus.Name != next.Bus.Name {
		keys = append(keys, "bus.name")
	}
	if !reflect.DeepEqual(prev.Startup, next.Startup) {
		keys = append(keys, "startup")
	}
	return keys
}

// ProfilePath returns the device profile path with ~ expanded.
func (c *DaemonConfig) ProfilePath() string {
	return expandPath(c.Service.Profile)
}

// SoundPath returns the alert sound path with ~ expanded.
func (c *DaemonConfig) SoundPath() string {
	return expandPath(c.Alerts.SoundFile)
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q", level)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
