package audio

import (
	"log/slog"
	"os"
	"sync"

	"github.com/jmylchreest/avsessiond/internal/config"
)

// Manager plays alert sounds according to the [alerts] configuration.
type Manager struct {
	mu     sync.RWMutex
	logger *slog.Logger
	player *Player

	enabled    bool
	configured string // [alerts] sound_file, expanded
	soundFile  string // empty = built-in chime
}

// NewManager creates a new audio manager.
func NewManager(cfg *config.DaemonConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		logger: logger,
		player: NewPlayer(logger),
	}
	m.UpdateConfig(cfg)
	return m
}

// UpdateConfig applies the alert sound settings.
// This is called when the config file is hot-reloaded.
func (m *Manager) UpdateConfig(cfg *config.DaemonConfig) {
	if cfg == nil {
		return
	}

	soundFile := cfg.SoundPath()
	if soundFile != "" {
		if _, err := os.Stat(soundFile); err != nil {
			m.logger.Warn("sound file not found, using built-in chime", "path", soundFile)
			soundFile = ""
		}
	}

	m.mu.Lock()
	m.enabled = cfg.Alerts.Enabled && cfg.Alerts.Sound
	m.configured = cfg.SoundPath()
	m.soundFile = soundFile
	m.mu.Unlock()

	// config uses 0-100, player uses 0.0-1.0
	m.player.SetVolume(float64(cfg.Alerts.Volume) / 100.0)
	m.player.ClearCache()

	m.logger.Debug("audio manager config updated", "enabled", m.Enabled(), "sound_file", soundFile)
}

// Enabled reports whether alert sounds are played.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// SoundFile returns the configured sound file, empty for the chime.
func (m *Manager) SoundFile() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.soundFile
}

// PlayAlert plays the configured sound file or, without one, the chime.
func (m *Manager) PlayAlert(critical bool) error {
	m.mu.RLock()
	enabled, soundFile := m.enabled, m.soundFile
	m.mu.RUnlock()

	if !enabled {
		return nil
	}
	if soundFile != "" {
		return m.player.Play(soundFile)
	}
	return m.player.PlayChime(critical)
}

// Reload re-reads the configured sound file after it changed on disk. A file
// that is gone falls back to the built-in chime.
func (m *Manager) Reload() {
	m.mu.Lock()
	if m.configured != "" {
		if _, err := os.Stat(m.configured); err == nil {
			m.soundFile = m.configured
		} else {
			m.soundFile = ""
		}
	}
	soundFile := m.soundFile
	m.mu.Unlock()

	if soundFile == "" {
		m.player.ClearCache()
		return
	}
	m.player.InvalidateCache(soundFile)
	if err := m.player.Preload(soundFile); err != nil {
		m.logger.Warn("failed to reload alert sound", "path", soundFile, "error", err)
		return
	}
	m.logger.Debug("alert sound reloaded", "path", soundFile)
}

// GetVolume returns the current volume.
func (m *Manager) GetVolume() float64 {
	return m.player.GetVolume()
}

// Stop shuts down the audio manager.
func (m *Manager) Stop() {
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}
