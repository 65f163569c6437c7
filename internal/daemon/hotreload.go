package daemon

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/avsessiond/internal/audiosvc"
	"github.com/jmylchreest/avsessiond/internal/config"
)

// ConfigWatcher watches the daemon config file for changes and validates new configs.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger
	file   *FileWatcher

	// Current valid config
	currentConfig *config.DaemonConfig

	onReloadCallback func(newConfig *config.DaemonConfig)
	onErrorCallback  func(err error)
}

// NewConfigWatcher creates a ConfigWatcher for the daemon config at path.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &ConfigWatcher{
		logger: logger,
		file:   NewFileWatcher(path, logger),
	}
	w.file.SetChangeCallback(w.reload)
	return w
}

// SetReloadCallback sets the callback to invoke when config is successfully reloaded.
func (w *ConfigWatcher) SetReloadCallback(callback func(newConfig *config.DaemonConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback to invoke when config reload fails validation.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Start begins watching the config file for changes.
func (w *ConfigWatcher) Start(ctx context.Context, initialConfig *config.DaemonConfig) error {
	w.mu.Lock()
	w.currentConfig = initialConfig
	w.mu.Unlock()
	return w.file.Start(ctx)
}

// Stop stops watching the config file.
func (w *ConfigWatcher) Stop() {
	w.file.Stop()
}

// reload loads and validates the config file. An invalid file leaves the
// current config in place. Changes to settings only read at startup are
// logged as needing a restart.
func (w *ConfigWatcher) reload() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	w.mu.RUnlock()

	newConfig, err := config.LoadDaemonConfig(w.file.Path())
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	prev := w.currentConfig
	w.currentConfig = newConfig
	w.mu.Unlock()

	w.logger.Info("config reloaded successfully", "path", w.file.Path())
	for _, key := range config.RestartRequired(prev, newConfig) {
		w.logger.Warn("config change requires restart", "setting", key)
	}
	if reloadCallback != nil {
		reloadCallback(newConfig)
	}
}

// ProfileWatcher reloads the simulated hardware profile when its file changes.
type ProfileWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger
	file   *FileWatcher

	onReloadCallback func(profile audiosvc.Profile)
	onErrorCallback  func(err error)
}

// NewProfileWatcher creates a ProfileWatcher for the profile at path.
func NewProfileWatcher(path string, logger *slog.Logger) *ProfileWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &ProfileWatcher{
		logger: logger,
		file:   NewFileWatcher(path, logger),
	}
	w.file.SetChangeCallback(w.reload)
	return w
}

// SetReloadCallback sets the callback to invoke with a valid new profile.
func (w *ProfileWatcher) SetReloadCallback(callback func(profile audiosvc.Profile)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback to invoke when the profile fails to load.
func (w *ProfileWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Start begins watching the profile file.
func (w *ProfileWatcher) Start(ctx context.Context) error {
	return w.file.Start(ctx)
}

// Stop stops watching the profile file.
func (w *ProfileWatcher) Stop() {
	w.file.Stop()
}

func (w *ProfileWatcher) reload() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	w.mu.RUnlock()

	profile, err := audiosvc.LoadProfile(w.file.Path())
	if err != nil {
		w.logger.Warn("profile changed but failed to load", "path", w.file.Path(), "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.logger.Info("profile reloaded", "path", w.file.Path(), "name", profile.Name)
	if reloadCallback != nil {
		reloadCallback(profile)
	}
}
