// Package main is the entry point for the avsessiond audio session daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jmylchreest/avsessiond/internal/audio"
	"github.com/jmylchreest/avsessiond/internal/audiosvc"
	"github.com/jmylchreest/avsessiond/internal/config"
	"github.com/jmylchreest/avsessiond/internal/daemon"
	"github.com/jmylchreest/avsessiond/internal/dbus"
	"github.com/jmylchreest/avsessiond/internal/reconcile"
	"github.com/jmylchreest/avsessiond/internal/store"
)

var (
	// Build-time variables
	version = "dev"
)

const notifyTimeout = 2 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to daemon config (default: ~/.config/avsession/avsessiond.toml)")
	profilePath := flag.String("profile", "", "Path to a simulated hardware profile (overrides [service] profile)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	initConfig := flag.Bool("init-config", false, "Write a default daemon config to --config (or the default path) and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("avsessiond version", version)
		os.Exit(0)
	}

	// Set up structured logging; the level may change on config reload
	var level slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: &level,
	}))
	slog.SetDefault(logger)

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.DaemonConfigPath(); err != nil {
			logger.Error("failed to get config path", "error", err)
			os.Exit(1)
		}
	}

	if *initConfig {
		if _, err := os.Stat(path); err == nil {
			logger.Error("config file already exists", "path", path)
			os.Exit(1)
		}
		if err := config.SaveDaemonConfig(config.DefaultDaemonConfig(), path); err != nil {
			logger.Error("failed to write config", "path", path, "error", err)
			os.Exit(1)
		}
		fmt.Println("Wrote", path)
		os.Exit(0)
	}

	cfg, err := config.LoadDaemonConfig(path)
	if err != nil {
		logger.Error("failed to load config", "path", path, "error", err)
		os.Exit(1)
	}
	if *profilePath != "" {
		cfg.Service.Profile = *profilePath
	}
	setLevel(&level, cfg, *verbose)

	if err := run(cfg, path, &level, *verbose, logger); err != nil {
		logger.Error("avsessiond failed", "error", err)
		os.Exit(1)
	}
}

func setLevel(level *slog.LevelVar, cfg *config.DaemonConfig, verbose bool) {
	if verbose {
		level.Set(slog.LevelDebug)
		return
	}
	l, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		l = slog.LevelInfo
	}
	level.Set(l)
}

func run(cfg *config.DaemonConfig, configPath string, level *slog.LevelVar, verbose bool, logger *slog.Logger) error {
	logger.Info("starting avsessiond", "version", version, "config", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Simulated audio service
	profile, err := audiosvc.LoadProfile(cfg.ProfilePath())
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	dispatcher := audiosvc.NewDispatcher(logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	svc := audiosvc.NewSimulated(profile, dispatcher, logger)
	logger.Info("audio service ready", "backend", cfg.Service.Backend, "profile", profile.Name)

	// History and engine
	history := store.NewHistory(cfg.Engine.HistorySize)
	defer func() { _ = history.Close() }()

	var server atomic.Pointer[dbus.Server]
	emitReapplied := func(a reconcile.Attempt) {
		s := server.Load()
		if s == nil || !a.Trigger.IsReapply() {
			return
		}
		errMsg := ""
		if a.Err != nil {
			errMsg = a.Err.Error()
		}
		if err := s.EmitReapplied(string(a.Trigger), a.Revision, a.Err == nil, errMsg); err != nil {
			logger.Debug("failed to emit Reapplied", "error", err)
		}
	}

	engine := reconcile.New(svc,
		reconcile.WithLogger(logger),
		reconcile.WithAutoReapply(cfg.Engine.AutoReapply),
		reconcile.WithObserver(reconcile.Observers(
			reconcile.Record(history, logger),
			emitReapplied,
		)),
	)
	engine.Start()
	defer engine.Stop()

	// D-Bus server
	dbusServer := dbus.NewServer(engine, logger)
	dbusServer.SetBusName(cfg.Bus.Name)
	dbusServer.SetHistory(history)
	dbusServer.SetInjectHandler(svc.InjectEvent)
	if err := dbusServer.Start(); err != nil {
		return fmt.Errorf("failed to start D-Bus server: %w", err)
	}
	defer func() { _ = dbusServer.Stop() }()
	server.Store(dbusServer)

	// Alerts
	audioManager := audio.NewManager(cfg, logger)
	defer audioManager.Stop()

	notifier := daemon.NewInternalNotifier(logger)
	notifications := dbus.NewNotificationsClient(dbusServer.Connection())
	configureAlerts(notifier, notifications, cfg)
	notifier.SetSoundHandler(func(l daemon.NotificationLevel) {
		if err := audioManager.PlayAlert(l == daemon.NotificationLevelError); err != nil {
			logger.Warn("failed to play alert sound", "error", err)
			notifier.NotifyAudioError(err)
		}
	})
	go notifier.Watch(ctx, history.Subscribe())

	// Hot reload
	configWatcher := daemon.NewConfigWatcher(configPath, logger)
	configWatcher.SetReloadCallback(func(newCfg *config.DaemonConfig) {
		setLevel(level, newCfg, verbose)
		configureAlerts(notifier, notifications, newCfg)
		audioManager.UpdateConfig(newCfg)
		notifier.NotifyConfigReloaded()
	})
	configWatcher.SetErrorCallback(notifier.NotifyConfigError)
	if err := configWatcher.Start(ctx, cfg); err != nil {
		logger.Warn("config hot reload disabled", "error", err)
	}
	defer configWatcher.Stop()

	if cfg.Service.WatchProfile && cfg.ProfilePath() != "" {
		profileWatcher := daemon.NewProfileWatcher(cfg.ProfilePath(), logger)
		profileWatcher.SetReloadCallback(func(p audiosvc.Profile) {
			svc.ReplaceProfile(p)
			notifier.NotifyProfileReloaded(p.Name)
		})
		profileWatcher.SetErrorCallback(notifier.NotifyProfileError)
		if err := profileWatcher.Start(ctx); err != nil {
			logger.Warn("profile hot reload disabled", "error", err)
		}
		defer profileWatcher.Stop()
	}

	if soundPath := cfg.SoundPath(); soundPath != "" {
		soundWatcher := daemon.NewFileWatcher(soundPath, logger)
		soundWatcher.SetChangeCallback(audioManager.Reload)
		if err := soundWatcher.Start(ctx); err != nil {
			logger.Warn("sound file watch disabled", "error", err)
		}
		defer soundWatcher.Stop()
	}

	// Initial desired state
	if cfg.Startup != nil {
		desired, err := engine.Set(*cfg.Startup)
		if err != nil {
			logger.Warn("startup configuration rejected", "error", err)
		} else {
			logger.Info("startup configuration applied", "revision", desired.Revision)
			if err := dbusServer.EmitDesiredChanged(desired.Revision); err != nil {
				logger.Debug("failed to emit DesiredChanged", "error", err)
			}
		}
	}

	notifier.NotifyStartup(version)
	logger.Info("avsessiond ready", "bus_name", cfg.Bus.Name, "auto_reapply", engine.AutoReapplyEnabled())

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig,
		"attempts", history.Count(), "failures", history.Failures())

	server.Store(nil)
	return nil
}

// configureAlerts applies the [alerts] section to the notifier.
func configureAlerts(n *daemon.InternalNotifier, client *dbus.NotificationsClient, cfg *config.DaemonConfig) {
	n.SetEnabled(cfg.Alerts.Enabled)
	n.SetSound(cfg.Alerts.Sound)
	n.SetMinInterval(cfg.Alerts.MinInterval.Duration())

	if !cfg.Alerts.DesktopNotifications {
		n.SetNotifyHandler(nil)
		return
	}
	n.SetNotifyHandler(func(notification *dbus.Notification) error {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		_, err := client.Notify(ctx, notification)
		return err
	})
}
