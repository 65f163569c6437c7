package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/avsessiond/internal/dbus"
	"github.com/jmylchreest/avsessiond/internal/reconcile"
	"github.com/jmylchreest/avsessiond/internal/store"
)

// AppName is the application name used for desktop notifications.
const AppName = "avsessiond"

// NotificationLevel indicates the urgency/severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

func (l NotificationLevel) String() string {
	switch l {
	case NotificationLevelInfo:
		return "info"
	case NotificationLevelWarning:
		return "warning"
	case NotificationLevelError:
		return "error"
	}
	return "unknown"
}

// InternalNotifier alerts the user about daemon events, most importantly
// reapply failures. It rate limits per key to prevent notification floods.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	// Handlers for delivering alerts
	notifyHandler func(notification *dbus.Notification) error
	soundHandler  func(level NotificationLevel)

	// Rate limiting
	lastNotifyTime map[string]time.Time // key -> last notification time
	minInterval    time.Duration        // minimum time between same notifications
	now            func() time.Time

	enabled bool
	sound   bool

	// failing is set while the most recent reapply failed.
	failing bool
}

// NewInternalNotifier creates a new InternalNotifier.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    30 * time.Second,
		now:            time.Now,
		enabled:        true,
	}
}

// SetNotifyHandler sets the function that delivers desktop notifications.
func (n *InternalNotifier) SetNotifyHandler(handler func(notification *dbus.Notification) error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifyHandler = handler
}

// SetSoundHandler sets the function that plays an alert sound.
func (n *InternalNotifier) SetSoundHandler(handler func(level NotificationLevel)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.soundHandler = handler
}

// SetEnabled enables or disables alerts.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetSound enables or disables alert sounds for warnings and errors.
func (n *InternalNotifier) SetSound(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sound = enabled
}

// SetMinInterval sets the minimum interval between duplicate notifications.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends an alert if not rate-limited.
// The key is used for rate limiting - same key won't notify again within minInterval.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) {
	n.mu.Lock()

	if !n.enabled {
		n.mu.Unlock()
		return
	}

	now := n.now()
	if lastTime, ok := n.lastNotifyTime[key]; ok && now.Sub(lastTime) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("alert rate-limited", "key", key, "summary", summary)
		return
	}
	n.lastNotifyTime[key] = now

	notifyHandler := n.notifyHandler
	var soundHandler func(NotificationLevel)
	if n.sound && level >= NotificationLevelWarning {
		soundHandler = n.soundHandler
	}
	n.mu.Unlock()

	n.logger.Debug("sending alert", "key", key, "summary", summary, "level", level)

	if soundHandler != nil {
		soundHandler(level)
	}

	if notifyHandler == nil {
		return
	}
	if err := notifyHandler(newAlert(summary, body, level)); err != nil {
		n.logger.Warn("failed to deliver desktop notification", "summary", summary, "error", err)
	}
}

func newAlert(summary, body string, level NotificationLevel) *dbus.Notification {
	notification := dbus.NewNotification(AppName, summary, body)
	notification.ExpireTimeout = 5000

	switch level {
	case NotificationLevelInfo:
		notification.AppIcon = "dialog-information"
		notification.SetUrgency(dbus.UrgencyLow)
	case NotificationLevelWarning:
		notification.AppIcon = "dialog-warning"
		notification.SetUrgency(dbus.UrgencyNormal)
	case NotificationLevelError:
		notification.AppIcon = "dialog-error"
		notification.SetUrgency(dbus.UrgencyCritical)
		notification.ExpireTimeout = 0
	}

	notification.
		SetHint("category", "device").
		SetHint("transient", level == NotificationLevelInfo).
		SetHint("desktop-entry", AppName)
	return notification
}

// Watch consumes history changes until ctx is done or the channel closes,
// alerting when a reapply fails and when a later one succeeds again.
func (n *InternalNotifier) Watch(ctx context.Context, events <-chan store.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			n.HandleEntry(ev.Entry)
		}
	}
}

// HandleEntry alerts on a single history entry. Caller-initiated applies
// are ignored since the caller already sees their error.
func (n *InternalNotifier) HandleEntry(e store.Entry) {
	if !reconcile.Trigger(e.Trigger).IsReapply() {
		return
	}

	n.mu.Lock()
	wasFailing := n.failing
	n.failing = !e.OK
	n.mu.Unlock()

	switch {
	case !e.OK:
		n.NotifyReapplyFailed(e.Trigger, e.Error)
	case wasFailing:
		n.NotifyReapplyRecovered(e.Trigger)
	}
}

// NotifyReapplyFailed sends an alert about a failed reconciliation.
func (n *InternalNotifier) NotifyReapplyFailed(trigger, reason string) {
	n.Notify(
		"reapply-failed",
		"Audio Session Not Restored",
		"Reapplying the desired configuration after "+trigger+" failed: "+reason,
		NotificationLevelError,
	)
}

// NotifyReapplyRecovered sends an alert that enforcement works again.
func (n *InternalNotifier) NotifyReapplyRecovered(trigger string) {
	n.Notify(
		"reapply-recovered",
		"Audio Session Restored",
		"The desired configuration was reapplied after "+trigger+".",
		NotificationLevelInfo,
	)
}

// NotifyConfigReloaded sends a notification about config being reloaded.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify(
		"config-reload",
		"Configuration Reloaded",
		"avsessiond configuration has been successfully reloaded.",
		NotificationLevelInfo,
	)
}

// NotifyConfigError sends a notification about config validation error.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyProfileReloaded sends a notification about a new hardware profile.
func (n *InternalNotifier) NotifyProfileReloaded(name string) {
	n.Notify(
		"profile-reload",
		"Hardware Profile Reloaded",
		"Profile '"+name+"' is now active.",
		NotificationLevelInfo,
	)
}

// NotifyProfileError sends a notification about a profile loading error.
func (n *InternalNotifier) NotifyProfileError(err error) {
	n.Notify(
		"profile-error",
		"Hardware Profile Error",
		"Failed to load profile: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyStartup sends a notification that the daemon has started.
func (n *InternalNotifier) NotifyStartup(version string) {
	n.Notify(
		"startup",
		"avsessiond Started",
		"Audio session daemon v"+version+" is now running.",
		NotificationLevelInfo,
	)
}

// NotifyAudioError sends a notification about an alert sound failure.
// It is info level so it never plays a sound itself.
func (n *InternalNotifier) NotifyAudioError(err error) {
	n.Notify(
		"audio-error",
		"Audio Error",
		"Failed to play alert sound: "+err.Error(),
		NotificationLevelInfo,
	)
}
