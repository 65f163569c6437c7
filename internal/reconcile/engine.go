// Package reconcile implements the desired-state reconciliation engine.
//
// The engine owns a single desired session configuration and an
// auto-reapply flag. It applies configurations to an audio service and
// re-applies the desired one whenever the service reports that it may have
// discarded it.
package reconcile

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/avsessiond/internal/audiosvc"
	"github.com/jmylchreest/avsessiond/internal/mapper"
	"github.com/jmylchreest/avsessiond/internal/model"
)

// Trigger names what caused an apply.
type Trigger string

// Triggers for caller-initiated applies. Event-driven applies use the event
// kind as trigger.
const (
	TriggerSet               Trigger = "set"
	TriggerTemporaryOverride Trigger = "temporaryOverride"
	TriggerEnableAutoReapply Trigger = "enableAutoReapply"
)

// IsReapply reports whether the trigger re-applied the desired state rather
// than a caller-supplied configuration.
func (t Trigger) IsReapply() bool {
	return t != TriggerSet && t != TriggerTemporaryOverride
}

// Attempt describes one apply against the audio service.
type Attempt struct {
	Trigger  Trigger
	Reason   string // event detail, if any
	Revision string // desired revision involved, empty for overrides
	At       time.Time
	Duration time.Duration
	Err      error
}

// Observer is told about every apply attempt. It is called without the
// engine lock held and must not block for long.
type Observer func(Attempt)

// Engine reconciles the audio session against the desired configuration.
type Engine struct {
	mu     sync.Mutex
	svc    audiosvc.Service
	logger *slog.Logger

	scheduler audiosvc.Scheduler
	observer  Observer

	// Reconciled state
	desired *model.Desired
	enforce bool

	cancelRestore func() bool
	restoreGen    uint64
	unsubscribe   func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithScheduler sets where deferred restores run. It should be the queue the
// service delivers notifications on.
func WithScheduler(s audiosvc.Scheduler) Option {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithObserver registers an observer for apply attempts.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithAutoReapply sets the initial state of the auto-reapply flag.
func WithAutoReapply(enabled bool) Option {
	return func(e *Engine) {
		e.enforce = enabled
	}
}

// New creates an engine for svc. Auto-reapply starts enabled. If svc also
// implements audiosvc.Scheduler it is used for deferred restores unless
// WithScheduler overrides it.
func New(svc audiosvc.Service, opts ...Option) *Engine {
	e := &Engine{
		svc:     svc,
		logger:  slog.Default(),
		enforce: true,
	}
	if s, ok := svc.(audiosvc.Scheduler); ok {
		e.scheduler = s
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scheduler == nil {
		e.scheduler = timerScheduler{}
	}
	return e
}

// Start subscribes to service notifications.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unsubscribe != nil {
		return
	}
	e.unsubscribe = e.svc.Subscribe(e.HandleEvent)
	e.logger.Debug("reconciliation engine subscribed to audio service")
}

// Stop unsubscribes from notifications and cancels any pending restore.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.cancelRestoreLocked()
	e.logger.Debug("reconciliation engine stopped")
}

// Set applies req and, on success, makes it the desired configuration and
// enables auto-reapply. On failure the previous desired configuration is
// kept; the session may still have been partially changed.
func (e *Engine) Set(req model.Request) (model.Desired, error) {
	cfg, err := mapper.Resolve(req)
	if err != nil {
		return model.Desired{}, err
	}
	desired, err := model.NewDesired(cfg)
	if err != nil {
		return model.Desired{}, err
	}

	e.mu.Lock()
	attempt := e.applyLocked(TriggerSet, "", desired.Revision, cfg)
	if attempt.Err == nil {
		e.desired = &desired
		e.enforce = true
		e.cancelRestoreLocked()
	}
	e.mu.Unlock()

	e.report(attempt)
	if attempt.Err != nil {
		return model.Desired{}, attempt.Err
	}
	e.logger.Info("desired session updated",
		"revision", desired.Revision,
		"category", cfg.Category,
		"mode", cfg.Mode,
		"options", cfg.Options.String(),
	)
	return desired, nil
}

// TemporaryOverride applies req without touching the desired configuration
// or the auto-reapply flag. The desired configuration comes back on the next
// service notification.
func (e *Engine) TemporaryOverride(req model.Request) error {
	return e.TemporaryOverrideFor(req, 0)
}

// TemporaryOverrideFor is TemporaryOverride that also schedules a restore of
// the desired configuration after restoreAfter, if positive. The restore
// runs on the scheduler and checks the flag and desired state when it
// fires. A later override or Set cancels it, even once it is queued.
func (e *Engine) TemporaryOverrideFor(req model.Request, restoreAfter time.Duration) error {
	cfg, err := mapper.Resolve(req)
	if err != nil {
		return err
	}

	e.mu.Lock()
	attempt := e.applyLocked(TriggerTemporaryOverride, "", "", cfg)
	if attempt.Err == nil {
		e.cancelRestoreLocked()
		if restoreAfter > 0 {
			gen := e.restoreGen
			e.cancelRestore = e.scheduler.After(restoreAfter, func() { e.restore(gen) })
		}
	}
	e.mu.Unlock()

	e.report(attempt)
	if attempt.Err != nil {
		return attempt.Err
	}
	e.logger.Info("temporary override applied", "category", cfg.Category, "mode", cfg.Mode, "restore_after", restoreAfter)
	return nil
}

// SetActive activates or deactivates the session without changing the
// desired configuration.
func (e *Engine) SetActive(active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.svc.SetActive(active); err != nil {
		return &model.ServiceError{Step: model.StepActive, Err: err}
	}
	e.logger.Debug("session activation changed", "active", active)
	return nil
}

// EnableAutoReapply turns enforcement on and immediately re-applies the
// desired configuration, if any, returning its error.
func (e *Engine) EnableAutoReapply() error {
	e.mu.Lock()
	e.enforce = true
	if e.desired == nil {
		e.mu.Unlock()
		e.logger.Info("auto-reapply enabled, no desired session yet")
		return nil
	}
	attempt := e.applyLocked(TriggerEnableAutoReapply, "", e.desired.Revision, e.desired.Config)
	e.mu.Unlock()

	e.report(attempt)
	e.logger.Info("auto-reapply enabled", "revision", attempt.Revision, "error", attempt.Err)
	return attempt.Err
}

// DisableAutoReapply turns enforcement off. Notifications are ignored until
// it is enabled again.
func (e *Engine) DisableAutoReapply() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.enforce = false
	e.logger.Info("auto-reapply disabled")
}

// AutoReapplyEnabled reports the enforcement flag.
func (e *Engine) AutoReapplyEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enforce
}

// Desired returns the desired configuration, if one has been set.
func (e *Engine) Desired() (model.Desired, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.desired == nil {
		return model.Desired{}, false
	}
	return *e.desired, true
}

// State returns a fresh snapshot of the session. It never fails: fields the
// service cannot report are "unknown".
func (e *Engine) State() model.Snapshot {
	snap, err := e.svc.Snapshot()
	if err != nil {
		e.logger.Warn("failed to query audio session", "error", err)
		return model.UnknownSnapshot()
	}
	return snap
}

// HandleEvent re-applies the desired configuration in response to a service
// notification. Failures and panics are logged, never propagated, so the
// delivery path stays intact.
func (e *Engine) HandleEvent(ev audiosvc.Event) {
	e.reapply(Trigger(ev.Kind), ev.Reason, nil)
}

// restore fires after a temporary override expires. It does nothing if a
// later Set, override or Stop superseded the override that scheduled it.
func (e *Engine) restore(gen uint64) {
	e.reapply(Trigger(audiosvc.EventOverrideExpired), "", func() bool { return gen == e.restoreGen })
}

// reapply applies the desired configuration. current, if set, is checked
// under the engine lock and the attempt is skipped when it returns false.
func (e *Engine) reapply(trigger Trigger, reason string, current func() bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("reapply panicked", "trigger", trigger, "panic", fmt.Sprint(r))
		}
	}()

	attempt, ok := e.reapplyDesired(trigger, reason, current)
	if !ok {
		return
	}
	if attempt.Err != nil {
		e.logger.Warn("reapply failed",
			"trigger", trigger,
			"reason", reason,
			"revision", attempt.Revision,
			"error", attempt.Err,
		)
	} else {
		e.logger.Info("desired session reapplied", "trigger", trigger, "revision", attempt.Revision)
	}
	e.report(attempt)
}

// reapplyDesired applies the desired configuration if enforcement is on.
// The flag and desired state are read under the same lock as the apply.
func (e *Engine) reapplyDesired(trigger Trigger, reason string, current func() bool) (Attempt, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if current != nil && !current() {
		e.logger.Debug("dropping superseded restore", "trigger", trigger)
		return Attempt{}, false
	}
	if !e.enforce || e.desired == nil {
		e.logger.Debug("ignoring audio service event", "trigger", trigger, "enforcing", e.enforce, "has_desired", e.desired != nil)
		return Attempt{}, false
	}
	return e.applyLocked(trigger, reason, e.desired.Revision, e.desired.Config), true
}

func (e *Engine) applyLocked(trigger Trigger, reason, revision string, cfg model.Config) Attempt {
	start := time.Now()
	err := e.apply(cfg)
	return Attempt{
		Trigger:  trigger,
		Reason:   reason,
		Revision: revision,
		At:       start,
		Duration: time.Since(start),
		Err:      err,
	}
}

func (e *Engine) report(a Attempt) {
	if e.observer != nil {
		e.observer(a)
	}
}

// cancelRestoreLocked cancels the pending restore and invalidates any that
// already left the scheduler.
func (e *Engine) cancelRestoreLocked() {
	e.restoreGen++
	if e.cancelRestore != nil {
		e.cancelRestore()
		e.cancelRestore = nil
	}
}

// timerScheduler runs deferred work on its own goroutine. It is only used
// when no dispatch queue is available.
type timerScheduler struct{}

func (timerScheduler) After(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}
