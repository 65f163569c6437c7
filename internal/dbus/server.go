package dbus

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/avsessiond/internal/model"
	"github.com/jmylchreest/avsessiond/internal/store"
)

// Engine is the reconciliation engine as seen by the bus.
type Engine interface {
	Set(req model.Request) (model.Desired, error)
	TemporaryOverrideFor(req model.Request, restoreAfter time.Duration) error
	SetActive(active bool) error
	EnableAutoReapply() error
	DisableAutoReapply()
	AutoReapplyEnabled() bool
	Desired() (model.Desired, bool)
	State() model.Snapshot
}

// HistorySource provides recent history entries, newest first.
type HistorySource interface {
	Recent(limit int) []store.Entry
}

// InjectHandler delivers a named service event. It is only set for backends
// that accept injected events.
type InjectHandler func(kind string) error

// Server exports an Engine on the session bus.
type Server struct {
	conn   *dbus.Conn
	logger *slog.Logger
	engine Engine

	mu            sync.RWMutex
	busName       string
	history       HistorySource
	injectHandler InjectHandler
	running       bool
}

// NewServer creates a server for engine.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:  logger,
		engine:  engine,
		busName: BusName,
	}
}

// SetBusName sets the well-known name requested on Start.
func (s *Server) SetBusName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busName = name
}

// SetHistory sets the source for GetHistory.
func (s *Server) SetHistory(h HistorySource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = h
}

// SetInjectHandler sets the handler for InjectEvent.
func (s *Server) SetInjectHandler(handler InjectHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injectHandler = handler
}

// Start connects to the session bus and exports the AVSession object.
func (s *Server) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.StartOn(conn)
}

// StartOn exports the AVSession object on conn and requests the bus name.
func (s *Server) StartOn(conn *dbus.Conn) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	busName := s.busName
	s.mu.Unlock()

	if err := conn.Export(s, Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: Path,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: sessionMethods(),
				Signals: sessionSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", busName)
	}

	s.mu.Lock()
	s.conn = conn
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus session server started", "interface", Interface, "path", Path, "name", busName)
	return nil
}

// Stop releases the bus name and unexports the object.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(s.busName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		_ = s.conn.Export(nil, Path, Interface)
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus session server stopped")
	return nil
}

// Set applies a configuration and makes it the desired state.
// D-Bus method: Set(a{sv}) -> s
func (s *Server) Set(request map[string]dbus.Variant) (string, *dbus.Error) {
	req, err := RequestFromVariants(request)
	if err != nil {
		return "", toDBusError(err)
	}

	s.logger.Debug("Set called", "category", req.Category, "mode", req.Mode)
	desired, err := s.engine.Set(req)
	if err != nil {
		s.logger.Info("Set rejected", "error", err)
		return "", toDBusError(err)
	}

	if err := s.EmitDesiredChanged(desired.Revision); err != nil {
		s.logger.Debug("failed to emit DesiredChanged", "error", err)
	}
	return desired.Revision, nil
}

// maxRestoreAfterMs is the longest restore delay a time.Duration can hold.
const maxRestoreAfterMs = math.MaxInt64 / int64(time.Millisecond)

// TemporaryOverride applies a configuration without changing the desired
// state. A positive restoreAfterMs schedules a restore.
// D-Bus method: TemporaryOverride(a{sv}, x)
func (s *Server) TemporaryOverride(request map[string]dbus.Variant, restoreAfterMs int64) *dbus.Error {
	req, err := RequestFromVariants(request)
	if err != nil {
		return toDBusError(err)
	}
	if restoreAfterMs < 0 || restoreAfterMs > maxRestoreAfterMs {
		return toDBusError(model.NewInvalidValue("restoreAfter", fmt.Sprint(restoreAfterMs)))
	}

	s.logger.Debug("TemporaryOverride called", "category", req.Category, "restore_after_ms", restoreAfterMs)
	restoreAfter := time.Duration(restoreAfterMs) * time.Millisecond
	if err := s.engine.TemporaryOverrideFor(req, restoreAfter); err != nil {
		return toDBusError(err)
	}
	return nil
}

// SetActive activates or deactivates the session.
// D-Bus method: SetActive(b)
func (s *Server) SetActive(active bool) *dbus.Error {
	s.logger.Debug("SetActive called", "active", active)
	return toDBusError(s.engine.SetActive(active))
}

// EnableAutoReapply turns enforcement on and re-applies the desired state.
// D-Bus method: EnableAutoReapply()
func (s *Server) EnableAutoReapply() *dbus.Error {
	s.logger.Debug("EnableAutoReapply called")
	return toDBusError(s.engine.EnableAutoReapply())
}

// DisableAutoReapply turns enforcement off.
// D-Bus method: DisableAutoReapply()
func (s *Server) DisableAutoReapply() *dbus.Error {
	s.logger.Debug("DisableAutoReapply called")
	s.engine.DisableAutoReapply()
	return nil
}

// GetState returns a snapshot of the session.
// D-Bus method: GetState() -> a{sv}
func (s *Server) GetState() (map[string]dbus.Variant, *dbus.Error) {
	return SnapshotToVariants(s.engine.State()), nil
}

// GetStatus reports the enforcement flag and the desired configuration.
// D-Bus method: GetStatus() -> (b, b, s, x, a{sv})
func (s *Server) GetStatus() (bool, bool, string, int64, map[string]dbus.Variant, *dbus.Error) {
	enforcing := s.engine.AutoReapplyEnabled()
	desired, ok := s.engine.Desired()
	if !ok {
		return enforcing, false, "", 0, map[string]dbus.Variant{}, nil
	}
	return enforcing, true, desired.Revision, desired.AcceptedAt.UnixMilli(), RequestToVariants(desired.Request()), nil
}

// GetHistory returns up to limit history entries, newest first. A zero
// limit returns everything held.
// D-Bus method: GetHistory(u) -> a(sssxbs)
func (s *Server) GetHistory(limit uint32) ([]HistoryEntry, *dbus.Error) {
	s.mu.RLock()
	history := s.history
	s.mu.RUnlock()

	if history == nil {
		return []HistoryEntry{}, nil
	}

	entries := history.Recent(int(limit))
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = NewHistoryEntry(e)
	}
	return out, nil
}

// InjectEvent delivers a simulated service event.
// D-Bus method: InjectEvent(s)
func (s *Server) InjectEvent(kind string) *dbus.Error {
	s.mu.RLock()
	handler := s.injectHandler
	s.mu.RUnlock()

	if handler == nil {
		return toDBusError(fmt.Errorf("%w: backend does not accept injected events", ErrNotSupported))
	}

	s.logger.Debug("InjectEvent called", "kind", kind)
	return toDBusError(handler(kind))
}

// sessionMethods returns the D-Bus method introspection data.
func sessionMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Set",
			Args: []introspect.Arg{
				{Name: "request", Type: "a{sv}", Direction: "in"},
				{Name: "revision", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "TemporaryOverride",
			Args: []introspect.Arg{
				{Name: "request", Type: "a{sv}", Direction: "in"},
				{Name: "restore_after_ms", Type: "x", Direction: "in"},
			},
		},
		{
			Name: "SetActive",
			Args: []introspect.Arg{
				{Name: "active", Type: "b", Direction: "in"},
			},
		},
		{Name: "EnableAutoReapply"},
		{Name: "DisableAutoReapply"},
		{
			Name: "GetState",
			Args: []introspect.Arg{
				{Name: "state", Type: "a{sv}", Direction: "out"},
			},
		},
		{
			Name: "GetStatus",
			Args: []introspect.Arg{
				{Name: "auto_reapply", Type: "b", Direction: "out"},
				{Name: "has_desired", Type: "b", Direction: "out"},
				{Name: "revision", Type: "s", Direction: "out"},
				{Name: "accepted_at_ms", Type: "x", Direction: "out"},
				{Name: "desired", Type: "a{sv}", Direction: "out"},
			},
		},
		{
			Name: "GetHistory",
			Args: []introspect.Arg{
				{Name: "limit", Type: "u", Direction: "in"},
				{Name: "entries", Type: "a(sssxbs)", Direction: "out"},
			},
		},
		{
			Name: "InjectEvent",
			Args: []introspect.Arg{
				{Name: "kind", Type: "s", Direction: "in"},
			},
		},
	}
}

// sessionSignals returns the D-Bus signal introspection data.
func sessionSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "Reapplied",
			Args: []introspect.Arg{
				{Name: "trigger", Type: "s"},
				{Name: "revision", Type: "s"},
				{Name: "ok", Type: "b"},
				{Name: "error", Type: "s"},
			},
		},
		{
			Name: "DesiredChanged",
			Args: []introspect.Arg{
				{Name: "revision", Type: "s"},
			},
		},
	}
}
