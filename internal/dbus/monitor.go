package dbus

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/godbus/dbus/v5"
)

// SignalEvent is a decoded AVSession signal.
type SignalEvent struct {
	Name     string `json:"signal"`
	Trigger  string `json:"trigger,omitempty"`
	Revision string `json:"revision"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// SignalHandler is called for every decoded signal.
type SignalHandler func(ev SignalEvent)

// SignalMonitor subscribes to the signals a running daemon emits.
type SignalMonitor struct {
	conn    *dbus.Conn
	logger  *slog.Logger
	ch      chan *dbus.Signal
	done    chan struct{}
	handler SignalHandler
}

// NewSignalMonitor creates a new signal monitor.
func NewSignalMonitor(logger *slog.Logger) *SignalMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalMonitor{logger: logger}
}

// SetHandler sets the callback for received signals.
func (m *SignalMonitor) SetHandler(handler SignalHandler) {
	m.handler = handler
}

// Start adds the match rule and begins delivering signals.
func (m *SignalMonitor) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(Path),
		dbus.WithMatchInterface(Interface),
	); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to add match rule: %w", err)
	}

	m.conn = conn
	m.ch = make(chan *dbus.Signal, 32)
	m.done = make(chan struct{})
	conn.Signal(m.ch)

	m.logger.Debug("started AVSession signal monitor")
	go m.processSignals()
	return nil
}

// Done is closed once the monitor stops delivering signals.
func (m *SignalMonitor) Done() <-chan struct{} {
	return m.done
}

func (m *SignalMonitor) processSignals() {
	defer close(m.done)
	for sig := range m.ch {
		ev, ok := parseSignal(sig)
		if !ok {
			m.logger.Debug("ignoring signal", "name", sig.Name)
			continue
		}
		if m.handler != nil {
			m.handler(ev)
		}
	}
}

// parseSignal decodes a Reapplied or DesiredChanged signal.
func parseSignal(sig *dbus.Signal) (SignalEvent, bool) {
	if sig == nil || sig.Path != Path {
		return SignalEvent{}, false
	}
	member, ok := strings.CutPrefix(sig.Name, Interface+".")
	if !ok {
		return SignalEvent{}, false
	}

	ev := SignalEvent{Name: member}
	switch member {
	case SignalReapplied:
		if len(sig.Body) < 4 {
			return SignalEvent{}, false
		}
		var okT, okR, okB, okE bool
		ev.Trigger, okT = sig.Body[0].(string)
		ev.Revision, okR = sig.Body[1].(string)
		ev.OK, okB = sig.Body[2].(bool)
		ev.Error, okE = sig.Body[3].(string)
		if !okT || !okR || !okB || !okE {
			return SignalEvent{}, false
		}
	case SignalDesiredChanged:
		if len(sig.Body) < 1 {
			return SignalEvent{}, false
		}
		if ev.Revision, ok = sig.Body[0].(string); !ok {
			return SignalEvent{}, false
		}
		ev.OK = true
	default:
		return SignalEvent{}, false
	}
	return ev, true
}

// Stop stops the monitor.
func (m *SignalMonitor) Stop() error {
	if m.conn == nil {
		return nil
	}
	m.conn.RemoveSignal(m.ch)
	close(m.ch)
	err := m.conn.Close()
	m.conn = nil
	return err
}
