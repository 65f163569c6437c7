package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Signal names emitted on the AVSession interface.
const (
	SignalReapplied      = "Reapplied"
	SignalDesiredChanged = "DesiredChanged"
)

// EmitReapplied emits the Reapplied signal.
// This signal is emitted after every reconciliation triggered by a service
// event, an expired override or enabling auto-reapply.
func (s *Server) EmitReapplied(trigger, revision string, ok bool, errMsg string) error {
	conn := s.Connection()
	if conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := conn.Emit(Path, Interface+"."+SignalReapplied, trigger, revision, ok, errMsg); err != nil {
		return fmt.Errorf("failed to emit Reapplied signal: %w", err)
	}

	s.logger.Debug("emitted Reapplied signal", "trigger", trigger, "revision", revision, "ok", ok)
	return nil
}

// EmitDesiredChanged emits the DesiredChanged signal after a successful Set.
func (s *Server) EmitDesiredChanged(revision string) error {
	conn := s.Connection()
	if conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := conn.Emit(Path, Interface+"."+SignalDesiredChanged, revision); err != nil {
		return fmt.Errorf("failed to emit DesiredChanged signal: %w", err)
	}

	s.logger.Debug("emitted DesiredChanged signal", "revision", revision)
	return nil
}

// Connection returns the underlying D-Bus connection.
// This can be used for advanced operations like calling methods on other services.
func (s *Server) Connection() *dbus.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}
