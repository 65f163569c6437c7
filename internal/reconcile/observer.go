package reconcile

import (
	"log/slog"

	"github.com/jmylchreest/avsessiond/internal/store"
)

// Entry converts the attempt to a history entry.
func (a Attempt) Entry() store.Entry {
	e := store.Entry{
		Trigger:  string(a.Trigger),
		Reason:   a.Reason,
		Revision: a.Revision,
		At:       a.At,
		Duration: a.Duration,
		OK:       a.Err == nil,
	}
	if a.Err != nil {
		e.Error = a.Err.Error()
	}
	return e
}

// Record returns an observer that appends every attempt to h.
func Record(h *store.History, logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(a Attempt) {
		if _, err := h.Add(a.Entry()); err != nil {
			logger.Debug("attempt not recorded", "trigger", a.Trigger, "error", err)
		}
	}
}

// Observers fans each attempt out to every observer in order.
func Observers(observers ...Observer) Observer {
	return func(a Attempt) {
		for _, o := range observers {
			if o != nil {
				o(a)
			}
		}
	}
}
