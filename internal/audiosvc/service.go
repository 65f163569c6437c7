// Package audiosvc defines the audio service the reconciliation engine
// drives, the serial dispatch queue notifications are delivered on, and a
// simulated service backed by a device profile.
package audiosvc

import (
	"time"

	"github.com/jmylchreest/avsessiond/internal/model"
)

// EventKind identifies why the service invalidated the session policy.
type EventKind string

const (
	// EventRouteChange is emitted when an input or output route changes.
	EventRouteChange EventKind = "routeChange"
	// EventInterruption is emitted when another client interrupts the session.
	EventInterruption EventKind = "interruption"
	// EventMediaServicesReset is emitted after the audio service restarted
	// and discarded all session state.
	EventMediaServicesReset EventKind = "mediaServicesReset"
	// EventOverrideExpired is not emitted by the service. It labels a
	// deferred restore after a temporary override.
	EventOverrideExpired EventKind = "overrideExpired"
)

// ParseEventKind parses the name of a service event.
func ParseEventKind(s string) (EventKind, bool) {
	switch EventKind(s) {
	case EventRouteChange, EventInterruption, EventMediaServicesReset:
		return EventKind(s), true
	}
	switch s {
	case "route-change":
		return EventRouteChange, true
	case "media-services-reset", "service-reset", "reset":
		return EventMediaServicesReset, true
	}
	return "", false
}

// Event is a notification delivered to subscribers.
type Event struct {
	Kind   EventKind
	Reason string // free-form detail, e.g. "newDeviceAvailable"
	At     time.Time
}

// EventHandler receives service notifications on the dispatch queue.
type EventHandler func(Event)

// DataSource is a selectable microphone element of an input port.
type DataSource interface {
	Name() string
	SupportedPolarPatterns() []model.PolarPattern
	SetPreferredPolarPattern(model.PolarPattern) error
}

// Device is an input port.
type Device interface {
	Name() string
	PortType() model.PortType
	DataSources() []DataSource
	SetPreferredDataSource(DataSource) error
}

// Service is the platform audio session. Mutations are synchronous and
// never deliver notifications on the caller's goroutine.
type Service interface {
	ApplyCategory(category model.Category, mode model.Mode, options model.OptionSet) error
	SetPreferredSampleRate(hz float64) error
	SetPreferredIOBufferDuration(d time.Duration) error
	AvailableInputs() ([]Device, error)
	SetPreferredInput(Device) error
	// PreferredInput returns nil when no input is preferred.
	PreferredInput() Device
	SetPreferredInputOrientation(model.Orientation) error
	SetActive(active bool) error
	Snapshot() (model.Snapshot, error)
	// Subscribe registers handler for all event kinds. The returned function
	// removes the subscription.
	Subscribe(handler EventHandler) (unsubscribe func())
}

// Scheduler runs deferred work on the same queue that delivers events.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func() bool)
}
