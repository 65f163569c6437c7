package audiosvc

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/jmylchreest/avsessiond/internal/model"
)

// Simulated is an in-process audio service driven by a Profile. It keeps
// session state the way the platform service does, delivers notifications
// on its Dispatcher and lets callers inject failures and events.
type Simulated struct {
	mu         sync.Mutex
	logger     *slog.Logger
	dispatcher *Dispatcher

	profile Profile
	inputs  []*simDevice

	// Session state
	category    model.Category
	mode        model.Mode
	options     model.OptionSet
	sampleRate  float64
	ioBuffer    time.Duration
	preferred   *simDevice
	orientation *model.Orientation
	active      bool

	// Subscriptions
	subscribers map[int]EventHandler
	nextSubID   int

	// Test hooks
	failures    map[model.Step]error
	snapshotErr error
	calls       []string
}

// NewSimulated creates a simulated service for profile. The dispatcher is
// used for notification delivery; the caller owns its lifecycle.
func NewSimulated(profile Profile, dispatcher *Dispatcher, logger *slog.Logger) *Simulated {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Simulated{
		logger:      logger,
		dispatcher:  dispatcher,
		subscribers: make(map[int]EventHandler),
		failures:    make(map[model.Step]error),
	}
	s.profile = profile
	s.inputs = s.buildInputs(profile)
	s.resetLocked()
	return s
}

// Dispatcher returns the queue notifications are delivered on.
func (s *Simulated) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// After implements Scheduler on the notification queue.
func (s *Simulated) After(d time.Duration, fn func()) func() bool {
	return s.dispatcher.After(d, fn)
}

// ApplyCategory sets category, mode and options in one call.
func (s *Simulated) ApplyCategory(category model.Category, mode model.Mode, options model.OptionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("ApplyCategory")
	if err := s.failures[model.StepCategory]; err != nil {
		return err
	}
	s.category = category
	s.mode = mode
	s.options = options
	return nil
}

// SetPreferredSampleRate selects the supported rate nearest to hz.
func (s *Simulated) SetPreferredSampleRate(hz float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("SetPreferredSampleRate")
	if err := s.failures[model.StepSampleRate]; err != nil {
		return err
	}
	best := hz
	for i, sr := range s.profile.SampleRates {
		if i == 0 || math.Abs(sr-hz) < math.Abs(best-hz) {
			best = sr
		}
	}
	s.sampleRate = best
	return nil
}

// SetPreferredIOBufferDuration clamps d into the profile's range.
func (s *Simulated) SetPreferredIOBufferDuration(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("SetPreferredIOBufferDuration")
	if err := s.failures[model.StepIOBufferDuration]; err != nil {
		return err
	}
	lo, hi := seconds(s.profile.IOBuffer.Min), seconds(s.profile.IOBuffer.Max)
	s.ioBuffer = min(max(d, lo), hi)
	return nil
}

// AvailableInputs lists the profile's input ports.
func (s *Simulated) AvailableInputs() ([]Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("AvailableInputs")
	devices := make([]Device, len(s.inputs))
	for i, in := range s.inputs {
		devices[i] = in
	}
	return devices, nil
}

// SetPreferredInput selects one of the available inputs.
func (s *Simulated) SetPreferredInput(d Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("SetPreferredInput")
	if err := s.failures[model.StepPreferredInput]; err != nil {
		return err
	}
	dev, ok := d.(*simDevice)
	if !ok || dev.sim != s {
		return fmt.Errorf("device %q does not belong to this session", d.Name())
	}
	s.preferred = dev
	return nil
}

// PreferredInput returns the preferred input or nil.
func (s *Simulated) PreferredInput() Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.preferred == nil {
		return nil
	}
	return s.preferred
}

// SetPreferredInputOrientation records the stereo orientation.
func (s *Simulated) SetPreferredInputOrientation(o model.Orientation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("SetPreferredInputOrientation")
	if err := s.failures[model.StepInputOrientation]; err != nil {
		return err
	}
	s.orientation = &o
	return nil
}

// SetActive activates or deactivates the session.
func (s *Simulated) SetActive(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("SetActive")
	if err := s.failures[model.StepActive]; err != nil {
		return err
	}
	s.active = active
	return nil
}

// Snapshot reports the current session state.
func (s *Simulated) Snapshot() (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshotErr != nil {
		return model.Snapshot{}, s.snapshotErr
	}

	snap := model.Snapshot{
		Category:         s.category.String(),
		Mode:             s.mode.String(),
		SampleRate:       s.sampleRate,
		IOBufferDuration: s.ioBuffer.Seconds(),
		IOBufferFrames:   beep.SampleRate(int(s.sampleRate)).N(s.ioBuffer),
		Route:            s.profile.OutputRoute,
		Active:           s.active,
		Options:          s.options.Names(),
	}
	if s.preferred != nil {
		snap.PreferredInput = s.preferred.name
		if ds := s.preferred.selected; ds != nil {
			snap.DataSource = ds.name
			if ds.pattern != nil {
				snap.PolarPattern = ds.pattern.String()
			}
		}
	}
	if s.orientation != nil {
		snap.InputOrientation = s.orientation.String()
	}
	return snap, nil
}

// Subscribe registers handler for every event kind.
func (s *Simulated) Subscribe(handler EventHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = handler

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Emit queues an event for every subscriber.
func (s *Simulated) Emit(kind EventKind, reason string) {
	s.mu.Lock()
	handlers := make([]EventHandler, 0, len(s.subscribers))
	for _, h := range s.subscribers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	ev := Event{Kind: kind, Reason: reason, At: time.Now()}
	s.logger.Debug("emitting audio service event", "kind", kind, "reason", reason, "subscribers", len(handlers))
	for _, h := range handlers {
		if !s.dispatcher.Post(func() { h(ev) }) {
			s.logger.Warn("dropped audio service event, dispatcher not running", "kind", kind)
		}
	}
}

// Interrupt deactivates the session as another client would and emits an
// interruption.
func (s *Simulated) Interrupt() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	s.Emit(EventInterruption, "began")
}

// ResetMediaServices discards all session state and emits a reset.
func (s *Simulated) ResetMediaServices() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	s.Emit(EventMediaServicesReset, "servicesReset")
}

// SetOutputRoute changes the active output port and emits a route change.
func (s *Simulated) SetOutputRoute(route string) {
	s.mu.Lock()
	s.profile.OutputRoute = route
	s.mu.Unlock()

	s.Emit(EventRouteChange, "override")
}

// ReplaceProfile swaps the hardware description, as when a device is
// plugged or unplugged, and emits a route change. The preferred input is
// kept only if a port with the same name and type still exists.
func (s *Simulated) ReplaceProfile(profile Profile) {
	s.mu.Lock()
	var keep string
	if s.preferred != nil {
		keep = s.preferred.name + "\x00" + string(s.preferred.portType)
	}
	s.profile = profile
	s.inputs = s.buildInputs(profile)
	s.preferred = nil
	for _, in := range s.inputs {
		if in.name+"\x00"+string(in.portType) == keep {
			s.preferred = in
		}
	}
	s.mu.Unlock()

	s.Emit(EventRouteChange, "newDeviceAvailable")
}

// Inject simulates a platform event of the given kind.
func (s *Simulated) Inject(kind EventKind) error {
	switch kind {
	case EventRouteChange:
		s.Emit(EventRouteChange, "injected")
	case EventInterruption:
		s.Interrupt()
	case EventMediaServicesReset:
		s.ResetMediaServices()
	default:
		return fmt.Errorf("cannot inject event %q", kind)
	}
	return nil
}

// InjectEvent parses spec and injects the event it names. A spec is an
// event kind, optionally followed by ":port" for a route change, as in
// "routeChange:headphones", which moves the output route before notifying.
func (s *Simulated) InjectEvent(spec string) error {
	name, port, hasPort := strings.Cut(spec, ":")
	kind, ok := ParseEventKind(name)
	if !ok {
		return model.NewInvalidValue("event", spec)
	}
	if !hasPort {
		return s.Inject(kind)
	}
	if kind != EventRouteChange || port == "" {
		return model.NewInvalidValue("event", spec)
	}
	s.SetOutputRoute(port)
	return nil
}

// FailOn makes every call for step fail with err until cleared with a nil
// err.
func (s *Simulated) FailOn(step model.Step, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, step)
		return
	}
	s.failures[step] = err
}

// FailSnapshot makes Snapshot fail with err until cleared with nil.
func (s *Simulated) FailSnapshot(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotErr = err
}

// Calls returns the names of the service methods invoked so far.
func (s *Simulated) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ResetCalls clears the call log.
func (s *Simulated) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Simulated) record(call string) {
	s.calls = append(s.calls, call)
}

// resetLocked restores platform defaults. Callers hold s.mu.
func (s *Simulated) resetLocked() {
	s.category = model.CategorySoloAmbient
	s.mode = model.ModeDefault
	s.options = 0
	s.sampleRate = 0
	if len(s.profile.SampleRates) > 0 {
		s.sampleRate = s.profile.SampleRates[0]
	}
	s.ioBuffer = s.profile.defaultBuffer()
	s.preferred = nil
	s.orientation = nil
	s.active = false
	for _, in := range s.inputs {
		in.selected = nil
		for _, ds := range in.sources {
			ds.pattern = nil
		}
	}
}

func (s *Simulated) buildInputs(profile Profile) []*simDevice {
	inputs := make([]*simDevice, 0, len(profile.Inputs))
	for _, in := range profile.Inputs {
		dev := &simDevice{sim: s, name: in.Name, portType: model.PortType(in.Type)}
		for _, dsp := range in.DataSources {
			ds := &simDataSource{sim: s, name: dsp.Name}
			for _, name := range dsp.Patterns {
				if p, ok := model.ParsePolarPattern(name); ok {
					ds.patterns = append(ds.patterns, p)
				}
			}
			dev.sources = append(dev.sources, ds)
		}
		inputs = append(inputs, dev)
	}
	return inputs
}

type simDevice struct {
	sim      *Simulated
	name     string
	portType model.PortType
	sources  []*simDataSource
	selected *simDataSource
}

func (d *simDevice) Name() string { return d.name }

func (d *simDevice) PortType() model.PortType { return d.portType }

func (d *simDevice) DataSources() []DataSource {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()

	sources := make([]DataSource, len(d.sources))
	for i, ds := range d.sources {
		sources[i] = ds
	}
	return sources
}

func (d *simDevice) SetPreferredDataSource(ds DataSource) error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()

	d.sim.record("SetPreferredDataSource")
	if err := d.sim.failures[model.StepDataSource]; err != nil {
		return err
	}
	for _, own := range d.sources {
		if own == ds {
			d.selected = own
			return nil
		}
	}
	return fmt.Errorf("data source %q does not belong to %q", ds.Name(), d.name)
}

type simDataSource struct {
	sim      *Simulated
	name     string
	patterns []model.PolarPattern
	pattern  *model.PolarPattern
}

func (ds *simDataSource) Name() string { return ds.name }

func (ds *simDataSource) SupportedPolarPatterns() []model.PolarPattern {
	return append([]model.PolarPattern(nil), ds.patterns...)
}

func (ds *simDataSource) SetPreferredPolarPattern(p model.PolarPattern) error {
	ds.sim.mu.Lock()
	defer ds.sim.mu.Unlock()

	ds.sim.record("SetPreferredPolarPattern")
	if err := ds.sim.failures[model.StepDataSource]; err != nil {
		return err
	}
	supported := false
	for _, own := range ds.patterns {
		if own == p {
			supported = true
		}
	}
	if !supported {
		return fmt.Errorf("pattern %s not supported by %q", p, ds.name)
	}
	ds.pattern = &p
	return nil
}

var _ Service = (*Simulated)(nil)
var _ Scheduler = (*Simulated)(nil)
