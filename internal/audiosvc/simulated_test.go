package audiosvc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/avsessiond/internal/model"
)

func newTestSimulated(t *testing.T) *Simulated {
	t.Helper()
	d := NewDispatcher(nil)
	d.Start()
	t.Cleanup(d.Stop)
	return NewSimulated(DefaultProfile(), d, nil)
}

func TestSimulated_InitialSnapshot(t *testing.T) {
	s := newTestSimulated(t)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "soloAmbient", snap.Category)
	assert.Equal(t, "default", snap.Mode)
	assert.Equal(t, 44100.0, snap.SampleRate)
	assert.InDelta(t, 0.023, snap.IOBufferDuration, 1e-9)
	assert.Equal(t, 1014, snap.IOBufferFrames)
	assert.Equal(t, "speaker", snap.Route)
	assert.False(t, snap.Active)
	assert.Empty(t, snap.PreferredInput)
}

func TestSimulated_SampleRateNearest(t *testing.T) {
	tests := []struct {
		requested float64
		expected  float64
	}{
		{44100, 44100},
		{48000, 48000},
		{8000, 44100},
		{46000, 44100},
		{47000, 48000},
		{192000, 48000},
	}

	s := newTestSimulated(t)
	for _, tt := range tests {
		require.NoError(t, s.SetPreferredSampleRate(tt.requested))
		snap, err := s.Snapshot()
		require.NoError(t, err)
		assert.Equal(t, tt.expected, snap.SampleRate, "requested %v", tt.requested)
	}
}

func TestSimulated_IOBufferClamped(t *testing.T) {
	s := newTestSimulated(t)

	require.NoError(t, s.SetPreferredIOBufferDuration(time.Second))
	snap, _ := s.Snapshot()
	assert.InDelta(t, 0.093, snap.IOBufferDuration, 1e-9)

	require.NoError(t, s.SetPreferredIOBufferDuration(time.Microsecond))
	snap, _ = s.Snapshot()
	assert.InDelta(t, 0.0014, snap.IOBufferDuration, 1e-9)

	require.NoError(t, s.SetPreferredSampleRate(48000))
	require.NoError(t, s.SetPreferredIOBufferDuration(10*time.Millisecond))
	snap, _ = s.Snapshot()
	assert.Equal(t, 480, snap.IOBufferFrames)
}

func TestSimulated_StereoSelection(t *testing.T) {
	s := newTestSimulated(t)

	inputs, err := s.AvailableInputs()
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	mic := inputs[0]
	assert.Equal(t, model.PortBuiltInMic, mic.PortType())

	require.NoError(t, s.SetPreferredInput(mic))
	require.NotNil(t, s.PreferredInput())

	sources := mic.DataSources()
	require.Len(t, sources, 3)
	back := sources[2]
	assert.NotContains(t, back.SupportedPolarPatterns(), model.PolarPatternStereo)
	assert.Error(t, back.SetPreferredPolarPattern(model.PolarPatternStereo))

	bottom := sources[0]
	require.NoError(t, bottom.SetPreferredPolarPattern(model.PolarPatternStereo))
	require.NoError(t, mic.SetPreferredDataSource(bottom))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "Built-In Microphone", snap.PreferredInput)
	assert.Equal(t, "Bottom", snap.DataSource)
	assert.Equal(t, "stereo", snap.PolarPattern)
}

func TestSimulated_SetPreferredInputForeignDevice(t *testing.T) {
	a := newTestSimulated(t)
	b := newTestSimulated(t)

	inputs, err := b.AvailableInputs()
	require.NoError(t, err)
	assert.Error(t, a.SetPreferredInput(inputs[0]))
}

func TestSimulated_FailOn(t *testing.T) {
	s := newTestSimulated(t)
	boom := errors.New("boom")

	s.FailOn(model.StepActive, boom)
	assert.ErrorIs(t, s.SetActive(true), boom)

	s.FailOn(model.StepActive, nil)
	assert.NoError(t, s.SetActive(true))

	s.FailSnapshot(boom)
	_, err := s.Snapshot()
	assert.ErrorIs(t, err, boom)
}

func TestSimulated_CallLog(t *testing.T) {
	s := newTestSimulated(t)

	require.NoError(t, s.ApplyCategory(model.CategoryPlayback, model.ModeDefault, 0))
	require.NoError(t, s.SetActive(true))
	assert.Equal(t, []string{"ApplyCategory", "SetActive"}, s.Calls())

	s.ResetCalls()
	assert.Empty(t, s.Calls())
}

func TestSimulated_EventsDeliveredOnDispatcher(t *testing.T) {
	s := newTestSimulated(t)

	var got []Event
	unsubscribe := s.Subscribe(func(ev Event) { got = append(got, ev) })

	// Mutations never notify.
	require.NoError(t, s.ApplyCategory(model.CategoryPlayback, model.ModeDefault, 0))
	s.Dispatcher().Sync()
	assert.Empty(t, got)

	require.NoError(t, s.Inject(EventRouteChange))
	require.NoError(t, s.Inject(EventInterruption))
	require.NoError(t, s.Inject(EventMediaServicesReset))
	s.Dispatcher().Sync()

	require.Len(t, got, 3)
	assert.Equal(t, EventRouteChange, got[0].Kind)
	assert.Equal(t, EventInterruption, got[1].Kind)
	assert.Equal(t, EventMediaServicesReset, got[2].Kind)

	unsubscribe()
	s.Emit(EventRouteChange, "after unsubscribe")
	s.Dispatcher().Sync()
	assert.Len(t, got, 3)
}

func TestSimulated_InjectUnknown(t *testing.T) {
	s := newTestSimulated(t)
	assert.Error(t, s.Inject(EventOverrideExpired))
}

func TestSimulated_InjectEvent(t *testing.T) {
	tests := []struct {
		spec      string
		wantKind  EventKind
		wantRoute string
		wantErr   bool
	}{
		{spec: "routeChange", wantKind: EventRouteChange, wantRoute: "speaker"},
		{spec: "route-change:headphones", wantKind: EventRouteChange, wantRoute: "headphones"},
		{spec: "routeChange:bluetoothA2DP", wantKind: EventRouteChange, wantRoute: "bluetoothA2DP"},
		{spec: "interruption", wantKind: EventInterruption, wantRoute: "speaker"},
		{spec: "reset", wantKind: EventMediaServicesReset, wantRoute: "speaker"},
		{spec: "routeChange:", wantErr: true},
		{spec: "interruption:headphones", wantErr: true},
		{spec: "overrideExpired", wantErr: true},
		{spec: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			s := newTestSimulated(t)
			var got []Event
			s.Subscribe(func(ev Event) { got = append(got, ev) })

			err := s.InjectEvent(tt.spec)
			s.Dispatcher().Sync()

			snap, snapErr := s.Snapshot()
			require.NoError(t, snapErr)

			if tt.wantErr {
				var invalid *model.InvalidValueError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, "event", invalid.Field)
				assert.Empty(t, got)
				assert.Equal(t, "speaker", snap.Route)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantKind, got[0].Kind)
			assert.Equal(t, tt.wantRoute, snap.Route)
		})
	}
}

func TestSimulated_ResetMediaServices(t *testing.T) {
	s := newTestSimulated(t)

	require.NoError(t, s.ApplyCategory(model.CategoryPlayAndRecord, model.ModeVideoRecording, model.NewOptionSet(model.OptionAllowBluetooth)))
	require.NoError(t, s.SetActive(true))
	inputs, _ := s.AvailableInputs()
	require.NoError(t, s.SetPreferredInput(inputs[0]))

	s.ResetMediaServices()

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "soloAmbient", snap.Category)
	assert.Equal(t, "default", snap.Mode)
	assert.Empty(t, snap.Options)
	assert.False(t, snap.Active)
	assert.Nil(t, s.PreferredInput())
}

func TestSimulated_Interrupt(t *testing.T) {
	s := newTestSimulated(t)
	require.NoError(t, s.SetActive(true))

	s.Interrupt()

	snap, _ := s.Snapshot()
	assert.False(t, snap.Active)
}

func TestSimulated_ReplaceProfile(t *testing.T) {
	s := newTestSimulated(t)
	inputs, _ := s.AvailableInputs()
	require.NoError(t, s.SetPreferredInput(inputs[0]))

	// Same microphone is still present.
	s.ReplaceProfile(DefaultProfile())
	require.NotNil(t, s.PreferredInput())
	assert.Equal(t, "Built-In Microphone", s.PreferredInput().Name())

	// Microphone removed.
	p := DefaultProfile()
	p.Inputs = nil
	s.ReplaceProfile(p)
	assert.Nil(t, s.PreferredInput())
	inputs, err := s.AvailableInputs()
	require.NoError(t, err)
	assert.Empty(t, inputs)
}

func TestParseEventKind(t *testing.T) {
	tests := []struct {
		input    string
		expected EventKind
		ok       bool
	}{
		{"routeChange", EventRouteChange, true},
		{"route-change", EventRouteChange, true},
		{"interruption", EventInterruption, true},
		{"mediaServicesReset", EventMediaServicesReset, true},
		{"reset", EventMediaServicesReset, true},
		{"overrideExpired", "", false},
		{"bogus", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, ok := ParseEventKind(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, kind)
		})
	}
}
