package mapper

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/avsessiond/internal/model"
)

func assertInvalid(t *testing.T, err error, field, value string) {
	t.Helper()
	var invalid *model.InvalidValueError
	require.True(t, errors.As(err, &invalid), "expected InvalidValueError, got %v", err)
	assert.Equal(t, field, invalid.Field)
	assert.Equal(t, value, invalid.Value)
}

func TestMapCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected model.Category
	}{
		{"ambient", model.CategoryAmbient},
		{"soloAmbient", model.CategorySoloAmbient},
		{"solo-ambient", model.CategorySoloAmbient},
		{"SOLOAMBIENT", model.CategorySoloAmbient},
		{"playback", model.CategoryPlayback},
		{"record", model.CategoryRecord},
		{"recording", model.CategoryRecord},
		{"playAndRecord", model.CategoryPlayAndRecord},
		{"play-and-record", model.CategoryPlayAndRecord},
		{"play_record", model.CategoryPlayAndRecord},
		{"multiRoute", model.CategoryMultiRoute},
		{"Multi-Route", model.CategoryMultiRoute},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := MapCategory(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMapCategory_Unknown(t *testing.T) {
	for _, input := range []string{"", "karaoke", "play and record", "solo ambient", "playbackk"} {
		t.Run(input, func(t *testing.T) {
			_, err := MapCategory(input)
			assertInvalid(t, err, FieldCategory, input)
		})
	}
}

func TestMapCategory_CanonicalNamesRoundTrip(t *testing.T) {
	for c := model.CategoryAmbient; c <= model.CategoryMultiRoute; c++ {
		got, err := MapCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestMapMode(t *testing.T) {
	tests := []struct {
		input    string
		expected model.Mode
	}{
		{"default", model.ModeDefault},
		{"voiceChat", model.ModeVoiceChat},
		{"voice-chat", model.ModeVoiceChat},
		{"videoRecording", model.ModeVideoRecording},
		{"video-recording", model.ModeVideoRecording},
		{"measurement", model.ModeMeasurement},
		{"moviePlayback", model.ModeMoviePlayback},
		{"movie-playback", model.ModeMoviePlayback},
		{"SPOKENAUDIO", model.ModeSpokenAudio},
		{"spoken-audio", model.ModeSpokenAudio},
		{"gameChat", model.ModeGameChat},
		{"game-chat", model.ModeGameChat},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := MapMode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := MapMode("karaoke")
	assertInvalid(t, err, FieldMode, "karaoke")
}

func TestMapOptions(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []model.Option
	}{
		{
			name:     "empty",
			input:    nil,
			expected: []model.Option{},
		},
		{
			name:     "aliases",
			input:    []string{"mix", "duck", "bt", "a2dp", "speaker", "interruptspokes", "airplay"},
			expected: []model.Option{model.OptionMixWithOthers, model.OptionDuckOthers, model.OptionAllowBluetooth, model.OptionAllowBluetoothA2DP, model.OptionDefaultToSpeaker, model.OptionInterruptSpokenAudioAndMixWithOthers, model.OptionAllowAirPlay},
		},
		{
			name:     "order insensitive",
			input:    []string{"allowBluetoothA2DP", "defaultToSpeaker"},
			expected: []model.Option{model.OptionAllowBluetoothA2DP, model.OptionDefaultToSpeaker},
		},
		{
			name:     "duplicates collapse",
			input:    []string{"mixWithOthers", "MIX", "mixwithothers"},
			expected: []model.Option{model.OptionMixWithOthers},
		},
		{
			name:     "full name",
			input:    []string{"interruptSpokenAudioAndMixWithOthers"},
			expected: []model.Option{model.OptionInterruptSpokenAudioAndMixWithOthers},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MapOptions(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.Options())
		})
	}

	forward, err := MapOptions([]string{"duck", "speaker"})
	require.NoError(t, err)
	reverse, err := MapOptions([]string{"speaker", "duck"})
	require.NoError(t, err)
	assert.Equal(t, forward, reverse)
}

func TestMapOptions_UnknownFailsWholeList(t *testing.T) {
	_, err := MapOptions([]string{"mix", "surround", "duck"})
	assertInvalid(t, err, FieldOptions, "surround")
}

func TestMapOrientation(t *testing.T) {
	tests := []struct {
		input    string
		expected model.Orientation
	}{
		{"portrait", model.OrientationPortrait},
		{"portraitUpsideDown", model.OrientationPortraitUpsideDown},
		{"portrait-upside-down", model.OrientationPortraitUpsideDown},
		{"landscapeLeft", model.OrientationLandscapeLeft},
		{"landscape-left", model.OrientationLandscapeLeft},
		{"landscapeRight", model.OrientationLandscapeRight},
		{"landscape-right", model.OrientationLandscapeRight},
		{"none", model.OrientationNone},
		{"default", model.OrientationNone},
		{"front", model.OrientationPortrait},
		{"back", model.OrientationPortrait},
		{"top", model.OrientationPortrait},
		{"bottom", model.OrientationPortrait},
		{"left", model.OrientationLandscapeLeft},
		{"right", model.OrientationLandscapeRight},
		{"faceUp", model.OrientationPortrait},
		{"face-up", model.OrientationPortrait},
		{"faceDown", model.OrientationPortraitUpsideDown},
		{"FACE-DOWN", model.OrientationPortraitUpsideDown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := MapOrientation(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := MapOrientation("sideways")
	assertInvalid(t, err, FieldInputOrientation, "sideways")
}

func TestMapPreferredInputAndPattern(t *testing.T) {
	p, err := MapPreferredInput("builtInMic")
	require.NoError(t, err)
	assert.Equal(t, model.PortBuiltInMic, p)

	_, err = MapPreferredInput("headsetMic")
	assertInvalid(t, err, FieldPreferredInput, "headsetMic")

	pattern, err := MapPolarPattern("Stereo")
	require.NoError(t, err)
	assert.Equal(t, model.PolarPatternStereo, pattern)

	_, err = MapPolarPattern("cardioid")
	assertInvalid(t, err, FieldPolarPattern, "cardioid")
}

func ptr[T any](v T) *T { return &v }

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(model.Request{Category: "playback"})
	require.NoError(t, err)

	assert.Equal(t, model.CategoryPlayback, cfg.Category)
	assert.Equal(t, model.ModeDefault, cfg.Mode)
	assert.True(t, cfg.Active)
	assert.Zero(t, cfg.Options)
	assert.Zero(t, cfg.SampleRate)
	assert.Zero(t, cfg.IOBufferDuration)
	assert.Nil(t, cfg.InputOrientation)
	assert.Empty(t, cfg.PreferredInput)
	assert.Nil(t, cfg.Stereo)
}

func TestResolve_AllFields(t *testing.T) {
	cfg, err := Resolve(model.Request{
		Category:         "playAndRecord",
		Options:          []string{"defaultToSpeaker", "a2dp"},
		Mode:             "videoRecording",
		Active:           ptr(false),
		SampleRate:       ptr(48000.0),
		IOBufferDuration: ptr(0.005),
		InputOrientation: "front",
		PreferredInput:   "builtInMic",
		DataSourceName:   "bottom",
		PolarPattern:     "stereo",
	})
	require.NoError(t, err)

	assert.Equal(t, model.CategoryPlayAndRecord, cfg.Category)
	assert.Equal(t, model.ModeVideoRecording, cfg.Mode)
	assert.True(t, cfg.Options.Has(model.OptionDefaultToSpeaker))
	assert.True(t, cfg.Options.Has(model.OptionAllowBluetoothA2DP))
	assert.False(t, cfg.Active)
	assert.Equal(t, 48000.0, cfg.SampleRate)
	assert.Equal(t, 5*time.Millisecond, cfg.IOBufferDuration)
	require.NotNil(t, cfg.InputOrientation)
	assert.Equal(t, model.OrientationPortrait, *cfg.InputOrientation)
	assert.Equal(t, model.PortBuiltInMic, cfg.PreferredInput)
	require.NotNil(t, cfg.Stereo)
	assert.Equal(t, "bottom", cfg.Stereo.DataSourceName)
	assert.Equal(t, model.PolarPatternStereo, cfg.Stereo.Pattern)
}

func TestResolve_StereoNeedsBothFields(t *testing.T) {
	tests := []struct {
		name string
		req  model.Request
	}{
		{"pattern only", model.Request{Category: "record", PolarPattern: "stereo"}},
		{"data source only", model.Request{Category: "record", DataSourceName: "front"}},
		{"unrequestable pattern only", model.Request{Category: "record", PolarPattern: "cardioid"}},
		{"unknown pattern only", model.Request{Category: "record", PolarPattern: "bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Resolve(tt.req)
			require.NoError(t, err)
			assert.Nil(t, cfg.Stereo)
		})
	}
}

func TestResolve_FailsFastOnFirstInvalidField(t *testing.T) {
	tests := []struct {
		name  string
		req   model.Request
		field string
		value string
	}{
		{
			name:  "category before mode",
			req:   model.Request{Category: "bogus", Mode: "alsobogus"},
			field: FieldCategory,
			value: "bogus",
		},
		{
			name:  "mode before options",
			req:   model.Request{Category: "playback", Mode: "alsobogus", Options: []string{"nope"}},
			field: FieldMode,
			value: "alsobogus",
		},
		{
			name:  "options before orientation",
			req:   model.Request{Category: "playback", Options: []string{"nope"}, InputOrientation: "sideways"},
			field: FieldOptions,
			value: "nope",
		},
		{
			name:  "invalid pattern with data source",
			req:   model.Request{Category: "record", DataSourceName: "front", PolarPattern: "cardioid"},
			field: FieldPolarPattern,
			value: "cardioid",
		},
		{
			name:  "zero sample rate",
			req:   model.Request{Category: "record", SampleRate: ptr(0.0)},
			field: FieldSampleRate,
			value: "0",
		},
		{
			name:  "negative buffer",
			req:   model.Request{Category: "record", IOBufferDuration: ptr(-0.01)},
			field: FieldIOBufferDuration,
			value: "-0.01",
		},
		{
			name:  "buffer beyond duration range",
			req:   model.Request{Category: "record", IOBufferDuration: ptr(1e300)},
			field: FieldIOBufferDuration,
			value: "1e+300",
		},
		{
			name:  "buffer at duration limit",
			req:   model.Request{Category: "record", IOBufferDuration: ptr(9.3e9)},
			field: FieldIOBufferDuration,
			value: "9.3e+09",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.req)
			assertInvalid(t, err, tt.field, tt.value)
			assert.True(t, model.IsCallerError(err))
		})
	}
}

func TestResolve_RequestRoundTrip(t *testing.T) {
	original := model.Request{
		Category:         "PLAY-AND-RECORD",
		Options:          []string{"speaker", "mix", "speaker"},
		Mode:             "voice-chat",
		SampleRate:       ptr(44100.0),
		InputOrientation: "left",
		PreferredInput:   "builtinmic",
		DataSourceName:   "Front",
		PolarPattern:     "STEREO",
	}
	cfg, err := Resolve(original)
	require.NoError(t, err)

	canonical := cfg.Request()
	assert.Equal(t, "playAndRecord", canonical.Category)
	assert.Equal(t, "voiceChat", canonical.Mode)
	assert.Equal(t, "mixWithOthers,defaultToSpeaker", strings.Join(canonical.Options, ","))
	assert.Equal(t, "landscapeLeft", canonical.InputOrientation)
	assert.Equal(t, "builtInMic", canonical.PreferredInput)
	assert.Equal(t, "Front", canonical.DataSourceName)
	assert.Equal(t, "stereo", canonical.PolarPattern)

	again, err := Resolve(canonical)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
