package model

import "strings"

// Category is the native audio-session category.
type Category int

// Session categories.
const (
	CategoryAmbient Category = iota
	CategorySoloAmbient
	CategoryPlayback
	CategoryRecord
	CategoryPlayAndRecord
	CategoryMultiRoute
)

var categoryNames = map[Category]string{
	CategoryAmbient:       "ambient",
	CategorySoloAmbient:   "soloAmbient",
	CategoryPlayback:      "playback",
	CategoryRecord:        "record",
	CategoryPlayAndRecord: "playAndRecord",
	CategoryMultiRoute:    "multiRoute",
}

// String returns the canonical category name.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return Unknown
}

// Mode is the native audio-session mode.
type Mode int

// Session modes.
const (
	ModeDefault Mode = iota
	ModeVoiceChat
	ModeVideoRecording
	ModeMeasurement
	ModeMoviePlayback
	ModeSpokenAudio
	ModeGameChat
)

var modeNames = map[Mode]string{
	ModeDefault:        "default",
	ModeVoiceChat:      "voiceChat",
	ModeVideoRecording: "videoRecording",
	ModeMeasurement:    "measurement",
	ModeMoviePlayback:  "moviePlayback",
	ModeSpokenAudio:    "spokenAudio",
	ModeGameChat:       "gameChat",
}

// String returns the canonical mode name.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return Unknown
}

// Option is a single category option flag.
type Option uint32

// Category options. Values are bit flags so they combine into an OptionSet.
const (
	OptionMixWithOthers Option = 1 << iota
	OptionDuckOthers
	OptionAllowBluetooth
	OptionAllowBluetoothA2DP
	OptionDefaultToSpeaker
	OptionInterruptSpokenAudioAndMixWithOthers
	OptionAllowAirPlay
)

// allOptions lists every option in canonical order.
var allOptions = []Option{
	OptionMixWithOthers,
	OptionDuckOthers,
	OptionAllowBluetooth,
	OptionAllowBluetoothA2DP,
	OptionDefaultToSpeaker,
	OptionInterruptSpokenAudioAndMixWithOthers,
	OptionAllowAirPlay,
}

var optionNames = map[Option]string{
	OptionMixWithOthers:                        "mixWithOthers",
	OptionDuckOthers:                           "duckOthers",
	OptionAllowBluetooth:                       "allowBluetooth",
	OptionAllowBluetoothA2DP:                   "allowBluetoothA2DP",
	OptionDefaultToSpeaker:                     "defaultToSpeaker",
	OptionInterruptSpokenAudioAndMixWithOthers: "interruptSpokenAudioAndMixWithOthers",
	OptionAllowAirPlay:                         "allowAirPlay",
}

// String returns the canonical option name.
func (o Option) String() string {
	if name, ok := optionNames[o]; ok {
		return name
	}
	return Unknown
}

// OptionSet is an unordered set of options.
type OptionSet uint32

// NewOptionSet builds a set from the given options. Duplicates collapse.
func NewOptionSet(opts ...Option) OptionSet {
	var s OptionSet
	for _, o := range opts {
		s = s.With(o)
	}
	return s
}

// With returns a copy of the set including o.
func (s OptionSet) With(o Option) OptionSet {
	return s | OptionSet(o)
}

// Has reports whether o is in the set.
func (s OptionSet) Has(o Option) bool {
	return s&OptionSet(o) != 0
}

// Options returns the members in canonical order.
func (s OptionSet) Options() []Option {
	opts := make([]Option, 0, len(allOptions))
	for _, o := range allOptions {
		if s.Has(o) {
			opts = append(opts, o)
		}
	}
	return opts
}

// Names returns the canonical member names in canonical order.
func (s OptionSet) Names() []string {
	opts := s.Options()
	names := make([]string, len(opts))
	for i, o := range opts {
		names[i] = o.String()
	}
	return names
}

// String joins the member names with commas.
func (s OptionSet) String() string {
	return strings.Join(s.Names(), ",")
}

// Orientation is the stereo input orientation.
type Orientation int

// Stereo orientations.
const (
	OrientationNone Orientation = iota
	OrientationPortrait
	OrientationPortraitUpsideDown
	OrientationLandscapeLeft
	OrientationLandscapeRight
)

var orientationNames = map[Orientation]string{
	OrientationNone:               "none",
	OrientationPortrait:           "portrait",
	OrientationPortraitUpsideDown: "portraitUpsideDown",
	OrientationLandscapeLeft:      "landscapeLeft",
	OrientationLandscapeRight:     "landscapeRight",
}

// String returns the canonical orientation name.
func (o Orientation) String() string {
	if name, ok := orientationNames[o]; ok {
		return name
	}
	return Unknown
}

// PolarPattern is a microphone polar pattern.
type PolarPattern int

// Polar patterns a data source may advertise. Only PolarPatternStereo can be
// requested.
const (
	PolarPatternOmnidirectional PolarPattern = iota
	PolarPatternCardioid
	PolarPatternSubcardioid
	PolarPatternStereo
)

var polarPatternNames = map[PolarPattern]string{
	PolarPatternOmnidirectional: "omnidirectional",
	PolarPatternCardioid:        "cardioid",
	PolarPatternSubcardioid:     "subcardioid",
	PolarPatternStereo:          "stereo",
}

// String returns the canonical pattern name.
func (p PolarPattern) String() string {
	if name, ok := polarPatternNames[p]; ok {
		return name
	}
	return Unknown
}

// ParsePolarPattern parses any advertised pattern name (case-insensitive).
// It is used for device descriptions, not for requests.
func ParsePolarPattern(s string) (PolarPattern, bool) {
	for p, name := range polarPatternNames {
		if strings.EqualFold(name, s) {
			return p, true
		}
	}
	return 0, false
}

// PortType identifies the kind of an input or output port.
type PortType string

// Port types known to the service.
const (
	PortBuiltInMic      PortType = "builtInMic"
	PortHeadsetMic      PortType = "headsetMic"
	PortBluetoothHFP    PortType = "bluetoothHFP"
	PortUSBAudio        PortType = "usbAudio"
	PortLineIn          PortType = "lineIn"
	PortBuiltInSpeaker  PortType = "speaker"
	PortBuiltInReceiver PortType = "receiver"
	PortHeadphones      PortType = "headphones"
	PortBluetoothA2DP   PortType = "bluetoothA2DP"
	PortAirPlay         PortType = "airPlay"
)

// Unknown is reported for any snapshot field the service could not provide.
const Unknown = "unknown"
