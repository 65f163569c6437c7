// Package mapper translates portable session vocabularies into native
// audio-session enumerations.
//
// All lookups are case-insensitive against fixed tables. Unknown values
// fail with *model.InvalidValueError. The package has no state and no side
// effects.
package mapper

import (
	"strings"

	"github.com/jmylchreest/avsessiond/internal/model"
)

// Field names reported in InvalidValueError.
const (
	FieldCategory         = "category"
	FieldMode             = "mode"
	FieldOptions          = "options"
	FieldInputOrientation = "inputOrientation"
	FieldPreferredInput   = "preferredInput"
	FieldPolarPattern     = "polarPattern"
	FieldSampleRate       = "sampleRate"
	FieldIOBufferDuration = "ioBufferDuration"
)

var categories = map[string]model.Category{
	"ambient":         model.CategoryAmbient,
	"soloambient":     model.CategorySoloAmbient,
	"solo-ambient":    model.CategorySoloAmbient,
	"playback":        model.CategoryPlayback,
	"record":          model.CategoryRecord,
	"recording":       model.CategoryRecord,
	"playandrecord":   model.CategoryPlayAndRecord,
	"play-and-record": model.CategoryPlayAndRecord,
	"play_record":     model.CategoryPlayAndRecord,
	"multiroute":      model.CategoryMultiRoute,
	"multi-route":     model.CategoryMultiRoute,
}

var modes = map[string]model.Mode{
	"default":         model.ModeDefault,
	"voicechat":       model.ModeVoiceChat,
	"voice-chat":      model.ModeVoiceChat,
	"videorecording":  model.ModeVideoRecording,
	"video-recording": model.ModeVideoRecording,
	"measurement":     model.ModeMeasurement,
	"movieplayback":   model.ModeMoviePlayback,
	"movie-playback":  model.ModeMoviePlayback,
	"spokenaudio":     model.ModeSpokenAudio,
	"spoken-audio":    model.ModeSpokenAudio,
	"gamechat":        model.ModeGameChat,
	"game-chat":       model.ModeGameChat,
}

var options = map[string]model.Option{
	"mixwithothers":                        model.OptionMixWithOthers,
	"mix":                                  model.OptionMixWithOthers,
	"duckothers":                           model.OptionDuckOthers,
	"duck":                                 model.OptionDuckOthers,
	"allowbluetooth":                       model.OptionAllowBluetooth,
	"bt":                                   model.OptionAllowBluetooth,
	"allowbluetootha2dp":                   model.OptionAllowBluetoothA2DP,
	"a2dp":                                 model.OptionAllowBluetoothA2DP,
	"defaulttospeaker":                     model.OptionDefaultToSpeaker,
	"speaker":                              model.OptionDefaultToSpeaker,
	"interruptspokenaudioandmixwithothers": model.OptionInterruptSpokenAudioAndMixWithOthers,
	"interruptspokes":                      model.OptionInterruptSpokenAudioAndMixWithOthers,
	"allowairplay":                         model.OptionAllowAirPlay,
	"airplay":                              model.OptionAllowAirPlay,
}

// orientations maps the legacy directional names many-to-one onto the
// stereo orientation enum. Keep the table as is; clients depend on it.
var orientations = map[string]model.Orientation{
	"portrait":             model.OrientationPortrait,
	"portraitupsidedown":   model.OrientationPortraitUpsideDown,
	"portrait-upside-down": model.OrientationPortraitUpsideDown,
	"landscapeleft":        model.OrientationLandscapeLeft,
	"landscape-left":       model.OrientationLandscapeLeft,
	"landscaperight":       model.OrientationLandscapeRight,
	"landscape-right":      model.OrientationLandscapeRight,
	"none":                 model.OrientationNone,
	"default":              model.OrientationNone,

	// Legacy directional names
	"front":  model.OrientationPortrait,
	"back":   model.OrientationPortrait,
	"top":    model.OrientationPortrait,
	"bottom": model.OrientationPortrait,
	"left":   model.OrientationLandscapeLeft,
	"right":  model.OrientationLandscapeRight,

	// Legacy face names
	"faceup":    model.OrientationPortrait,
	"face-up":   model.OrientationPortrait,
	"facedown":  model.OrientationPortraitUpsideDown,
	"face-down": model.OrientationPortraitUpsideDown,
}

var preferredInputs = map[string]model.PortType{
	"builtinmic": model.PortBuiltInMic,
}

var requestablePatterns = map[string]model.PolarPattern{
	"stereo": model.PolarPatternStereo,
}

// MapCategory maps a category name.
func MapCategory(s string) (model.Category, error) {
	if c, ok := categories[strings.ToLower(s)]; ok {
		return c, nil
	}
	return 0, model.NewInvalidValue(FieldCategory, s)
}

// MapMode maps a mode name.
func MapMode(s string) (model.Mode, error) {
	if m, ok := modes[strings.ToLower(s)]; ok {
		return m, nil
	}
	return 0, model.NewInvalidValue(FieldMode, s)
}

// MapOptions maps a list of option names into a set. Order is irrelevant and
// duplicates collapse; the first unknown entry fails the whole list.
func MapOptions(list []string) (model.OptionSet, error) {
	var set model.OptionSet
	for _, raw := range list {
		o, ok := options[strings.ToLower(raw)]
		if !ok {
			return 0, model.NewInvalidValue(FieldOptions, raw)
		}
		set = set.With(o)
	}
	return set, nil
}

// MapOrientation maps a stereo orientation name, including legacy aliases.
func MapOrientation(s string) (model.Orientation, error) {
	if o, ok := orientations[strings.ToLower(s)]; ok {
		return o, nil
	}
	return 0, model.NewInvalidValue(FieldInputOrientation, s)
}

// MapPreferredInput maps a preferred input name to a port type.
func MapPreferredInput(s string) (model.PortType, error) {
	if p, ok := preferredInputs[strings.ToLower(s)]; ok {
		return p, nil
	}
	return "", model.NewInvalidValue(FieldPreferredInput, s)
}

// MapPolarPattern maps a requested polar pattern. Only stereo is accepted.
func MapPolarPattern(s string) (model.PolarPattern, error) {
	if p, ok := requestablePatterns[strings.ToLower(s)]; ok {
		return p, nil
	}
	return 0, model.NewInvalidValue(FieldPolarPattern, s)
}
