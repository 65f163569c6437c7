package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/avsessiond/internal/model"
)

// requestFlags are the flags shared by set, override and validate.
type requestFlags struct {
	file           string
	category       string
	mode           string
	options        []string
	inactive       bool
	sampleRate     float64
	ioBuffer       float64
	orientation    string
	preferredInput string
	dataSourceName string
	polarPattern   string
}

func (f *requestFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.file, "file", "f", "",
		"Read the request from a YAML or JSON file; other flags override its fields")
	fs.StringVarP(&f.category, "category", "c", "",
		"Session category (ambient, soloAmbient, playback, record, playAndRecord, multiRoute)")
	fs.StringVarP(&f.mode, "mode", "m", "",
		"Session mode (default, voiceChat, videoRecording, measurement, moviePlayback, spokenAudio, gameChat)")
	fs.StringSliceVarP(&f.options, "option", "o", nil,
		"Category option, repeatable (mixWithOthers, duckOthers, allowBluetooth, ...)")
	fs.BoolVar(&f.inactive, "inactive", false,
		"Leave the session inactive")
	fs.Float64Var(&f.sampleRate, "sample-rate", 0,
		"Preferred sample rate in Hz")
	fs.Float64Var(&f.ioBuffer, "io-buffer", 0,
		"Preferred IO buffer duration in seconds")
	fs.StringVar(&f.orientation, "orientation", "",
		"Preferred input orientation (portrait, landscapeLeft, ...)")
	fs.StringVar(&f.preferredInput, "preferred-input", "",
		"Preferred input port type (builtInMic)")
	fs.StringVar(&f.dataSourceName, "data-source", "",
		"Data source name on the preferred input (requires --polar-pattern)")
	fs.StringVar(&f.polarPattern, "polar-pattern", "",
		"Polar pattern for the data source (stereo)")
}

// build assembles the request. Only flags set on the command line override
// values from --file.
func (f *requestFlags) build(cmd *cobra.Command) (model.Request, error) {
	var req model.Request
	if f.file != "" {
		var err error
		if req, err = model.LoadRequestFile(f.file); err != nil {
			return model.Request{}, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("category") {
		req.Category = f.category
	}
	if changed("mode") {
		req.Mode = f.mode
	}
	if changed("option") {
		req.Options = f.options
	}
	if changed("inactive") {
		active := !f.inactive
		req.Active = &active
	}
	if changed("sample-rate") {
		sr := f.sampleRate
		req.SampleRate = &sr
	}
	if changed("io-buffer") {
		buf := f.ioBuffer
		req.IOBufferDuration = &buf
	}
	if changed("orientation") {
		req.InputOrientation = f.orientation
	}
	if changed("preferred-input") {
		req.PreferredInput = f.preferredInput
	}
	if changed("data-source") {
		req.DataSourceName = f.dataSourceName
	}
	if changed("polar-pattern") {
		req.PolarPattern = f.polarPattern
	}
	return req, nil
}
