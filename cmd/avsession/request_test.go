package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/avsessiond/internal/model"
)

func buildFromArgs(t *testing.T, args ...string) (model.Request, error) {
	t.Helper()
	var f requestFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(args))
	return f.build(cmd)
}

func TestRequestFlags_Build(t *testing.T) {
	req, err := buildFromArgs(t,
		"--category", "playAndRecord",
		"--mode", "videoRecording",
		"-o", "defaultToSpeaker",
		"--option", "allowBluetooth,mixWithOthers",
		"--sample-rate", "48000",
		"--io-buffer", "0.005",
		"--orientation", "landscapeLeft",
		"--preferred-input", "builtInMic",
		"--data-source", "front",
		"--polar-pattern", "stereo",
	)
	require.NoError(t, err)

	assert.Equal(t, "playAndRecord", req.Category)
	assert.Equal(t, "videoRecording", req.Mode)
	assert.Equal(t, []string{"defaultToSpeaker", "allowBluetooth", "mixWithOthers"}, req.Options)
	require.NotNil(t, req.SampleRate)
	assert.Equal(t, 48000.0, *req.SampleRate)
	require.NotNil(t, req.IOBufferDuration)
	assert.Equal(t, 0.005, *req.IOBufferDuration)
	assert.Equal(t, "landscapeLeft", req.InputOrientation)
	assert.Equal(t, "builtInMic", req.PreferredInput)
	assert.Equal(t, "front", req.DataSourceName)
	assert.Equal(t, "stereo", req.PolarPattern)
	assert.Nil(t, req.Active, "active is only sent when --inactive is given")
}

func TestRequestFlags_Inactive(t *testing.T) {
	req, err := buildFromArgs(t, "--category", "playback", "--inactive")
	require.NoError(t, err)
	require.NotNil(t, req.Active)
	assert.False(t, *req.Active)
}

func TestRequestFlags_UnsetFlagsOmitted(t *testing.T) {
	req, err := buildFromArgs(t, "--category", "ambient")
	require.NoError(t, err)
	assert.Equal(t, model.Request{Category: "ambient"}, req)
}

func TestRequestFlags_FileWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
category: record
mode: measurement
options: [duckOthers]
sampleRate: 44100
`), 0644))

	req, err := buildFromArgs(t, "--file", path, "--mode", "default", "--sample-rate", "48000")
	require.NoError(t, err)

	assert.Equal(t, "record", req.Category)
	assert.Equal(t, "default", req.Mode, "flag overrides file")
	assert.Equal(t, []string{"duckOthers"}, req.Options)
	require.NotNil(t, req.SampleRate)
	assert.Equal(t, 48000.0, *req.SampleRate)
}

func TestRequestFlags_MissingFile(t *testing.T) {
	_, err := buildFromArgs(t, "--file", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseSwitch(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"on", true, false},
		{"enable", true, false},
		{"1", true, false},
		{"off", false, false},
		{"no", false, false},
		{"maybe", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSwitch(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
