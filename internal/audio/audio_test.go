package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/avsessiond/internal/config"
)

func TestVolumeExponent(t *testing.T) {
	tests := []struct {
		volume   float64
		expected float64
	}{
		{1, 0},
		{0.5, -1},
		{0.25, -2},
		{0, -16},
		{-1, -16},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.volume), func(t *testing.T) {
			assert.InDelta(t, tt.expected, volumeExponent(tt.volume), 1e-9)
		})
	}
}

func TestPlayer_SetVolumeClamps(t *testing.T) {
	p := NewPlayer(nil)
	assert.Equal(t, 1.0, p.GetVolume())

	p.SetVolume(1.5)
	assert.Equal(t, 1.0, p.GetVolume())

	p.SetVolume(-0.2)
	assert.Equal(t, 0.0, p.GetVolume())

	p.SetVolume(0.4)
	assert.Equal(t, 0.4, p.GetVolume())
}

func TestPlayer_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alert.flac")
	require.NoError(t, os.WriteFile(path, []byte("fLaC"), 0644))

	p := NewPlayer(nil)
	err := p.Preload(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported audio format")

	assert.Error(t, p.Play(filepath.Join(t.TempDir(), "missing.wav")))
	assert.NoError(t, p.Play(""))
}

func TestChime(t *testing.T) {
	sr := beep.SampleRate(48000)

	for _, critical := range []bool{false, true} {
		notes := warningChime
		if critical {
			notes = criticalChime
		}
		want := 0
		for _, n := range notes {
			want += sr.N(n.dur)
		}

		buffer, err := Chime(sr, critical)
		require.NoError(t, err)
		assert.Equal(t, want, buffer.Len())
		assert.Equal(t, sr, buffer.Format().SampleRate)
	}

	assert.Equal(t, 260*time.Millisecond, ChimeDuration(false))
	assert.Equal(t, 420*time.Millisecond, ChimeDuration(true))
}

func TestChime_StaysBelowFullScale(t *testing.T) {
	buffer, err := Chime(DefaultSampleRate, true)
	require.NoError(t, err)

	samples := make([][2]float64, buffer.Len())
	n, _ := buffer.Streamer(0, buffer.Len()).Stream(samples)
	require.Equal(t, buffer.Len(), n)

	peak := 0.0
	for _, s := range samples {
		peak = max(peak, s[0], -s[0])
	}
	assert.Greater(t, peak, 0.1)
	assert.LessOrEqual(t, peak, chimeGain+0.01)
}

func TestManager_UpdateConfig(t *testing.T) {
	cfg := config.DefaultDaemonConfig()
	m := NewManager(cfg, nil)

	assert.False(t, m.Enabled(), "sound is off by default")
	assert.InDelta(t, 0.8, m.GetVolume(), 1e-9)
	assert.NoError(t, m.PlayAlert(true), "disabled manager is a no-op")

	sound := filepath.Join(t.TempDir(), "alert.wav")
	require.NoError(t, os.WriteFile(sound, []byte("RIFF"), 0644))

	cfg.Alerts.Sound = true
	cfg.Alerts.SoundFile = sound
	cfg.Alerts.Volume = 25
	m.UpdateConfig(cfg)

	assert.True(t, m.Enabled())
	assert.Equal(t, sound, m.SoundFile())
	assert.InDelta(t, 0.25, m.GetVolume(), 1e-9)

	cfg.Alerts.Enabled = false
	m.UpdateConfig(cfg)
	assert.False(t, m.Enabled(), "alerts switch overrides sound")
}

func TestManager_MissingSoundFileFallsBackToChime(t *testing.T) {
	cfg := config.DefaultDaemonConfig()
	cfg.Alerts.Sound = true
	cfg.Alerts.SoundFile = filepath.Join(t.TempDir(), "gone.ogg")

	m := NewManager(cfg, nil)
	assert.True(t, m.Enabled())
	assert.Empty(t, m.SoundFile())
}

func TestManager_ReloadPicksUpSoundFile(t *testing.T) {
	sound := filepath.Join(t.TempDir(), "alert.wav")
	cfg := config.DefaultDaemonConfig()
	cfg.Alerts.Sound = true
	cfg.Alerts.SoundFile = sound

	m := NewManager(cfg, nil)
	require.Empty(t, m.SoundFile())

	// Undecodable content still switches the source; playback reports the error.
	require.NoError(t, os.WriteFile(sound, []byte("RIFF"), 0644))
	m.Reload()
	assert.Equal(t, sound, m.SoundFile())

	require.NoError(t, os.Remove(sound))
	m.Reload()
	assert.Empty(t, m.SoundFile())
}
