package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
)

type note struct {
	freq float64 // Hz, 0 for a rest
	dur  time.Duration
}

// Rising pair for warnings, falling triple for errors.
var (
	warningChime = []note{
		{660, 90 * time.Millisecond},
		{0, 30 * time.Millisecond},
		{880, 140 * time.Millisecond},
	}
	criticalChime = []note{
		{988, 90 * time.Millisecond},
		{0, 30 * time.Millisecond},
		{784, 90 * time.Millisecond},
		{0, 30 * time.Millisecond},
		{587, 180 * time.Millisecond},
	}
)

// chimeGain keeps the synthesized tones well below full scale.
const chimeGain = 0.3

// Chime renders the built-in alert chime at sr into a buffer.
func Chime(sr beep.SampleRate, critical bool) (*beep.Buffer, error) {
	notes := warningChime
	if critical {
		notes = criticalChime
	}

	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		samples := sr.N(n.dur)
		if n.freq == 0 {
			parts = append(parts, beep.Silence(samples))
			continue
		}
		tone, err := generators.SineTone(sr, n.freq)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %v Hz tone: %w", n.freq, err)
		}
		parts = append(parts, beep.Take(samples, tone))
	}

	buffer := beep.NewBuffer(beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2})
	buffer.Append(&effects.Gain{Streamer: beep.Seq(parts...), Gain: chimeGain - 1})
	return buffer, nil
}

// ChimeDuration returns the total length of a chime.
func ChimeDuration(critical bool) time.Duration {
	notes := warningChime
	if critical {
		notes = criticalChime
	}
	var total time.Duration
	for _, n := range notes {
		total += n.dur
	}
	return total
}
