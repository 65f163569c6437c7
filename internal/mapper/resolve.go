package mapper

import (
	"math"
	"strconv"
	"time"

	"github.com/jmylchreest/avsessiond/internal/model"
)

// Resolve maps every field of req and applies defaults. It stops at the
// first invalid field, in the order category, mode, options, orientation,
// preferred input, polar pattern, sample rate, buffer duration.
//
// The data source and polar pattern only take effect as a pair. Either one
// alone is ignored without validation.
func Resolve(req model.Request) (model.Config, error) {
	var cfg model.Config
	var err error

	if cfg.Category, err = MapCategory(req.Category); err != nil {
		return model.Config{}, err
	}

	cfg.Mode = model.ModeDefault
	if req.Mode != "" {
		if cfg.Mode, err = MapMode(req.Mode); err != nil {
			return model.Config{}, err
		}
	}

	if cfg.Options, err = MapOptions(req.Options); err != nil {
		return model.Config{}, err
	}

	if req.InputOrientation != "" {
		o, err := MapOrientation(req.InputOrientation)
		if err != nil {
			return model.Config{}, err
		}
		cfg.InputOrientation = &o
	}

	if req.PreferredInput != "" {
		if cfg.PreferredInput, err = MapPreferredInput(req.PreferredInput); err != nil {
			return model.Config{}, err
		}
	}

	if req.PolarPattern != "" && req.DataSourceName != "" {
		p, err := MapPolarPattern(req.PolarPattern)
		if err != nil {
			return model.Config{}, err
		}
		cfg.Stereo = &model.StereoSelection{DataSourceName: req.DataSourceName, Pattern: p}
	}

	if req.SampleRate != nil {
		if !positive(*req.SampleRate) {
			return model.Config{}, model.NewInvalidValue(FieldSampleRate, formatFloat(*req.SampleRate))
		}
		cfg.SampleRate = *req.SampleRate
	}

	if req.IOBufferDuration != nil {
		secs := *req.IOBufferDuration
		if !positive(secs) || secs >= maxDurationSeconds {
			return model.Config{}, model.NewInvalidValue(FieldIOBufferDuration, formatFloat(secs))
		}
		d := time.Duration(secs * float64(time.Second))
		if d <= 0 {
			return model.Config{}, model.NewInvalidValue(FieldIOBufferDuration, formatFloat(secs))
		}
		cfg.IOBufferDuration = d
	}

	cfg.Active = true
	if req.Active != nil {
		cfg.Active = *req.Active
	}

	return cfg, nil
}

// maxDurationSeconds is the first value in seconds a time.Duration cannot hold.
const maxDurationSeconds = float64(math.MaxInt64) / float64(time.Second)

func positive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
