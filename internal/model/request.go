package model

import (
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

// Request is the portable, caller-facing description of a session
// configuration. Empty strings and nil pointers mean "not requested".
type Request struct {
	Category         string   `json:"category" yaml:"category" toml:"category"`
	Options          []string `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
	Mode             string   `json:"mode,omitempty" yaml:"mode,omitempty" toml:"mode,omitempty"`
	Active           *bool    `json:"active,omitempty" yaml:"active,omitempty" toml:"active,omitempty"`
	SampleRate       *float64 `json:"sampleRate,omitempty" yaml:"sampleRate,omitempty" toml:"sample_rate,omitempty"`
	IOBufferDuration *float64 `json:"ioBufferDuration,omitempty" yaml:"ioBufferDuration,omitempty" toml:"io_buffer_duration,omitempty"` // seconds
	InputOrientation string   `json:"inputOrientation,omitempty" yaml:"inputOrientation,omitempty" toml:"input_orientation,omitempty"`
	PreferredInput   string   `json:"preferredInput,omitempty" yaml:"preferredInput,omitempty" toml:"preferred_input,omitempty"`
	DataSourceName   string   `json:"dataSourceName,omitempty" yaml:"dataSourceName,omitempty" toml:"data_source_name,omitempty"`
	PolarPattern     string   `json:"polarPattern,omitempty" yaml:"polarPattern,omitempty" toml:"polar_pattern,omitempty"`
}

// LoadRequestFile reads a request from a YAML or JSON file.
func LoadRequestFile(path string) (Request, error) {
	var req Request
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read request file: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse request file %s: %w", path, err)
	}
	return req, nil
}

// StereoSelection selects a polar pattern on a named data source of the
// preferred input.
type StereoSelection struct {
	DataSourceName string
	Pattern        PolarPattern
}

// Config is a fully resolved request: defaults applied and every value
// translated to its native enumeration.
type Config struct {
	Category         Category
	Mode             Mode
	Options          OptionSet
	Active           bool
	SampleRate       float64       // 0 = not requested
	IOBufferDuration time.Duration // 0 = not requested
	InputOrientation *Orientation
	PreferredInput   PortType // empty = not requested
	Stereo           *StereoSelection
}

// Request converts the configuration back to its canonical portable form.
func (c Config) Request() Request {
	active := c.Active
	req := Request{
		Category: c.Category.String(),
		Options:  c.Options.Names(),
		Mode:     c.Mode.String(),
		Active:   &active,
	}
	if c.SampleRate > 0 {
		sr := c.SampleRate
		req.SampleRate = &sr
	}
	if c.IOBufferDuration > 0 {
		secs := c.IOBufferDuration.Seconds()
		req.IOBufferDuration = &secs
	}
	if c.InputOrientation != nil {
		req.InputOrientation = c.InputOrientation.String()
	}
	if c.PreferredInput != "" {
		req.PreferredInput = string(c.PreferredInput)
	}
	if c.Stereo != nil {
		req.DataSourceName = c.Stereo.DataSourceName
		req.PolarPattern = c.Stereo.Pattern.String()
	}
	return req
}

// Desired is the configuration the engine enforces, stamped with a
// revision identifier when it was accepted.
type Desired struct {
	Config
	Revision   string
	AcceptedAt time.Time
}

// NewDesired wraps a configuration with a fresh ULID revision.
func NewDesired(cfg Config) (Desired, error) {
	now := time.Now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return Desired{}, fmt.Errorf("failed to generate revision: %w", err)
	}
	return Desired{Config: cfg, Revision: id.String(), AcceptedAt: now}, nil
}

// Snapshot is a read-only projection of the audio service's actual state.
type Snapshot struct {
	Category         string   `json:"category"`
	Mode             string   `json:"mode"`
	SampleRate       float64  `json:"sampleRate"`
	IOBufferDuration float64  `json:"ioBufferDuration"` // seconds
	IOBufferFrames   int      `json:"ioBufferFrames"`
	Route            string   `json:"route"`
	Active           bool     `json:"active"`
	Options          []string `json:"options,omitempty"`
	PreferredInput   string   `json:"preferredInput,omitempty"`
	DataSource       string   `json:"dataSource,omitempty"`
	PolarPattern     string   `json:"polarPattern,omitempty"`
	InputOrientation string   `json:"inputOrientation,omitempty"`
}

// UnknownSnapshot is reported when the service cannot be queried.
func UnknownSnapshot() Snapshot {
	return Snapshot{
		Category: Unknown,
		Mode:     Unknown,
		Route:    Unknown,
	}
}
