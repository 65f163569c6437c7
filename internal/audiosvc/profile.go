package audiosvc

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/avsessiond/internal/model"
)

// Profile describes the hardware the simulated service exposes.
type Profile struct {
	Name        string         `yaml:"name"`
	SampleRates []float64      `yaml:"sampleRates"`
	IOBuffer    BufferRange    `yaml:"ioBuffer"`
	OutputRoute string         `yaml:"outputRoute"`
	Inputs      []InputProfile `yaml:"inputs"`
}

// BufferRange bounds the I/O buffer duration, in seconds.
type BufferRange struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Default float64 `yaml:"default"`
}

// InputProfile describes one input port.
type InputProfile struct {
	Name        string              `yaml:"name"`
	Type        string              `yaml:"type"`
	DataSources []DataSourceProfile `yaml:"dataSources"`
}

// DataSourceProfile describes one data source of an input port.
type DataSourceProfile struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

// DefaultProfile returns a phone-like device with a three-element built-in
// microphone.
func DefaultProfile() Profile {
	return Profile{
		Name:        "builtin",
		SampleRates: []float64{44100, 48000},
		IOBuffer: BufferRange{
			Min:     0.0014,
			Max:     0.093,
			Default: 0.023,
		},
		OutputRoute: string(model.PortBuiltInSpeaker),
		Inputs: []InputProfile{
			{
				Name: "Built-In Microphone",
				Type: string(model.PortBuiltInMic),
				DataSources: []DataSourceProfile{
					{Name: "Bottom", Patterns: []string{"omnidirectional", "cardioid", "stereo"}},
					{Name: "Front", Patterns: []string{"omnidirectional", "cardioid", "subcardioid", "stereo"}},
					{Name: "Back", Patterns: []string{"omnidirectional", "cardioid", "subcardioid"}},
				},
			},
		},
	}
}

// ParseProfile decodes a YAML profile and validates it.
func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

// LoadProfile reads a profile from path. An empty path yields DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}
	return ParseProfile(data)
}

// Validate checks the profile for values the service cannot model.
func (p Profile) Validate() error {
	if len(p.SampleRates) == 0 {
		return errors.New("at least one sample rate is required")
	}
	for _, sr := range p.SampleRates {
		if sr <= 0 {
			return fmt.Errorf("sample rate must be positive, got %v", sr)
		}
	}
	if p.IOBuffer.Min <= 0 || p.IOBuffer.Max < p.IOBuffer.Min {
		return fmt.Errorf("io buffer range [%v, %v] is invalid", p.IOBuffer.Min, p.IOBuffer.Max)
	}
	if p.IOBuffer.Default != 0 && (p.IOBuffer.Default < p.IOBuffer.Min || p.IOBuffer.Default > p.IOBuffer.Max) {
		return fmt.Errorf("default io buffer %v outside [%v, %v]", p.IOBuffer.Default, p.IOBuffer.Min, p.IOBuffer.Max)
	}
	if p.OutputRoute == "" {
		return errors.New("output route is required")
	}
	for _, in := range p.Inputs {
		if in.Name == "" || in.Type == "" {
			return errors.New("inputs need a name and a type")
		}
		for _, ds := range in.DataSources {
			if ds.Name == "" {
				return fmt.Errorf("input %q has a data source without a name", in.Name)
			}
			for _, pattern := range ds.Patterns {
				if _, ok := model.ParsePolarPattern(pattern); !ok {
					return fmt.Errorf("data source %q: unknown polar pattern %q", ds.Name, pattern)
				}
			}
		}
	}
	return nil
}

// defaultBuffer returns the buffer duration used before any preference.
func (p Profile) defaultBuffer() time.Duration {
	secs := p.IOBuffer.Default
	if secs == 0 {
		secs = p.IOBuffer.Min
	}
	return seconds(secs)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
