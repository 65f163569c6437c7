package model

import (
	"errors"
	"fmt"
)

// Errors for stereo configurations the hardware cannot satisfy.
var (
	ErrDeviceNotFound     = errors.New("built-in microphone not available")
	ErrDataSourceNotFound = errors.New("data source not found on preferred input")
	ErrUnsupportedPattern = errors.New("polar pattern not supported by data source")
)

// InvalidValueError reports a request value outside the accepted vocabulary.
type InvalidValueError struct {
	Field string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// NewInvalidValue returns an InvalidValueError for field.
func NewInvalidValue(field, value string) error {
	return &InvalidValueError{Field: field, Value: value}
}

// Step names a stage of applying a configuration to the audio service.
type Step string

// Apply steps, in execution order.
const (
	StepCategory         Step = "category"
	StepSampleRate       Step = "sampleRate"
	StepIOBufferDuration Step = "ioBufferDuration"
	StepPreferredInput   Step = "preferredInput"
	StepDataSource       Step = "dataSource"
	StepInputOrientation Step = "inputOrientation"
	StepActive           Step = "active"
)

// ServiceError reports that the audio service rejected a mutation.
// The session may be partially changed: earlier steps are not rolled back.
type ServiceError struct {
	Step Step
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("audio service rejected %s: %v", e.Step, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsCallerError reports whether err was caused by the request itself
// rather than by the service.
func IsCallerError(err error) bool {
	var invalid *InvalidValueError
	return errors.As(err, &invalid) ||
		errors.Is(err, ErrDeviceNotFound) ||
		errors.Is(err, ErrDataSourceNotFound) ||
		errors.Is(err, ErrUnsupportedPattern)
}
