package dbus

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/avsessiond/internal/model"
)

// D-Bus error names returned by the AVSession interface.
const (
	ErrorInvalidValue       = Interface + ".Error.InvalidValue"
	ErrorDeviceNotFound     = Interface + ".Error.DeviceNotFound"
	ErrorDataSourceNotFound = Interface + ".Error.DataSourceNotFound"
	ErrorUnsupportedPattern = Interface + ".Error.UnsupportedPattern"
	ErrorServiceFailure     = Interface + ".Error.ServiceFailure"
	ErrorNotSupported       = Interface + ".Error.NotSupported"
	ErrorFailed             = Interface + ".Error.Failed"
)

// ErrNotSupported is returned when the daemon cannot perform a request,
// e.g. injecting events into a backend that does not allow it.
var ErrNotSupported = errors.New("operation not supported")

var sentinelNames = []struct {
	err  error
	name string
}{
	{model.ErrDeviceNotFound, ErrorDeviceNotFound},
	{model.ErrDataSourceNotFound, ErrorDataSourceNotFound},
	{model.ErrUnsupportedPattern, ErrorUnsupportedPattern},
	{ErrNotSupported, ErrorNotSupported},
}

// toDBusError converts an engine error into a D-Bus error reply. The first
// body element is always the human-readable message.
func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}

	var invalid *model.InvalidValueError
	if errors.As(err, &invalid) {
		return dbus.NewError(ErrorInvalidValue, []any{err.Error(), invalid.Field, invalid.Value})
	}

	var serviceErr *model.ServiceError
	if errors.As(err, &serviceErr) {
		cause := ""
		if serviceErr.Err != nil {
			cause = serviceErr.Err.Error()
		}
		return dbus.NewError(ErrorServiceFailure, []any{err.Error(), string(serviceErr.Step), cause})
	}

	for _, s := range sentinelNames {
		if errors.Is(err, s.err) {
			return dbus.NewError(s.name, []any{err.Error()})
		}
	}

	return dbus.NewError(ErrorFailed, []any{err.Error()})
}

// remoteError carries a server-side message while matching a local sentinel
// with errors.Is.
type remoteError struct {
	msg      string
	sentinel error
}

func (e *remoteError) Error() string { return e.msg }

func (e *remoteError) Unwrap() error { return e.sentinel }

// fromDBusError converts a D-Bus error reply back into the engine's error
// taxonomy. Errors that are not D-Bus replies are returned unchanged.
func fromDBusError(err error) error {
	if err == nil {
		return nil
	}
	busErr, ok := asBusError(err)
	if !ok {
		return err
	}

	msg := bodyString(busErr.Body, 0)
	if msg == "" {
		msg = busErr.Name
	}

	switch busErr.Name {
	case ErrorInvalidValue:
		return &model.InvalidValueError{
			Field: bodyString(busErr.Body, 1),
			Value: bodyString(busErr.Body, 2),
		}
	case ErrorServiceFailure:
		return &model.ServiceError{
			Step: model.Step(bodyString(busErr.Body, 1)),
			Err:  errors.New(bodyString(busErr.Body, 2)),
		}
	}

	for _, s := range sentinelNames {
		if busErr.Name == s.name {
			return &remoteError{msg: msg, sentinel: s.err}
		}
	}
	return fmt.Errorf("%s: %s", busErr.Name, msg)
}

func asBusError(err error) (dbus.Error, bool) {
	var value dbus.Error
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *dbus.Error
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return dbus.Error{}, false
}

func bodyString(body []any, i int) string {
	if i >= len(body) {
		return ""
	}
	s, _ := body[i].(string)
	return s
}
