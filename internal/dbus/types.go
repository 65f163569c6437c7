package dbus

import (
	"fmt"
	"slices"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/avsessiond/internal/model"
	"github.com/jmylchreest/avsessiond/internal/store"
)

const (
	// Interface is the AVSession interface name.
	Interface = "io.github.jmylchreest.AVSession"
	// Path is the AVSession object path.
	Path = "/io/github/jmylchreest/AVSession"
	// BusName is the default well-known bus name.
	BusName = "io.github.jmylchreest.AVSession"
)

// Request dictionary keys.
const (
	KeyCategory         = "category"
	KeyMode             = "mode"
	KeyOptions          = "options"
	KeyActive           = "active"
	KeySampleRate       = "sampleRate"
	KeyIOBufferDuration = "ioBufferDuration"
	KeyInputOrientation = "inputOrientation"
	KeyPreferredInput   = "preferredInput"
	KeyDataSourceName   = "dataSourceName"
	KeyPolarPattern     = "polarPattern"
)

// Snapshot-only dictionary keys.
const (
	KeyIOBufferFrames = "ioBufferFrames"
	KeyRoute          = "route"
	KeyDataSource     = "dataSource"
)

// RequestToVariants encodes a request as an a{sv} dictionary. Fields that
// are not requested are omitted.
func RequestToVariants(req model.Request) map[string]dbus.Variant {
	m := make(map[string]dbus.Variant)
	putString := func(key, value string) {
		if value != "" {
			m[key] = dbus.MakeVariant(value)
		}
	}

	putString(KeyCategory, req.Category)
	putString(KeyMode, req.Mode)
	if len(req.Options) > 0 {
		m[KeyOptions] = dbus.MakeVariant(slices.Clone(req.Options))
	}
	if req.Active != nil {
		m[KeyActive] = dbus.MakeVariant(*req.Active)
	}
	if req.SampleRate != nil {
		m[KeySampleRate] = dbus.MakeVariant(*req.SampleRate)
	}
	if req.IOBufferDuration != nil {
		m[KeyIOBufferDuration] = dbus.MakeVariant(*req.IOBufferDuration)
	}
	putString(KeyInputOrientation, req.InputOrientation)
	putString(KeyPreferredInput, req.PreferredInput)
	putString(KeyDataSourceName, req.DataSourceName)
	putString(KeyPolarPattern, req.PolarPattern)
	return m
}

// RequestFromVariants decodes an a{sv} dictionary into a request. Unknown
// keys and values of the wrong type are reported as InvalidValueError.
func RequestFromVariants(m map[string]dbus.Variant) (model.Request, error) {
	var req model.Request
	for key, v := range m {
		var err error
		switch key {
		case KeyCategory:
			req.Category, err = variantString(key, v)
		case KeyMode:
			req.Mode, err = variantString(key, v)
		case KeyOptions:
			req.Options, err = variantStrings(key, v)
		case KeyActive:
			var b bool
			b, err = variantBool(key, v)
			req.Active = &b
		case KeySampleRate:
			var f float64
			f, err = variantFloat(key, v)
			req.SampleRate = &f
		case KeyIOBufferDuration:
			var f float64
			f, err = variantFloat(key, v)
			req.IOBufferDuration = &f
		case KeyInputOrientation:
			req.InputOrientation, err = variantString(key, v)
		case KeyPreferredInput:
			req.PreferredInput, err = variantString(key, v)
		case KeyDataSourceName:
			req.DataSourceName, err = variantString(key, v)
		case KeyPolarPattern:
			req.PolarPattern, err = variantString(key, v)
		default:
			err = model.NewInvalidValue("key", key)
		}
		if err != nil {
			return model.Request{}, err
		}
	}
	return req, nil
}

// SnapshotToVariants encodes a session snapshot as an a{sv} dictionary.
func SnapshotToVariants(s model.Snapshot) map[string]dbus.Variant {
	m := map[string]dbus.Variant{
		KeyCategory:         dbus.MakeVariant(s.Category),
		KeyMode:             dbus.MakeVariant(s.Mode),
		KeySampleRate:       dbus.MakeVariant(s.SampleRate),
		KeyIOBufferDuration: dbus.MakeVariant(s.IOBufferDuration),
		KeyIOBufferFrames:   dbus.MakeVariant(int32(s.IOBufferFrames)),
		KeyRoute:            dbus.MakeVariant(s.Route),
		KeyActive:           dbus.MakeVariant(s.Active),
	}
	if len(s.Options) > 0 {
		m[KeyOptions] = dbus.MakeVariant(slices.Clone(s.Options))
	}
	for key, value := range map[string]string{
		KeyPreferredInput:   s.PreferredInput,
		KeyDataSource:       s.DataSource,
		KeyPolarPattern:     s.PolarPattern,
		KeyInputOrientation: s.InputOrientation,
	} {
		if value != "" {
			m[key] = dbus.MakeVariant(value)
		}
	}
	return m
}

// SnapshotFromVariants decodes a snapshot dictionary. Missing or mistyped
// fields are left at their zero value.
func SnapshotFromVariants(m map[string]dbus.Variant) model.Snapshot {
	var s model.Snapshot
	s.Category, _ = variantString(KeyCategory, m[KeyCategory])
	s.Mode, _ = variantString(KeyMode, m[KeyMode])
	s.SampleRate, _ = variantFloat(KeySampleRate, m[KeySampleRate])
	s.IOBufferDuration, _ = variantFloat(KeyIOBufferDuration, m[KeyIOBufferDuration])
	if frames, err := variantFloat(KeyIOBufferFrames, m[KeyIOBufferFrames]); err == nil {
		s.IOBufferFrames = int(frames)
	}
	s.Route, _ = variantString(KeyRoute, m[KeyRoute])
	s.Active, _ = variantBool(KeyActive, m[KeyActive])
	s.Options, _ = variantStrings(KeyOptions, m[KeyOptions])
	s.PreferredInput, _ = variantString(KeyPreferredInput, m[KeyPreferredInput])
	s.DataSource, _ = variantString(KeyDataSource, m[KeyDataSource])
	s.PolarPattern, _ = variantString(KeyPolarPattern, m[KeyPolarPattern])
	s.InputOrientation, _ = variantString(KeyInputOrientation, m[KeyInputOrientation])
	return s
}

// HistoryEntry is the wire form of a history entry, signature (sssxbs).
type HistoryEntry struct {
	ID       string
	Trigger  string
	Revision string
	At       int64 // Unix milliseconds
	OK       bool
	Error    string
}

// NewHistoryEntry converts a store entry to its wire form.
func NewHistoryEntry(e store.Entry) HistoryEntry {
	return HistoryEntry{
		ID:       e.ID,
		Trigger:  e.Trigger,
		Revision: e.Revision,
		At:       e.At.UnixMilli(),
		OK:       e.OK,
		Error:    e.Error,
	}
}

// Entry converts the wire form back to a store entry.
func (h HistoryEntry) Entry() store.Entry {
	return store.Entry{
		ID:       h.ID,
		Trigger:  h.Trigger,
		Revision: h.Revision,
		At:       time.UnixMilli(h.At),
		OK:       h.OK,
		Error:    h.Error,
	}
}

// Status is the decoded reply of GetStatus.
type Status struct {
	AutoReapply bool
	HasDesired  bool
	Revision    string
	AcceptedAt  time.Time
	Desired     model.Request
}

func variantString(key string, v dbus.Variant) (string, error) {
	s, ok := v.Value().(string)
	if !ok {
		return "", model.NewInvalidValue(key, fmt.Sprint(v.Value()))
	}
	return s, nil
}

func variantStrings(key string, v dbus.Variant) ([]string, error) {
	switch val := v.Value().(type) {
	case []string:
		return val, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, model.NewInvalidValue(key, fmt.Sprint(item))
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return []string{val}, nil
	}
	return nil, model.NewInvalidValue(key, fmt.Sprint(v.Value()))
}

func variantBool(key string, v dbus.Variant) (bool, error) {
	b, ok := v.Value().(bool)
	if !ok {
		return false, model.NewInvalidValue(key, fmt.Sprint(v.Value()))
	}
	return b, nil
}

// variantFloat accepts any numeric D-Bus type.
func variantFloat(key string, v dbus.Variant) (float64, error) {
	switch val := v.Value().(type) {
	case float64:
		return val, nil
	case byte:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	}
	return 0, model.NewInvalidValue(key, fmt.Sprint(v.Value()))
}
