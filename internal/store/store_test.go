package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHistory(t *testing.T) {
	h := NewHistory(0)
	assert.NotNil(t, h)
	assert.Equal(t, 0, h.Count())
	assert.Len(t, h.entries, DefaultCapacity)

	_, ok := h.Latest()
	assert.False(t, ok)
}

func TestHistory_Add(t *testing.T) {
	h := NewHistory(10)
	defer h.Close()

	e, err := h.Add(Entry{Trigger: "set", Revision: "r1", OK: true})
	require.NoError(t, err)
	assert.Len(t, e.ID, 26)
	assert.False(t, e.At.IsZero())
	assert.Equal(t, 1, h.Count())

	// Explicit ID and time are kept
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e, err = h.Add(Entry{ID: "fixed", Trigger: "routeChange", At: at, OK: true})
	require.NoError(t, err)
	assert.Equal(t, "fixed", e.ID)
	assert.Equal(t, at, e.At)
}

func TestHistory_NewestFirst(t *testing.T) {
	h := NewHistory(10)
	defer h.Close()

	for i := 0; i < 3; i++ {
		_, err := h.Add(Entry{Trigger: fmt.Sprintf("t%d", i), OK: true})
		require.NoError(t, err)
	}

	all := h.All()
	require.Len(t, all, 3)
	assert.Equal(t, "t2", all[0].Trigger)
	assert.Equal(t, "t1", all[1].Trigger)
	assert.Equal(t, "t0", all[2].Trigger)

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, "t2", latest.Trigger)
}

func TestHistory_DropsOldest(t *testing.T) {
	h := NewHistory(3)
	defer h.Close()

	for i := 0; i < 5; i++ {
		_, err := h.Add(Entry{Trigger: fmt.Sprintf("t%d", i), OK: i%2 == 0})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, h.Count())
	all := h.All()
	require.Len(t, all, 3)
	assert.Equal(t, "t4", all[0].Trigger)
	assert.Equal(t, "t2", all[2].Trigger)

	// Failures counts dropped entries too
	assert.Equal(t, 2, h.Failures())
}

func TestHistory_Filter(t *testing.T) {
	h := NewHistory(10)
	defer h.Close()

	now := time.Now()
	entries := []Entry{
		{Trigger: "set", At: now.Add(-time.Hour), OK: true},
		{Trigger: "routeChange", At: now.Add(-30 * time.Minute), OK: false, Error: "busy"},
		{Trigger: "routeChange", At: now.Add(-time.Minute), OK: true},
		{Trigger: "interruption", At: now, OK: false, Error: "busy"},
	}
	for _, e := range entries {
		_, err := h.Add(e)
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		opts     FilterOptions
		expected []string
	}{
		{"all", FilterOptions{}, []string{"interruption", "routeChange", "routeChange", "set"}},
		{"limit", FilterOptions{Limit: 2}, []string{"interruption", "routeChange"}},
		{"trigger", FilterOptions{Trigger: "routeChange"}, []string{"routeChange", "routeChange"}},
		{"failed only", FilterOptions{FailedOnly: true}, []string{"interruption", "routeChange"}},
		{"since", FilterOptions{Since: 10 * time.Minute}, []string{"interruption", "routeChange"}},
		{"combined", FilterOptions{FailedOnly: true, Trigger: "routeChange"}, []string{"routeChange"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Filter(tt.opts)
			triggers := make([]string, len(got))
			for i, e := range got {
				triggers[i] = e.Trigger
			}
			assert.Equal(t, tt.expected, triggers)
		})
	}
}

func TestHistory_Recent(t *testing.T) {
	h := NewHistory(10)
	defer h.Close()

	for i := 0; i < 5; i++ {
		_, err := h.Add(Entry{Trigger: "set", OK: true})
		require.NoError(t, err)
	}
	assert.Len(t, h.Recent(2), 2)
	assert.Len(t, h.Recent(0), 5)
}

func TestHistory_Clear(t *testing.T) {
	h := NewHistory(3)
	defer h.Close()

	for i := 0; i < 4; i++ {
		_, err := h.Add(Entry{Trigger: "set"})
		require.NoError(t, err)
	}
	h.Clear()
	assert.Equal(t, 0, h.Count())
	assert.Empty(t, h.All())
	assert.Equal(t, 4, h.Failures())

	_, err := h.Add(Entry{Trigger: "set", OK: true})
	require.NoError(t, err)
	assert.Len(t, h.All(), 1)
}

func TestHistory_Subscribe(t *testing.T) {
	h := NewHistory(10)

	ch := h.Subscribe()
	_, err := h.Add(Entry{Trigger: "mediaServicesReset", Error: "busy"})
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, "mediaServicesReset", ev.Entry.Trigger)
		assert.False(t, ev.Entry.OK)
	case <-time.After(time.Second):
		t.Fatal("no change event")
	}

	h.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok, "unsubscribed channel is closed")
}

func TestHistory_Close(t *testing.T) {
	h := NewHistory(10)
	ch := h.Subscribe()

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, ok := <-ch
	assert.False(t, ok)

	_, err := h.Add(Entry{Trigger: "set"})
	assert.ErrorIs(t, err, ErrStoreClosed)

	// Subscribing after close yields a closed channel.
	_, ok = <-h.Subscribe()
	assert.False(t, ok)
}

func TestFilterEntries(t *testing.T) {
	now := time.Now()
	entries := []Entry{
		{ID: "4", Trigger: "routeChange", At: now.Add(-time.Minute), OK: false},
		{ID: "3", Trigger: "interruption", At: now.Add(-10 * time.Minute), OK: true},
		{ID: "2", Trigger: "routeChange", At: now.Add(-2 * time.Hour), OK: false},
		{ID: "1", Trigger: "set", At: now.Add(-3 * time.Hour), OK: true},
	}

	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"no filter", FilterOptions{}, []string{"4", "3", "2", "1"}},
		{"limit", FilterOptions{Limit: 3}, []string{"4", "3", "2"}},
		{"failed", FilterOptions{FailedOnly: true}, []string{"4", "2"}},
		{"failed with limit", FilterOptions{FailedOnly: true, Limit: 1}, []string{"4"}},
		{"trigger", FilterOptions{Trigger: "routeChange"}, []string{"4", "2"}},
		{"since", FilterOptions{Since: time.Hour}, []string{"4", "3"}},
		{"no match", FilterOptions{Trigger: "overrideExpired"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterEntries(entries, tt.opts)
			ids := make([]string, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
