// Package store provides the in-memory reconciliation history.
package store

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 256

// Entry records one attempt to apply a configuration.
type Entry struct {
	ID       string        `json:"id"`
	Trigger  string        `json:"trigger"`
	Reason   string        `json:"reason,omitempty"`
	Revision string        `json:"revision,omitempty"`
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
}

// FilterOptions specifies criteria for filtering entries.
type FilterOptions struct {
	Since      time.Duration // Entries newer than now-since (0=all)
	Trigger    string        // Exact match on trigger
	FailedOnly bool
	Limit      int // Maximum results (0=unlimited)
}

// ChangeEvent signals a new history entry.
type ChangeEvent struct {
	Entry Entry
}

// History is a bounded journal of reconciliation attempts. When full, the
// oldest entry is dropped. Nothing is written to disk.
type History struct {
	mu       sync.RWMutex
	entries  []Entry // ring buffer
	start    int
	count    int
	failures int // lifetime count

	subscribers []chan ChangeEvent
	closed      bool
}

// NewHistory creates a history holding up to capacity entries.
// A non-positive capacity uses DefaultCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		entries: make([]Entry, capacity),
	}
}

// Add appends an entry, assigning an ID and timestamp if missing, and
// returns the stored entry.
func (h *History) Add(e Entry) (Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return Entry{}, ErrStoreClosed
	}

	if e.At.IsZero() {
		e.At = time.Now()
	}
	if e.ID == "" {
		id, err := ulid.New(ulid.Timestamp(e.At), rand.Reader)
		if err != nil {
			return Entry{}, err
		}
		e.ID = id.String()
	}

	capacity := len(h.entries)
	if h.count < capacity {
		h.entries[(h.start+h.count)%capacity] = e
		h.count++
	} else {
		h.entries[h.start] = e
		h.start = (h.start + 1) % capacity
	}
	if !e.OK {
		h.failures++
	}

	h.notifyChange(ChangeEvent{Entry: e})
	return e, nil
}

// All returns every entry, newest first.
func (h *History) All() []Entry {
	return h.Filter(FilterOptions{})
}

// Recent returns up to limit entries, newest first. A zero limit returns all.
func (h *History) Recent(limit int) []Entry {
	return h.Filter(FilterOptions{Limit: limit})
}

// Filter returns entries matching opts, newest first.
func (h *History) Filter(opts FilterOptions) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var cutoff time.Time
	if opts.Since > 0 {
		cutoff = time.Now().Add(-opts.Since)
	}

	result := make([]Entry, 0, h.count)
	capacity := len(h.entries)
	for i := h.count - 1; i >= 0; i-- {
		e := h.entries[(h.start+i)%capacity]

		if !opts.matches(e, cutoff) {
			continue
		}

		result = append(result, e)
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result
}

// FilterEntries applies opts to entries that are already ordered, e.g. a
// page fetched from the daemon. Order is preserved.
func FilterEntries(entries []Entry, opts FilterOptions) []Entry {
	var cutoff time.Time
	if opts.Since > 0 {
		cutoff = time.Now().Add(-opts.Since)
	}

	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !opts.matches(e, cutoff) {
			continue
		}
		result = append(result, e)
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result
}

func (opts FilterOptions) matches(e Entry, cutoff time.Time) bool {
	if !cutoff.IsZero() && e.At.Before(cutoff) {
		return false
	}
	if opts.Trigger != "" && e.Trigger != opts.Trigger {
		return false
	}
	if opts.FailedOnly && e.OK {
		return false
	}
	return true
}

// Latest returns the newest entry.
func (h *History) Latest() (Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return Entry{}, false
	}
	return h.entries[(h.start+h.count-1)%len(h.entries)], true
}

// Count returns the number of entries held.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Failures returns the number of failed attempts ever recorded, including
// entries that have been dropped.
func (h *History) Failures() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.failures
}

// Clear removes all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.entries)
	h.start = 0
	h.count = 0
}

// Subscribe returns a channel that receives an event per added entry.
func (h *History) Subscribe() <-chan ChangeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan ChangeEvent, 16)
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers = append(h.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (h *History) Unsubscribe(ch <-chan ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, sub := range h.subscribers {
		if sub == ch {
			close(sub)
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			return
		}
	}
}

// Close closes all subscriber channels. Later adds fail.
func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
	return nil
}

// notifyChange sends a change event to all subscribers (non-blocking).
func (h *History) notifyChange(event ChangeEvent) {
	for _, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}

// Store errors.
var (
	ErrStoreClosed = storeError("store is closed")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}
