// Package requestlog keeps a bounded in-memory history of handled requests
// for inspection through the admin surface.
package requestlog

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry records one handled request.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Query      string    `json:"query,omitempty"`
	Endpoint   string    `json:"endpoint,omitempty"` // matched pattern, empty when unmatched
	Status     int       `json:"status"`
	DurationMs int64     `json:"durationMs"`
	RemoteAddr string    `json:"remoteAddr,omitempty"`
}

// Log is a fixed-capacity ring of entries. Writers never block readers for
// long; the lock is held only for the slice bookkeeping.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// New creates a Log keeping at most capacity entries. Capacity below 1 is
// raised to 1.
func New(capacity int) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{entries: make([]Entry, capacity)}
}

// Record appends an entry, evicting the oldest when full. Entries without an
// ID get one assigned.
func (l *Log) Record(e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	l.mu.Lock()
	l.entries[l.next] = e
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}
	l.mu.Unlock()
}

// List returns entries newest-first, at most limit (0 means all).
func (l *Log) List(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.next
	if l.full {
		size = len(l.entries)
	}
	out := make([]Entry, 0, size)
	for i := 1; i <= size; i++ {
		idx := l.next - i
		if idx < 0 {
			idx += len(l.entries)
		}
		out = append(out, l.entries[idx])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Len reports the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}

// Clear drops all entries.
func (l *Log) Clear() {
	l.mu.Lock()
	l.next = 0
	l.full = false
	l.mu.Unlock()
}
