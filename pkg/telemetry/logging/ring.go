package logging

import (
	"log/slog"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	// Time is when the record was logged.
	Time time.Time `json:"time"`

	// Level is the record level string ("DEBUG", "INFO", "WARN", "ERROR").
	Level string `json:"level"`

	// Message is the log message.
	Message string `json:"message"`

	// Attrs holds the record attributes, redacted.
	Attrs map[string]any `json:"attrs,omitempty"`

	severity slog.Level
}

// Ring keeps the most recent log entries in memory. The logs endpoint
// reads from it; writes never block and old entries are overwritten
// once the buffer is full.
type Ring struct {
	mu   sync.Mutex
	buf  []Entry
	next int
	full bool
}

// NewRing creates a ring holding up to size entries.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = 1
	}
	return &Ring{buf: make([]Entry, size)}
}

// Add appends an entry, overwriting the oldest once full.
func (r *Ring) Add(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = entry
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// Len returns the number of stored entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Tail returns up to n entries at or above min, oldest first.
func (r *Ring) Tail(n int, min slog.Level) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.next
	if r.full {
		stored = len(r.buf)
	}

	// Walk oldest to newest.
	start := 0
	if r.full {
		start = r.next
	}

	matched := make([]Entry, 0, stored)
	for i := 0; i < stored; i++ {
		entry := r.buf[(start+i)%len(r.buf)]
		if entry.severity >= min {
			matched = append(matched, entry)
		}
	}

	if n > 0 && len(matched) > n {
		matched = matched[len(matched)-n:]
	}
	return matched
}
