package storage

import (
	"context"
	"sync"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/trace"
)

// DefaultMemoryLimit caps the memory backend when no limit is given.
const DefaultMemoryLimit = 10000

// MemoryStorage implements trace.Storage with a bounded in-memory
// buffer. Once the limit is reached the oldest records are evicted, so
// the backend never grows without bound. It is the default backend;
// records do not survive a restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*trace.Record // insertion order, oldest first
	limit   int
}

// NewMemoryStorage creates a memory backend holding up to limit
// records.
func NewMemoryStorage(limit int) *MemoryStorage {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &MemoryStorage{limit: limit}
}

// Store persists a record, evicting the oldest when full.
func (s *MemoryStorage) Store(ctx context.Context, record *trace.Record) error {
	recordCopy := *record

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == s.limit {
		copy(s.records, s.records[1:])
		s.records[len(s.records)-1] = &recordCopy
		return nil
	}

	s.records = append(s.records, &recordCopy)
	return nil
}

// Query returns matching records, newest first.
func (s *MemoryStorage) Query(ctx context.Context, query *trace.Query) ([]*trace.Record, error) {
	if err := query.Validate(); err != nil {
		return nil, trace.NewStorageError("memory", "query", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []*trace.Record{}
	for i := len(s.records) - 1; i >= 0; i-- {
		if query.Matches(s.records[i]) {
			recordCopy := *s.records[i]
			matched = append(matched, &recordCopy)
		}
	}

	start := query.Offset
	if start > len(matched) {
		return []*trace.Record{}, nil
	}

	end := len(matched)
	if query.Limit > 0 && start+query.Limit < end {
		end = start + query.Limit
	}

	return matched[start:end], nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, query *trace.Query) (int64, error) {
	if err := query.Validate(); err != nil {
		return 0, trace.NewStorageError("memory", "count", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if query.Matches(record) {
			count++
		}
	}
	return count, nil
}

// DeleteBefore removes records older than cutoff.
func (s *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, record := range s.records {
		if record.Time.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}

	// Release the tail so evicted records can be collected.
	for i := len(kept); i < len(s.records); i++ {
		s.records[i] = nil
	}
	s.records = kept

	return deleted, nil
}

// Close releases the stored records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	return nil
}

// Size returns the number of stored records (for testing).
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
