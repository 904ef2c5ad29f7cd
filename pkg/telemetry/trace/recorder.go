package trace

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RecorderConfig contains configuration for the Recorder.
type RecorderConfig struct {
	// BufferSize is the async write channel capacity.
	// Default: 1000
	BufferSize int

	// WriteTimeout bounds a single storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		BufferSize:   1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes trace records to storage asynchronously. Dispatch
// must never wait on trace persistence, so Record enqueues and returns;
// when the buffer is full the record is dropped and counted.
type Recorder struct {
	storage Storage
	config  *RecorderConfig

	records chan *Record
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Int64

	logger *slog.Logger
}

// NewRecorder creates a recorder in front of the given storage backend
// and starts its write worker.
func NewRecorder(storage Storage, config *RecorderConfig) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		records: make(chan *Record, config.BufferSize),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "trace.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("trace recorder initialized",
		"buffer_size", config.BufferSize,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record enqueues a record for persistence and returns immediately. A
// missing ID is filled in. Records are dropped, and the drop counted,
// when the buffer is full or the recorder is shutting down.
func (r *Recorder) Record(record *Record) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	select {
	case <-r.done:
		r.dropped.Add(1)
	default:
		select {
		case r.records <- record:
		default:
			r.dropped.Add(1)
			r.logger.Warn("trace buffer full, dropping record",
				"record_id", record.ID,
				"request_id", record.RequestID,
			)
		}
	}
}

// Dropped returns the number of records dropped so far.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close drains pending records and stops the worker.
func (r *Recorder) Close() error {
	close(r.done)
	r.wg.Wait()

	if dropped := r.dropped.Load(); dropped > 0 {
		r.logger.Warn("trace recorder closed with dropped records", "dropped", dropped)
	}
	return nil
}

// worker drains the record channel and writes to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.records:
			r.write(record)

		case <-r.done:
			for {
				select {
				case record := <-r.records:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

// write persists a single record.
func (r *Recorder) write(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store trace record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	r.logger.Debug("trace recorded",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"outcome", record.Outcome,
		"attempts", len(record.Attempts),
	)
}
