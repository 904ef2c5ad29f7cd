package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper refreshes tokens entering the refresh window on a cron
// schedule, so request paths rarely pay the exchange latency. The
// manager's single-flight makes a sweep race-free with request-path
// refreshes of the same provider id.
type Sweeper struct {
	manager  *Manager
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
	logger   *slog.Logger
}

// NewSweeper creates a sweeper for the given manager. An empty
// schedule disables it.
func NewSweeper(manager *Manager, schedule string) *Sweeper {
	return &Sweeper{
		manager:  manager,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "auth.sweeper"),
	}
}

// Start begins scheduled sweeping. An empty schedule is a no-op.
//
// Common cron expressions:
//   - "*/15 * * * *" - every 15 minutes
//   - "0 * * * *"    - hourly
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("refresh sweep not configured, skipping sweeper")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule refresh sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("oauth refresh sweeper started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Sweep refreshes every stored token that is inside the refresh
// window. Failures are logged and do not stop the sweep; the failed
// record stays untouched for the next pass or a request-path refresh.
func (s *Sweeper) Sweep(ctx context.Context) {
	var refreshed, failed int
	for _, status := range s.manager.ListTokens() {
		if !status.NeedsRefresh {
			continue
		}

		if _, err := s.manager.Refresh(ctx, status.ProviderID); err != nil {
			failed++
			continue
		}
		refreshed++
	}

	if refreshed > 0 || failed > 0 {
		s.logger.Info("oauth refresh sweep finished",
			"refreshed", refreshed,
			"failed", failed,
		)
	}
}

// Stop stops the sweeper and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("oauth refresh sweeper stopped")
	}
}

// IsRunning reports whether the sweeper is running.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextSweep returns the next scheduled sweep time.
func (s *Sweeper) NextSweep() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
