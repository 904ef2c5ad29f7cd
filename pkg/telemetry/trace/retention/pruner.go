package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/trace"
)

// Pruner deletes trace records older than the retention period. The
// Scheduler runs it on a cron schedule; Prune can also be called
// directly.
type Pruner struct {
	storage       trace.Storage
	retentionDays int
	logger        *slog.Logger
	scheduler     *Scheduler
}

// NewPruner creates a pruner. retentionDays of zero disables age-based
// pruning; schedule is a cron expression, empty disables scheduling.
func NewPruner(storage trace.Storage, retentionDays int, schedule string) *Pruner {
	pruner := &Pruner{
		storage:       storage,
		retentionDays: retentionDays,
		logger:        slog.Default().With("component", "trace.retention"),
	}
	pruner.scheduler = NewScheduler(pruner, schedule)
	return pruner
}

// Prune deletes records older than the retention period and returns
// how many were deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.retentionDays <= 0 {
		p.logger.Debug("retention disabled, nothing to prune")
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -p.retentionDays)

	deleted, err := p.storage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		p.logger.Info("pruned trace records",
			"deleted_count", deleted,
			"retention_days", p.retentionDays,
			"cutoff", cutoff,
		)
	} else {
		p.logger.Debug("no trace records pruned", "retention_days", p.retentionDays)
	}

	return deleted, nil
}

// Start starts the pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled run, or nil when
// not scheduled.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
