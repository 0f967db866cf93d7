// Package jobs defines the background tasks and the worker harness that runs
// them.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPrune drops dead members from the per-account session
	// indexes.
	TaskSessionsPrune = "sessions:prune"
	// TaskAuditPrune trims audit events beyond the retention window.
	TaskAuditPrune = "audit:prune"
)

// NewSessionsPruneTask constructs the session index maintenance task.
func NewSessionsPruneTask() *asynq.Task {
	return asynq.NewTask(TaskSessionsPrune, nil)
}

// NewAuditPruneTask constructs the audit retention task.
func NewAuditPruneTask() *asynq.Task {
	return asynq.NewTask(TaskAuditPrune, nil)
}

// SessionPruner is satisfied by the auth session manager.
type SessionPruner interface {
	PruneIndexes(ctx context.Context) (int, error)
}

// AuditPruner is satisfied by the audit recorder.
type AuditPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// HandleSessionsPrune returns the handler for TaskSessionsPrune.
func HandleSessionsPrune(pruner SessionPruner, metrics *Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskSessionsPrune)
		removed, err := pruner.PruneIndexes(ctx)
		if err != nil {
			return tracker.End(err)
		}
		if logger != nil {
			logger.Info("pruned session indexes", slog.Int("removed", removed))
		}
		return tracker.End(nil)
	}
}

// HandleAuditPrune returns the handler for TaskAuditPrune.
func HandleAuditPrune(pruner AuditPruner, retention time.Duration, metrics *Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskAuditPrune)
		removed, err := pruner.Prune(ctx, retention)
		if err != nil {
			return tracker.End(err)
		}
		if logger != nil {
			logger.Info("pruned audit events", slog.Int64("removed", removed))
		}
		return tracker.End(nil)
	}
}
