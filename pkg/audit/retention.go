package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner is implemented by sinks that support age-based deletion.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention periodically deletes audit entries past the retention window.
type Retention struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// StartRetention schedules pruning on the given cron expression and starts
// the scheduler. Days must be positive.
func StartRetention(sink Pruner, days int, schedule string, logger *slog.Logger) (*Retention, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit.retention")

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		cutoff := time.Now().AddDate(0, 0, -days)
		pruned, err := sink.Prune(ctx, cutoff)
		if err != nil {
			logger.Error("audit prune failed", "error", err)
			return
		}
		logger.Info("audit entries pruned", "pruned", pruned, "cutoff", cutoff.Format(time.RFC3339))
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	logger.Info("audit retention scheduled", "schedule", schedule, "retention_days", days)
	return &Retention{cron: c, logger: logger}, nil
}

// Stop halts the scheduler and waits for an in-flight prune to finish.
func (r *Retention) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}
