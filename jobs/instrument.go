package jobs

import (
	"context"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-ledger/meridian/internal/jobs"
)

// Instrument wraps a task handler with run, failure, and duration metrics.
func Instrument(metrics *jobmetrics.Metrics, taskType string, h asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(taskType)
		return tracker.End(h(ctx, t))
	}
}
