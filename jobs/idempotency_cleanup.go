package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-ledger/meridian/internal/shared"
)

const defaultClaimRetention = 45 * 24 * time.Hour

// HandleIdempotencyCleanup returns the handler for TaskIdempotencyCleanup.
func HandleIdempotencyCleanup(janitor *shared.IdempotencyJanitor, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IdempotencyCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		olderThan := defaultClaimRetention
		if payload.OlderThanHours > 0 {
			olderThan = time.Duration(payload.OlderThanHours) * time.Hour
		}
		if err := janitor.Cleanup(ctx, olderThan); err != nil {
			logger.Error("idempotency cleanup failed", slog.Any("error", err))
			return err
		}
		logger.Info("idempotency claims pruned",
			slog.String("job", TaskIdempotencyCleanup), slog.Duration("older_than", olderThan))
		return nil
	}
}
