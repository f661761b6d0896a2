package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-ledger/meridian/internal/ledger"
)

// HandleLedgerRecalc returns the handler for TaskLedgerRecalc. The rebuild
// runs inside one transaction, so a crash mid-task leaves balances untouched
// and the retry starts clean.
func HandleLedgerRecalc(svc *ledger.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LedgerRecalcPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.CompanyID == 0 {
			return asynq.SkipRetry
		}
		if err := svc.RecalculateBalances(ctx, payload.CompanyID, payload.ActorID); err != nil {
			logger.Error("ledger recalculation failed",
				slog.Int64("company_id", payload.CompanyID), slog.Any("error", err))
			return err
		}
		logger.Info("ledger recalculated",
			slog.String("job", TaskLedgerRecalc), slog.Int64("company_id", payload.CompanyID))
		return nil
	}
}
