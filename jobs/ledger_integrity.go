package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-ledger/meridian/internal/ledger"
)

// HandleLedgerIntegrity returns the handler for TaskLedgerIntegrity. It sums
// debits and credits per company and reports any company whose journal no
// longer balances. Drift is logged, never auto-repaired: an imbalance means
// something wrote outside the posting path and a human should look first.
func HandleLedgerIntegrity(repo ledger.Repository, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LedgerIntegrityPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		drifts, err := repo.IntegrityReport(ctx)
		if err != nil {
			logger.Error("ledger integrity scan failed", slog.Any("error", err))
			return err
		}
		for _, drift := range drifts {
			logger.Error("ledger out of balance",
				slog.String("job", TaskLedgerIntegrity),
				slog.Int64("company_id", drift.CompanyID),
				slog.String("debit", drift.Debit.String()),
				slog.String("credit", drift.Credit.String()))
		}
		if len(drifts) == 0 {
			logger.Info("ledger integrity scan clean", slog.String("job", TaskLedgerIntegrity))
		}
		return nil
	}
}
