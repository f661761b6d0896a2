package ledger

import (
	"context"
	"fmt"

	"github.com/meridian-ledger/meridian/internal/shared"
)

// RecalculateBalances recomputes every account balance of the company from
// the full set of non-deleted journal lines and writes the results back in
// one transaction. It is the repair path: running it after any sequence of
// successful postings must reproduce the balances the posting engine
// maintained incrementally, and running it twice changes nothing.
func (s *Service) RecalculateBalances(ctx context.Context, companyID, actorID int64) error {
	if companyID == 0 {
		return fmt.Errorf("ledger: company required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		accounts, err := tx.ListAccounts(ctx, companyID)
		if err != nil {
			return err
		}
		sums, err := tx.SumsByAccount(ctx, companyID)
		if err != nil {
			return err
		}
		// Lines referencing soft-deleted accounts stay in sums but are
		// never visited; accounts with no lines reset to zero.
		for _, account := range accounts {
			agg := sums[account.ID]
			balance := agg.Credit.Sub(agg.Debit)
			if account.DebitNormal {
				balance = agg.Debit.Sub(agg.Credit)
			}
			if err := tx.UpdateAccountBalance(ctx, account.ID, balance); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:   actorID,
			CompanyID: companyID,
			Action:    "ledger.recalculate",
			Entity:    "company",
			EntityID:  fmt.Sprintf("%d", companyID),
			At:        s.now(),
		})
	}
	return nil
}
