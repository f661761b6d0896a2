package closing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-ledger/meridian/internal/ledger"
	"github.com/meridian-ledger/meridian/internal/shared"
)

// AuditPort records closing events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service runs the year-end closing workflow: it zeroes every non-zero
// income and expense balance into retained earnings through one ordinary
// balanced journal entry, then records the closure.
type Service struct {
	repo   Repository
	ledger *ledger.Service
	audit  AuditPort
	now    func() time.Time
}

// NewService constructs the closing service.
func NewService(repo Repository, ledgerService *ledger.Service, audit AuditPort) *Service {
	return &Service{repo: repo, ledger: ledgerService, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ListClosures returns the company's closure history, newest first.
func (s *Service) ListClosures(ctx context.Context, companyID int64) ([]Closure, error) {
	return s.repo.ClosuresByCompany(ctx, companyID)
}

// CloseYear executes the close as one atomic transaction. Any failure
// leaves no partial state: no closing lines, no balance changes, no
// closure record.
func (s *Service) CloseYear(ctx context.Context, in CloseInput) (Closure, error) {
	if err := in.Validate(); err != nil {
		return Closure{}, err
	}
	fiscalYear := in.ClosingDate.Year()
	var closure Closure
	var retainedDelta decimal.Decimal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.ClosureExists(ctx, in.CompanyID, fiscalYear)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyClosed
		}

		retained, err := tx.AccountByTitle(ctx, in.CompanyID, RetainedEarningsTitle)
		if err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				return ErrRetainedEarningsMissing
			}
			return err
		}

		accounts, err := tx.ProfitAndLossAccounts(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		lines, delta := buildClosingLines(accounts, retained.ID)
		if len(lines) == 0 {
			return ErrNothingToClose
		}
		retainedDelta = delta

		transactionID, err := tx.NextTransactionID(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.PostInTx(ctx, tx, ledger.PostingInput{
			CompanyID:     in.CompanyID,
			ActorID:       in.ActorID,
			EntryDate:     in.ClosingDate,
			Description:   ClosingMarker,
			TransactionID: transactionID,
			Lines:         lines,
		}); err != nil {
			return err
		}

		// The closing entry already drove every P&L balance to zero and
		// moved the net into retained earnings. Writing the exact zero
		// again pins the fresh baseline for the next fiscal year even if
		// a stored balance had drifted from its lines.
		for _, account := range accounts {
			if account.Balance.IsZero() {
				continue
			}
			if err := tx.UpdateAccountBalance(ctx, account.ID, decimal.Zero); err != nil {
				return err
			}
		}

		closure, err = tx.InsertClosure(ctx, Closure{
			CompanyID:     in.CompanyID,
			FiscalYear:    fiscalYear,
			TransactionID: transactionID,
			ClosedBy:      in.ActorID,
			ClosedAt:      s.now(),
		})
		return err
	})
	if err != nil {
		return Closure{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:   in.ActorID,
			CompanyID: in.CompanyID,
			Action:    "closing.close_year",
			Entity:    "closure",
			EntityID:  fmt.Sprintf("%d", closure.ID),
			Meta: map[string]any{
				"fiscal_year":    fiscalYear,
				"transaction_id": closure.TransactionID,
				"retained_delta": retainedDelta.StringFixed(2),
			},
			At: s.now(),
		})
	}
	return closure, nil
}

// buildClosingLines constructs one reversing pair per non-zero P&L account:
// a line cancelling the account's normal-side balance and the mirror line on
// retained earnings. The returned delta is the signed net effect on retained
// earnings, positive when closed income exceeds closed expense.
func buildClosingLines(accounts []ledger.Account, retainedID int64) ([]ledger.PostingLineInput, decimal.Decimal) {
	var lines []ledger.PostingLineInput
	delta := decimal.Zero
	for _, account := range accounts {
		if account.Balance.IsZero() {
			continue
		}
		amount := account.Balance.Abs()
		selfDebit := !account.DebitNormal
		if account.Balance.IsNegative() {
			selfDebit = account.DebitNormal
		}
		lines = append(lines,
			ledger.PostingLineInput{AccountID: account.ID, Debit: selfDebit, Amount: amount},
			ledger.PostingLineInput{AccountID: retainedID, Debit: !selfDebit, Amount: amount},
		)
		// Retained earnings is credit-normal: crediting it adds.
		if selfDebit {
			delta = delta.Add(amount)
		} else {
			delta = delta.Sub(amount)
		}
	}
	return lines, delta
}
