package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-ledger/meridian/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MeterPort counts committed postings per company. Metering is
// observational: failures are logged, never propagated.
type MeterPort interface {
	RecordPosting(ctx context.Context, companyID int64, at time.Time) error
}

// Service is the posting engine. It validates balanced entries, assigns
// transaction ids, and commits line inserts together with every touched
// account's balance update as a single atomic unit.
type Service struct {
	repo   Repository
	audit  AuditPort
	meter  MeterPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo Repository, audit AuditPort, meter MeterPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, meter: meter, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PostTransaction validates and atomically commits one balanced entry,
// returning the assigned transaction id.
func (s *Service) PostTransaction(ctx context.Context, input PostingInput) (int64, error) {
	if err := input.Validate(); err != nil {
		return 0, err
	}
	var txnID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		txnID, err = s.PostInTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.afterCommit(ctx, "ledger.post", input, txnID)
	return txnID, nil
}

// PostInTx runs the posting steps against an already-open transaction. The
// year-end close nests its own closing entry through this entry point so the
// whole close remains one atomic unit.
func (s *Service) PostInTx(ctx context.Context, tx TxRepository, input PostingInput) (int64, error) {
	if err := input.Validate(); err != nil {
		return 0, err
	}
	if input.IdempotencyKey != "" {
		if err := tx.ClaimIdempotencyKey(ctx, input.CompanyID, input.IdempotencyKey); err != nil {
			return 0, err
		}
	}

	accountIDs := distinctAccountIDs(input.Lines)
	accounts, err := tx.AccountsForUpdate(ctx, input.CompanyID, accountIDs)
	if err != nil {
		return 0, err
	}
	for _, id := range accountIDs {
		account, ok := accounts[id]
		if !ok {
			return 0, fmt.Errorf("%w: id %d", ErrAccountNotFound, id)
		}
		if account.CompanyID != input.CompanyID {
			return 0, fmt.Errorf("%w: account %d", ErrCrossCompanyAccess, id)
		}
		if account.IsDeleted {
			return 0, fmt.Errorf("%w: account %d", ErrAccountDeleted, id)
		}
	}

	txnID := input.TransactionID
	if txnID == 0 {
		if txnID, err = tx.NextTransactionID(ctx, input.CompanyID); err != nil {
			return 0, err
		}
	}

	lines := make([]JournalLine, 0, len(input.Lines))
	for _, in := range input.Lines {
		description := in.Description
		if description == "" {
			description = input.Description
		}
		lines = append(lines, JournalLine{
			TransactionID: txnID,
			CompanyID:     input.CompanyID,
			AccountID:     in.AccountID,
			Debit:         in.Debit,
			Amount:        in.Amount,
			Description:   description,
			EntryDate:     input.EntryDate,
			CreatedBy:     input.ActorID,
			Extra:         input.Extra,
		})
	}
	if err := tx.InsertJournalLines(ctx, lines); err != nil {
		return 0, err
	}

	for _, id := range accountIDs {
		account := accounts[id]
		balance := account.Balance
		for _, in := range input.Lines {
			if in.AccountID != id {
				continue
			}
			balance = balance.Add(account.Delta(in.Debit, in.Amount))
		}
		if err := tx.UpdateAccountBalance(ctx, id, balance); err != nil {
			return 0, err
		}
	}
	return txnID, nil
}

// ReverseInput wraps parameters for reversing a committed transaction.
type ReverseInput struct {
	CompanyID     int64
	TransactionID int64
	ActorID       int64
	Description   string
	EntryDate     time.Time
}

// ReverseTransaction voids a committed transaction by posting its
// mirror-image lines under a fresh transaction id and stamping the original
// lines with the reversal link. The ledger itself stays append-only.
func (s *Service) ReverseTransaction(ctx context.Context, input ReverseInput) (int64, error) {
	if input.TransactionID == 0 {
		return 0, errors.New("ledger: transaction id required")
	}
	var reversalID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines, err := tx.TransactionLines(ctx, input.CompanyID, input.TransactionID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if line.ReversedByTxn != nil {
				return ErrAlreadyReversed
			}
		}
		nextID, err := tx.NextTransactionID(ctx, input.CompanyID)
		if err != nil {
			return err
		}
		entryDate := input.EntryDate
		if entryDate.IsZero() {
			entryDate = s.now()
		}
		posting := PostingInput{
			CompanyID:     input.CompanyID,
			ActorID:       input.ActorID,
			EntryDate:     entryDate,
			Description:   defaultReversalDescription(input.Description, input.TransactionID),
			TransactionID: nextID,
			Lines:         mirrorLines(lines),
		}
		if reversalID, err = s.PostInTx(ctx, tx, posting); err != nil {
			return err
		}
		return tx.MarkReversed(ctx, input.CompanyID, input.TransactionID, reversalID)
	})
	if err != nil {
		return 0, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:   input.ActorID,
			CompanyID: input.CompanyID,
			Action:    "ledger.reverse",
			Entity:    "transaction",
			EntityID:  fmt.Sprintf("%d", input.TransactionID),
			Meta:      map[string]any{"reversal_txn": reversalID},
			At:        s.now(),
		})
	}
	return reversalID, nil
}

// ListAccounts returns the company's chart of accounts.
func (s *Service) ListAccounts(ctx context.Context, companyID int64) ([]Account, error) {
	return s.repo.ListAccounts(ctx, companyID)
}

// GetAccount returns one account scoped to the company.
func (s *Service) GetAccount(ctx context.Context, companyID, accountID int64) (Account, error) {
	return s.repo.GetAccount(ctx, companyID, accountID)
}

// CreateAccount provisions a chart of accounts entry. The normal side is
// derived from the type when the caller does not force one.
func (s *Service) CreateAccount(ctx context.Context, account Account) (Account, error) {
	if account.CompanyID == 0 {
		return Account{}, errors.New("ledger: company required")
	}
	if account.Title == "" {
		return Account{}, errors.New("ledger: title required")
	}
	if account.SubType == "" {
		account.SubType = SubTypeGeneral
	}
	return s.repo.CreateAccount(ctx, account)
}

func (s *Service) afterCommit(ctx context.Context, action string, input PostingInput, txnID int64) {
	if s.meter != nil {
		if err := s.meter.RecordPosting(ctx, input.CompanyID, s.now()); err != nil && s.logger != nil {
			s.logger.Warn("posting meter", slog.Any("error", err), slog.Int64("company_id", input.CompanyID))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:   input.ActorID,
			CompanyID: input.CompanyID,
			Action:    action,
			Entity:    "transaction",
			EntityID:  fmt.Sprintf("%d", txnID),
			Meta:      map[string]any{"lines": len(input.Lines)},
			At:        s.now(),
		})
	}
}

func distinctAccountIDs(lines []PostingLineInput) []int64 {
	seen := make(map[int64]bool, len(lines))
	var ids []int64
	for _, line := range lines {
		if !seen[line.AccountID] {
			seen[line.AccountID] = true
			ids = append(ids, line.AccountID)
		}
	}
	return ids
}

func mirrorLines(lines []JournalLine) []PostingLineInput {
	out := make([]PostingLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, PostingLineInput{
			AccountID:   line.AccountID,
			Debit:       !line.Debit,
			Amount:      line.Amount,
			Description: line.Description,
		})
	}
	return out
}

func defaultReversalDescription(description string, transactionID int64) string {
	if description != "" {
		return description
	}
	return fmt.Sprintf("Reversal of transaction %d", transactionID)
}
