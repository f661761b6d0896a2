package reports

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ledger/meridian/internal/ledger"
)

// Repository is the read-side port for report derivation. Implementations
// must surface store errors instead of returning partial data.
type Repository interface {
	AccountsByCompany(ctx context.Context, companyID int64) ([]ledger.Account, error)
	AccountByID(ctx context.Context, companyID, accountID int64) (ledger.Account, error)
	LinesInRange(ctx context.Context, companyID int64, from, to time.Time) ([]ledger.JournalLine, error)
	AccountLinesInRange(ctx context.Context, companyID, accountID int64, from, to time.Time) ([]ledger.JournalLine, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed report repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, company_id, title, description, account_type, account_sub_type, debit_normal, balance, contra_account_id, is_system, is_deleted, created_at, updated_at`

const lineColumns = `id, transaction_id, company_id, account_id, is_debit, amount, description, entry_date, created_by, extra, reversed_by_txn, is_deleted, created_at`

func (r *repository) AccountsByCompany(ctx context.Context, companyID int64) ([]ledger.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 AND NOT is_deleted ORDER BY title`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []ledger.Account
	for rows.Next() {
		var a ledger.Account
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Title, &a.Description, &a.Type, &a.SubType, &a.DebitNormal,
			&a.Balance, &a.ContraAccountID, &a.IsSystem, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) AccountByID(ctx context.Context, companyID, accountID int64) (ledger.Account, error) {
	var a ledger.Account
	err := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 AND NOT is_deleted`, accountID).
		Scan(&a.ID, &a.CompanyID, &a.Title, &a.Description, &a.Type, &a.SubType, &a.DebitNormal,
			&a.Balance, &a.ContraAccountID, &a.IsSystem, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Account{}, ledger.ErrAccountNotFound
		}
		return ledger.Account{}, err
	}
	if a.CompanyID != companyID {
		return ledger.Account{}, ledger.ErrCrossCompanyAccess
	}
	return a, nil
}

func (r *repository) LinesInRange(ctx context.Context, companyID int64, from, to time.Time) ([]ledger.JournalLine, error) {
	rows, err := r.db.Query(ctx, `SELECT `+lineColumns+` FROM journal_lines
WHERE company_id=$1 AND NOT is_deleted AND entry_date >= $2 AND entry_date <= $3 ORDER BY entry_date, id`, companyID, from, to)
	if err != nil {
		return nil, err
	}
	return collectJournalLines(rows)
}

func (r *repository) AccountLinesInRange(ctx context.Context, companyID, accountID int64, from, to time.Time) ([]ledger.JournalLine, error) {
	rows, err := r.db.Query(ctx, `SELECT `+lineColumns+` FROM journal_lines
WHERE company_id=$1 AND account_id=$2 AND NOT is_deleted AND entry_date >= $3 AND entry_date <= $4 ORDER BY entry_date, id`, companyID, accountID, from, to)
	if err != nil {
		return nil, err
	}
	return collectJournalLines(rows)
}

func collectJournalLines(rows pgx.Rows) ([]ledger.JournalLine, error) {
	defer rows.Close()
	var lines []ledger.JournalLine
	for rows.Next() {
		var l ledger.JournalLine
		if err := rows.Scan(&l.ID, &l.TransactionID, &l.CompanyID, &l.AccountID, &l.Debit, &l.Amount,
			&l.Description, &l.EntryDate, &l.CreatedBy, &l.Extra, &l.ReversedByTxn, &l.IsDeleted, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
