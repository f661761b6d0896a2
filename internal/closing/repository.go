package closing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ledger/meridian/internal/ledger"
)

// TxRepository extends the ledger tx port with closure bookkeeping so the
// whole close commits as one transaction.
type TxRepository interface {
	ledger.TxRepository
	ClosureExists(ctx context.Context, companyID int64, fiscalYear int) (bool, error)
	InsertClosure(ctx context.Context, closure Closure) (Closure, error)
	AccountByTitle(ctx context.Context, companyID int64, title string) (ledger.Account, error)
	ProfitAndLossAccounts(ctx context.Context, companyID int64) ([]ledger.Account, error)
}

// Repository encapsulates DB operations for year-end closures.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ClosuresByCompany(ctx context.Context, companyID int64) ([]Closure, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed closing repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	wrapper := &txRepository{TxRepository: ledger.NewTxRepository(tx), tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repository) ClosuresByCompany(ctx context.Context, companyID int64) ([]Closure, error) {
	rows, err := r.db.Query(ctx, `SELECT id, company_id, fiscal_year, transaction_id, closed_by, closed_at
FROM year_end_closures WHERE company_id=$1 ORDER BY fiscal_year DESC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var closures []Closure
	for rows.Next() {
		var c Closure
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.FiscalYear, &c.TransactionID, &c.ClosedBy, &c.ClosedAt); err != nil {
			return nil, err
		}
		closures = append(closures, c)
	}
	return closures, rows.Err()
}

type txRepository struct {
	ledger.TxRepository
	tx pgx.Tx
}

func (r *txRepository) ClosureExists(ctx context.Context, companyID int64, fiscalYear int) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM year_end_closures WHERE company_id=$1 AND fiscal_year=$2)`, companyID, fiscalYear).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertClosure(ctx context.Context, closure Closure) (Closure, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO year_end_closures (company_id, fiscal_year, transaction_id, closed_by, closed_at)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, closure.CompanyID, closure.FiscalYear, closure.TransactionID, closure.ClosedBy, closure.ClosedAt)
	if err := row.Scan(&closure.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Closure{}, ErrAlreadyClosed
		}
		return Closure{}, err
	}
	return closure, nil
}

func (r *txRepository) AccountByTitle(ctx context.Context, companyID int64, title string) (ledger.Account, error) {
	var a ledger.Account
	err := r.tx.QueryRow(ctx, `SELECT id, company_id, title, description, account_type, account_sub_type, debit_normal, balance, contra_account_id, is_system, is_deleted, created_at, updated_at
FROM accounts WHERE company_id=$1 AND LOWER(title)=LOWER($2) AND NOT is_deleted LIMIT 1`, companyID, title).
		Scan(&a.ID, &a.CompanyID, &a.Title, &a.Description, &a.Type, &a.SubType, &a.DebitNormal,
			&a.Balance, &a.ContraAccountID, &a.IsSystem, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Account{}, ledger.ErrAccountNotFound
		}
		return ledger.Account{}, err
	}
	return a, nil
}

// ProfitAndLossAccounts locks the company's income and expense accounts for
// the remainder of the close transaction.
func (r *txRepository) ProfitAndLossAccounts(ctx context.Context, companyID int64) ([]ledger.Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, company_id, title, description, account_type, account_sub_type, debit_normal, balance, contra_account_id, is_system, is_deleted, created_at, updated_at
FROM accounts WHERE company_id=$1 AND account_type IN ('INCOME','EXPENSE') AND NOT is_deleted ORDER BY id FOR UPDATE`, companyID)
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
