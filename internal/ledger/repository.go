package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository encapsulates DB operations for the ledger stores.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListAccounts(ctx context.Context, companyID int64) ([]Account, error)
	GetAccount(ctx context.Context, companyID, accountID int64) (Account, error)
	CreateAccount(ctx context.Context, account Account) (Account, error)
	IntegrityReport(ctx context.Context) ([]IntegrityDrift, error)
}

// TxRepository exposes the operations available within one atomic unit.
// The posting engine, recalculator, and closing workflow all mutate state
// exclusively through this interface.
type TxRepository interface {
	NextTransactionID(ctx context.Context, companyID int64) (int64, error)
	ClaimIdempotencyKey(ctx context.Context, companyID int64, key string) error
	AccountsForUpdate(ctx context.Context, companyID int64, accountIDs []int64) (map[int64]Account, error)
	InsertJournalLines(ctx context.Context, lines []JournalLine) error
	UpdateAccountBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
	TransactionLines(ctx context.Context, companyID, transactionID int64) ([]JournalLine, error)
	MarkReversed(ctx context.Context, companyID, transactionID, reversalTxn int64) error
	ListAccounts(ctx context.Context, companyID int64) ([]Account, error)
	SumsByAccount(ctx context.Context, companyID int64) (map[int64]AccountSums, error)
}

// AccountSums aggregates non-deleted line amounts for one account.
type AccountSums struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// IntegrityDrift reports a company whose ledger violates the double-entry
// invariant. An empty report means every company balances.
type IntegrityDrift struct {
	CompanyID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed ledger repository.
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
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const accountColumns = `id, company_id, title, description, account_type, account_sub_type, debit_normal, balance, contra_account_id, is_system, is_deleted, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.CompanyID, &a.Title, &a.Description, &a.Type, &a.SubType, &a.DebitNormal,
		&a.Balance, &a.ContraAccountID, &a.IsSystem, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func collectAccounts(rows pgx.Rows) ([]Account, error) {
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) ListAccounts(ctx context.Context, companyID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 AND NOT is_deleted ORDER BY title`, companyID)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func (r *repository) GetAccount(ctx context.Context, companyID, accountID int64) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 AND NOT is_deleted`, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	if a.CompanyID != companyID {
		return Account{}, ErrCrossCompanyAccess
	}
	return a, nil
}

func (r *repository) CreateAccount(ctx context.Context, account Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (company_id, title, description, account_type, account_sub_type, debit_normal, balance, contra_account_id, is_system)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at, updated_at`,
		account.CompanyID, account.Title, account.Description, account.Type, account.SubType,
		account.DebitNormal, account.Balance, account.ContraAccountID, account.IsSystem)
	if err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return Account{}, err
	}
	return account, nil
}

func (r *repository) IntegrityReport(ctx context.Context) ([]IntegrityDrift, error) {
	rows, err := r.db.Query(ctx, `SELECT company_id,
		COALESCE(SUM(amount) FILTER (WHERE is_debit), 0),
		COALESCE(SUM(amount) FILTER (WHERE NOT is_debit), 0)
	FROM journal_lines WHERE NOT is_deleted GROUP BY company_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var drifts []IntegrityDrift
	for rows.Next() {
		var d IntegrityDrift
		if err := rows.Scan(&d.CompanyID, &d.Debit, &d.Credit); err != nil {
			return nil, err
		}
		if !d.Debit.Equal(d.Credit) {
			drifts = append(drifts, d)
		}
	}
	return drifts, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an already-open pgx transaction in the ledger tx
// port. Composite workflows such as the year-end close use it to nest
// ledger operations inside their own atomic unit.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

// NextTransactionID serialises id assignment per company with an advisory
// lock held for the rest of the transaction, so the max+1 read and the line
// inserts commit as one ordered unit.
func (r *txRepository) NextTransactionID(ctx context.Context, companyID int64) (int64, error) {
	if _, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, companyID); err != nil {
		return 0, err
	}
	var next int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(transaction_id), 0) + 1 FROM journal_lines WHERE company_id=$1`, companyID).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// ClaimIdempotencyKey reserves a client key within the company's namespace;
// keys are scoped per tenant so the same client key may be used by different
// companies.
func (r *txRepository) ClaimIdempotencyKey(ctx context.Context, companyID int64, key string) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO idempotency_keys (company_id, key, module, created_at) VALUES ($1, $2, 'ledger', $3)`, companyID, key, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePosting
		}
		return err
	}
	return nil
}

func (r *txRepository) AccountsForUpdate(ctx context.Context, companyID int64, accountIDs []int64) (map[int64]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, accountIDs)
	if err != nil {
		return nil, err
	}
	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return byID, nil
}

func (r *txRepository) InsertJournalLines(ctx context.Context, lines []JournalLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (transaction_id, company_id, account_id, is_debit, amount, description, entry_date, created_by, extra)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			line.TransactionID, line.CompanyID, line.AccountID, line.Debit, line.Amount,
			line.Description, line.EntryDate, line.CreatedBy, line.Extra); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) UpdateAccountBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET balance=$2, updated_at=NOW() WHERE id=$1`, accountID, balance)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

const lineColumns = `id, transaction_id, company_id, account_id, is_debit, amount, description, entry_date, created_by, extra, reversed_by_txn, is_deleted, created_at`

func collectLines(rows pgx.Rows) ([]JournalLine, error) {
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.TransactionID, &l.CompanyID, &l.AccountID, &l.Debit, &l.Amount,
			&l.Description, &l.EntryDate, &l.CreatedBy, &l.Extra, &l.ReversedByTxn, &l.IsDeleted, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *txRepository) TransactionLines(ctx context.Context, companyID, transactionID int64) ([]JournalLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+lineColumns+` FROM journal_lines
WHERE company_id=$1 AND transaction_id=$2 AND NOT is_deleted ORDER BY id`, companyID, transactionID)
	if err != nil {
		return nil, err
	}
	lines, err := collectLines(rows)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrTransactionNotFound
	}
	return lines, nil
}

func (r *txRepository) MarkReversed(ctx context.Context, companyID, transactionID, reversalTxn int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_lines SET reversed_by_txn=$3
WHERE company_id=$1 AND transaction_id=$2 AND reversed_by_txn IS NULL AND NOT is_deleted`, companyID, transactionID, reversalTxn)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyReversed
	}
	return nil
}

func (r *txRepository) ListAccounts(ctx context.Context, companyID int64) ([]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 AND NOT is_deleted ORDER BY title`, companyID)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func (r *txRepository) SumsByAccount(ctx context.Context, companyID int64) (map[int64]AccountSums, error) {
	rows, err := r.tx.Query(ctx, `SELECT account_id,
		COALESCE(SUM(amount) FILTER (WHERE is_debit), 0),
		COALESCE(SUM(amount) FILTER (WHERE NOT is_debit), 0)
	FROM journal_lines WHERE company_id=$1 AND NOT is_deleted GROUP BY account_id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sums := make(map[int64]AccountSums)
	for rows.Next() {
		var accountID int64
		var s AccountSums
		if err := rows.Scan(&accountID, &s.Debit, &s.Credit); err != nil {
			return nil, err
		}
		sums[accountID] = s
	}
	return sums, rows.Err()
}
