package closing

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/meridian/internal/ledger"
	"github.com/meridian-ledger/meridian/internal/shared"
)

type memoryCloseRepo struct {
	accounts  map[int64]ledger.Account
	lines     []ledger.JournalLine
	closures  []Closure
	nextAcct  int64
	nextClose int64
}

type memoryCloseTx struct {
	repo *memoryCloseRepo
}

func newMemoryCloseRepo() *memoryCloseRepo {
	return &memoryCloseRepo{accounts: make(map[int64]ledger.Account)}
}

func (r *memoryCloseRepo) addAccount(a ledger.Account) ledger.Account {
	r.nextAcct++
	a.ID = r.nextAcct
	r.accounts[a.ID] = a
	return a
}

func (r *memoryCloseRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryCloseTx{repo: r})
}

func (r *memoryCloseRepo) ClosuresByCompany(ctx context.Context, companyID int64) ([]Closure, error) {
	var out []Closure
	for _, c := range r.closures {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (t *memoryCloseTx) NextTransactionID(ctx context.Context, companyID int64) (int64, error) {
	var max int64
	for _, line := range t.repo.lines {
		if line.CompanyID == companyID && line.TransactionID > max {
			max = line.TransactionID
		}
	}
	return max + 1, nil
}

func (t *memoryCloseTx) ClaimIdempotencyKey(ctx context.Context, companyID int64, key string) error {
	return nil
}

func (t *memoryCloseTx) AccountsForUpdate(ctx context.Context, companyID int64, accountIDs []int64) (map[int64]ledger.Account, error) {
	out := make(map[int64]ledger.Account, len(accountIDs))
	for _, id := range accountIDs {
		if a, ok := t.repo.accounts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (t *memoryCloseTx) InsertJournalLines(ctx context.Context, lines []ledger.JournalLine) error {
	t.repo.lines = append(t.repo.lines, lines...)
	return nil
}

func (t *memoryCloseTx) UpdateAccountBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	a := t.repo.accounts[accountID]
	a.Balance = balance
	t.repo.accounts[accountID] = a
	return nil
}

func (t *memoryCloseTx) TransactionLines(ctx context.Context, companyID, transactionID int64) ([]ledger.JournalLine, error) {
	var out []ledger.JournalLine
	for _, line := range t.repo.lines {
		if line.CompanyID == companyID && line.TransactionID == transactionID {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return nil, ledger.ErrTransactionNotFound
	}
	return out, nil
}

func (t *memoryCloseTx) MarkReversed(ctx context.Context, companyID, transactionID, reversalTxn int64) error {
	return nil
}

func (t *memoryCloseTx) ListAccounts(ctx context.Context, companyID int64) ([]ledger.Account, error) {
	var out []ledger.Account
	for _, a := range t.repo.accounts {
		if a.CompanyID == companyID && !a.IsDeleted {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *memoryCloseTx) SumsByAccount(ctx context.Context, companyID int64) (map[int64]ledger.AccountSums, error) {
	return map[int64]ledger.AccountSums{}, nil
}

func (t *memoryCloseTx) ClosureExists(ctx context.Context, companyID int64, fiscalYear int) (bool, error) {
	for _, c := range t.repo.closures {
		if c.CompanyID == companyID && c.FiscalYear == fiscalYear {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryCloseTx) InsertClosure(ctx context.Context, closure Closure) (Closure, error) {
	for _, c := range t.repo.closures {
		if c.CompanyID == closure.CompanyID && c.FiscalYear == closure.FiscalYear {
			return Closure{}, ErrAlreadyClosed
		}
	}
	t.repo.nextClose++
	closure.ID = t.repo.nextClose
	t.repo.closures = append(t.repo.closures, closure)
	return closure, nil
}

func (t *memoryCloseTx) AccountByTitle(ctx context.Context, companyID int64, title string) (ledger.Account, error) {
	for _, a := range t.repo.accounts {
		if a.CompanyID == companyID && strings.EqualFold(a.Title, title) && !a.IsDeleted {
			return a, nil
		}
	}
	return ledger.Account{}, ledger.ErrAccountNotFound
}

func (t *memoryCloseTx) ProfitAndLossAccounts(ctx context.Context, companyID int64) ([]ledger.Account, error) {
	var out []ledger.Account
	for id := int64(1); id <= t.repo.nextAcct; id++ {
		a, ok := t.repo.accounts[id]
		if !ok || a.CompanyID != companyID || a.IsDeleted {
			continue
		}
		if a.Type == ledger.AccountTypeIncome || a.Type == ledger.AccountTypeExpense {
			out = append(out, a)
		}
	}
	return out, nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTestCloseService(repo *memoryCloseRepo) (*Service, *recordingAudit) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledgerSvc := ledger.NewService(nil, nil, nil, logger)
	audit := &recordingAudit{}
	svc := NewService(repo, ledgerSvc, audit)
	svc.WithNow(func() time.Time { return time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC) })
	return svc, audit
}

func seedBooks(repo *memoryCloseRepo) (revenue, expense, retained ledger.Account) {
	revenue = repo.addAccount(ledger.Account{
		CompanyID: 1, Title: "Sales Revenue", Type: ledger.AccountTypeIncome,
		DebitNormal: false, Balance: decimal.NewFromInt(1000),
	})
	expense = repo.addAccount(ledger.Account{
		CompanyID: 1, Title: "Rent Expense", Type: ledger.AccountTypeExpense,
		DebitNormal: true, Balance: decimal.NewFromInt(400),
	})
	retained = repo.addAccount(ledger.Account{
		CompanyID: 1, Title: "Retained Earnings", Type: ledger.AccountTypeEquity,
		DebitNormal: false, Balance: decimal.Zero, IsSystem: true,
	})
	return revenue, expense, retained
}

func TestCloseYearRollsNetIncomeIntoRetainedEarnings(t *testing.T) {
	repo := newMemoryCloseRepo()
	svc, audit := newTestCloseService(repo)
	revenue, expense, retained := seedBooks(repo)

	closure, err := svc.CloseYear(context.Background(), CloseInput{
		CompanyID:   1,
		ActorID:     7,
		ClosingDate: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, 2025, closure.FiscalYear)
	require.Equal(t, int64(7), closure.ClosedBy)
	require.NotZero(t, closure.TransactionID)

	// Every P&L balance is zero and retained earnings carries the net.
	require.True(t, repo.accounts[revenue.ID].Balance.IsZero())
	require.True(t, repo.accounts[expense.ID].Balance.IsZero())
	require.True(t, repo.accounts[retained.ID].Balance.Equal(decimal.NewFromInt(600)),
		"retained earnings %s", repo.accounts[retained.ID].Balance)

	// One balanced entry, stamped with the closing marker.
	require.Len(t, repo.lines, 4)
	debit, credit := decimal.Zero, decimal.Zero
	for _, line := range repo.lines {
		require.Equal(t, ClosingMarker, line.Description)
		require.Equal(t, closure.TransactionID, line.TransactionID)
		if line.Debit {
			debit = debit.Add(line.Amount)
		} else {
			credit = credit.Add(line.Amount)
		}
	}
	require.True(t, debit.Equal(credit))

	require.Len(t, audit.logs, 1)
	require.Equal(t, "closing.close_year", audit.logs[0].Action)
}

func TestCloseYearHandlesNegativeBalances(t *testing.T) {
	repo := newMemoryCloseRepo()
	svc, _ := newTestCloseService(repo)
	// Refunds exceeded sales: income account sits on its abnormal side.
	revenue := repo.addAccount(ledger.Account{
		CompanyID: 1, Title: "Sales Revenue", Type: ledger.AccountTypeIncome,
		DebitNormal: false, Balance: decimal.NewFromInt(-200),
	})
	retained := repo.addAccount(ledger.Account{
		CompanyID: 1, Title: "Retained Earnings", Type: ledger.AccountTypeEquity,
		DebitNormal: false, Balance: decimal.Zero,
	})

	_, err := svc.CloseYear(context.Background(), CloseInput{
		CompanyID:   1,
		ClosingDate: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, repo.accounts[revenue.ID].Balance.IsZero())
	require.True(t, repo.accounts[retained.ID].Balance.Equal(decimal.NewFromInt(-200)),
		"retained earnings %s", repo.accounts[retained.ID].Balance)
}

func TestCloseYearTwiceFails(t *testing.T) {
	repo := newMemoryCloseRepo()
	svc, _ := newTestCloseService(repo)
	seedBooks(repo)

	closingDate := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	_, err := svc.CloseYear(context.Background(), CloseInput{CompanyID: 1, ClosingDate: closingDate})
	require.NoError(t, err)

	_, err = svc.CloseYear(context.Background(), CloseInput{CompanyID: 1, ClosingDate: closingDate})
	require.ErrorIs(t, err, ErrAlreadyClosed)
	require.Len(t, repo.closures, 1)
	require.Len(t, repo.lines, 4)
}

func TestCloseYearNothingToClose(t *testing.T) {
	repo := newMemoryCloseRepo()
	svc, _ := newTestCloseService(repo)
	repo.addAccount(ledger.Account{
		CompanyID: 1, Title: "Sales Revenue", Type: ledger.AccountTypeIncome,
		DebitNormal: false, Balance: decimal.Zero,
	})
	repo.addAccount(ledger.Account{
		CompanyID: 1, Title: "Retained Earnings", Type: ledger.AccountTypeEquity,
		DebitNormal: false, Balance: decimal.Zero,
	})

	_, err := svc.CloseYear(context.Background(), CloseInput{
		CompanyID:   1,
		ClosingDate: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrNothingToClose)
	require.Empty(t, repo.closures)
	require.Empty(t, repo.lines)
}

func TestCloseYearRequiresRetainedEarnings(t *testing.T) {
	repo := newMemoryCloseRepo()
	svc, _ := newTestCloseService(repo)
	repo.addAccount(ledger.Account{
		CompanyID: 1, Title: "Sales Revenue", Type: ledger.AccountTypeIncome,
		DebitNormal: false, Balance: decimal.NewFromInt(100),
	})

	_, err := svc.CloseYear(context.Background(), CloseInput{
		CompanyID:   1,
		ClosingDate: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrRetainedEarningsMissing)
	require.Empty(t, repo.lines)
}

func TestBuildClosingLinesDelta(t *testing.T) {
	accounts := []ledger.Account{
		{ID: 1, Type: ledger.AccountTypeIncome, DebitNormal: false, Balance: decimal.NewFromInt(1000)},
		{ID: 2, Type: ledger.AccountTypeExpense, DebitNormal: true, Balance: decimal.NewFromInt(400)},
		{ID: 3, Type: ledger.AccountTypeExpense, DebitNormal: true, Balance: decimal.Zero},
	}
	lines, delta := buildClosingLines(accounts, 99)

	// Zero-balance accounts contribute no lines.
	require.Len(t, lines, 4)
	require.True(t, delta.Equal(decimal.NewFromInt(600)), "delta %s", delta)

	// Income closes with a debit on itself, expense with a credit.
	require.True(t, lines[0].Debit)
	require.Equal(t, int64(1), lines[0].AccountID)
	require.False(t, lines[2].Debit)
	require.Equal(t, int64(2), lines[2].AccountID)
	// Each pair mirrors onto retained earnings.
	require.Equal(t, int64(99), lines[1].AccountID)
	require.Equal(t, int64(99), lines[3].AccountID)
}
