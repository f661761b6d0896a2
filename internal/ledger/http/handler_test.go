package ledgerhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/meridian/internal/ledger"
	"github.com/meridian-ledger/meridian/internal/ledger/reports"
	"github.com/meridian-ledger/meridian/internal/observability"
	"github.com/meridian-ledger/meridian/internal/shared"
)

type stubRepo struct {
	accounts map[int64]ledger.Account
	lines    []ledger.JournalLine
	claimed  map[string]bool
}

type stubTx struct {
	repo *stubRepo
}

func newStubRepo() *stubRepo {
	cash := ledger.Account{
		ID: 1, CompanyID: 1, Title: "Cash", Type: ledger.AccountTypeAsset,
		SubType: ledger.SubTypeCash, DebitNormal: true, Balance: decimal.Zero,
	}
	revenue := ledger.Account{
		ID: 2, CompanyID: 1, Title: "Sales Revenue", Type: ledger.AccountTypeIncome,
		SubType: ledger.SubTypeGeneral, DebitNormal: false, Balance: decimal.Zero,
	}
	return &stubRepo{
		accounts: map[int64]ledger.Account{1: cash, 2: revenue},
		claimed:  make(map[string]bool),
	}
}

func (r *stubRepo) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	return fn(ctx, &stubTx{repo: r})
}

func (r *stubRepo) ListAccounts(ctx context.Context, companyID int64) ([]ledger.Account, error) {
	var out []ledger.Account
	for _, a := range r.accounts {
		if a.CompanyID == companyID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubRepo) GetAccount(ctx context.Context, companyID, accountID int64) (ledger.Account, error) {
	a, ok := r.accounts[accountID]
	if !ok || a.CompanyID != companyID {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return a, nil
}

func (r *stubRepo) CreateAccount(ctx context.Context, account ledger.Account) (ledger.Account, error) {
	account.ID = int64(len(r.accounts) + 1)
	r.accounts[account.ID] = account
	return account, nil
}

func (r *stubRepo) IntegrityReport(ctx context.Context) ([]ledger.IntegrityDrift, error) {
	return nil, nil
}

func (t *stubTx) NextTransactionID(ctx context.Context, companyID int64) (int64, error) {
	var max int64
	for _, line := range t.repo.lines {
		if line.CompanyID == companyID && line.TransactionID > max {
			max = line.TransactionID
		}
	}
	return max + 1, nil
}

func (t *stubTx) ClaimIdempotencyKey(ctx context.Context, companyID int64, key string) error {
	if t.repo.claimed[key] {
		return ledger.ErrDuplicatePosting
	}
	t.repo.claimed[key] = true
	return nil
}

func (t *stubTx) AccountsForUpdate(ctx context.Context, companyID int64, accountIDs []int64) (map[int64]ledger.Account, error) {
	out := make(map[int64]ledger.Account)
	for _, id := range accountIDs {
		if a, ok := t.repo.accounts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (t *stubTx) InsertJournalLines(ctx context.Context, lines []ledger.JournalLine) error {
	t.repo.lines = append(t.repo.lines, lines...)
	return nil
}

func (t *stubTx) UpdateAccountBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	a := t.repo.accounts[accountID]
	a.Balance = balance
	t.repo.accounts[accountID] = a
	return nil
}

func (t *stubTx) TransactionLines(ctx context.Context, companyID, transactionID int64) ([]ledger.JournalLine, error) {
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

func (t *stubTx) MarkReversed(ctx context.Context, companyID, transactionID, reversalTxn int64) error {
	return nil
}

func (t *stubTx) ListAccounts(ctx context.Context, companyID int64) ([]ledger.Account, error) {
	return t.repo.ListAccounts(ctx, companyID)
}

func (t *stubTx) SumsByAccount(ctx context.Context, companyID int64) (map[int64]ledger.AccountSums, error) {
	return map[int64]ledger.AccountSums{}, nil
}

func newTestRouter(t *testing.T) (chi.Router, *stubRepo) {
	t.Helper()
	repo := newStubRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := ledger.NewService(repo, nil, nil, logger)
	handler := NewHandler(logger, service, reports.NewService(nil), observability.NewMetrics())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithActor(req.Context(), shared.Actor{UserID: 7, CompanyID: 1, Role: "accountant"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	handler.MountRoutes(r)
	return r, repo
}

func TestPostTransactionEndpoint(t *testing.T) {
	router, repo := newTestRouter(t)

	body, _ := json.Marshal(PostTransactionRequest{
		EntryDate:   "2025-03-01",
		Description: "cash sale",
		Lines: []PostLineRequest{
			{AccountID: 1, Side: "debit", Amount: "250.00"},
			{AccountID: 2, Side: "credit", Amount: "250.00"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.TransactionID)
	require.Len(t, repo.lines, 2)
	require.True(t, repo.accounts[1].Balance.Equal(decimal.RequireFromString("250")))
}

func TestPostTransactionEndpointImbalance(t *testing.T) {
	router, repo := newTestRouter(t)

	body, _ := json.Marshal(PostTransactionRequest{
		EntryDate: "2025-03-01",
		Lines: []PostLineRequest{
			{AccountID: 1, Side: "debit", Amount: "250.00"},
			{AccountID: 2, Side: "credit", Amount: "200.00"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Empty(t, repo.lines)
}

func TestPostTransactionEndpointBadSide(t *testing.T) {
	router, _ := newTestRouter(t)

	body, _ := json.Marshal(PostTransactionRequest{
		EntryDate: "2025-03-01",
		Lines: []PostLineRequest{
			{AccountID: 1, Side: "sideways", Amount: "10"},
			{AccountID: 2, Side: "credit", Amount: "10"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAccountsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Accounts []AccountResponse `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Accounts, 2)
}

func TestShowAccountEndpointNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/accounts/999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
