package ledgerhttp

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-ledger/meridian/internal/ledger"
	"github.com/meridian-ledger/meridian/internal/ledger/reports"
	"github.com/meridian-ledger/meridian/internal/observability"
	"github.com/meridian-ledger/meridian/internal/platform/httpx"
	"github.com/meridian-ledger/meridian/internal/shared"
)

// Handler manages posting, account, and report endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *ledger.Service
	reports  *reports.Service
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(
	logger *slog.Logger,
	service *ledger.Service,
	reportSvc *reports.Service,
	metrics *observability.Metrics,
) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		reports:  reportSvc,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.listAccounts)
	r.Post("/accounts", h.createAccount)
	r.Get("/accounts/{accountID}", h.showAccount)

	r.Post("/transactions", h.postTransaction)
	r.Post("/transactions/{txnID}/reverse", h.reverseTransaction)
	r.Post("/recalculate", h.recalculate)

	r.Get("/reports/trial-balance", h.trialBalance)
	r.Get("/reports/general-ledger/{accountID}", h.generalLedger)
	r.Get("/reports/income-statement", h.incomeStatement)
	r.Get("/reports/balance-sheet", h.balanceSheet)
	r.Get("/reports/cash-flow", h.cashFlow)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	accounts, err := h.service.ListAccounts(r.Context(), actor.CompanyID)
	if err != nil {
		h.logger.Error("list accounts failed", "error", err, "company_id", actor.CompanyID)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load accounts")
		return
	}

	resp := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		resp = append(resp, toAccountResponse(account))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": resp})
}

func (h *Handler) showAccount(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Invalid account ID")
		return
	}

	account, err := h.service.GetAccount(r.Context(), actor.CompanyID, accountID)
	if err != nil {
		h.respondError(w, r, err, "get account failed")
		return
	}

	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	var req CreateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	accountType := ledger.AccountType(req.Type)
	debitNormal := ledger.DebitNormalFor(accountType)
	if req.DebitNormal != nil {
		debitNormal = *req.DebitNormal
	}
	subType := ledger.SubTypeGeneral
	if req.SubType != "" {
		subType = ledger.AccountSubType(req.SubType)
	}

	account, err := h.service.CreateAccount(r.Context(), ledger.Account{
		CompanyID:       actor.CompanyID,
		Title:           req.Title,
		Description:     req.Description,
		Type:            accountType,
		SubType:         subType,
		DebitNormal:     debitNormal,
		ContraAccountID: req.ContraAccountID,
		IsSystem:        req.IsSystem,
	})
	if err != nil {
		h.respondError(w, r, err, "create account failed")
		return
	}

	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) postTransaction(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	var req PostTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	input, err := req.ToPostingInput(actor.CompanyID, actor.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	txnID, err := h.service.PostTransaction(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err, "post transaction failed")
		return
	}

	h.metrics.IncPosting()
	httpx.JSON(w, http.StatusCreated, TransactionResponse{TransactionID: txnID})
}

func (h *Handler) reverseTransaction(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	txnID, err := strconv.ParseInt(chi.URLParam(r, "txnID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Invalid transaction ID")
		return
	}

	var req struct {
		Description string `json:"description"`
		EntryDate   string `json:"entry_date"`
	}
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Invalid JSON payload")
			return
		}
	}

	entryDate := time.Now().UTC()
	if req.EntryDate != "" {
		entryDate, err = time.Parse(dateLayout, req.EntryDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Invalid entry_date")
			return
		}
	}

	reversalID, err := h.service.ReverseTransaction(r.Context(), ledger.ReverseInput{
		CompanyID:     actor.CompanyID,
		TransactionID: txnID,
		ActorID:       actor.UserID,
		Description:   req.Description,
		EntryDate:     entryDate,
	})
	if err != nil {
		h.respondError(w, r, err, "reverse transaction failed")
		return
	}

	h.metrics.IncPosting()
	httpx.JSON(w, http.StatusCreated, TransactionResponse{TransactionID: reversalID})
}

func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	if err := h.service.RecalculateBalances(r.Context(), actor.CompanyID, actor.UserID); err != nil {
		h.logger.Error("recalculate balances failed", "error", err, "company_id", actor.CompanyID)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Failed to recalculate balances")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{"status": "recalculated"})
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	window, err := parseWindow(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	report, err := h.reports.TrialBalance(r.Context(), actor.CompanyID, window)
	if err != nil {
		h.logger.Error("trial balance failed", "error", err, "company_id", actor.CompanyID)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build trial balance")
		return
	}

	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) generalLedger(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Invalid account ID")
		return
	}

	window, err := parseWindow(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	report, err := h.reports.GeneralLedger(r.Context(), actor.CompanyID, accountID, window)
	if err != nil {
		h.respondError(w, r, err, "general ledger failed")
		return
	}

	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) incomeStatement(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	window, err := parseWindow(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	report, err := h.reports.IncomeStatement(r.Context(), actor.CompanyID, window)
	if err != nil {
		h.logger.Error("income statement failed", "error", err, "company_id", actor.CompanyID)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build income statement")
		return
	}

	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	window, err := parseWindow(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	report, err := h.reports.BalanceSheet(r.Context(), actor.CompanyID, window)
	if err != nil {
		h.logger.Error("balance sheet failed", "error", err, "company_id", actor.CompanyID)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build balance sheet")
		return
	}

	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) cashFlow(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	window, err := parseWindow(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	report, err := h.reports.CashFlow(r.Context(), actor.CompanyID, window)
	if err != nil {
		h.logger.Error("cash flow failed", "error", err, "company_id", actor.CompanyID)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build cash flow statement")
		return
	}

	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, ledger.ErrImbalancedEntry):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ledger.ErrCrossCompanyAccess):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ledger.ErrAccountDeleted):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ledger.ErrAlreadyReversed),
		errors.Is(err, ledger.ErrDuplicatePosting):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(logMsg, "error", err, "path", r.URL.Path)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Unexpected error")
	}
}

// parseWindow reads the from/to query parameters. Both default to a wide
// range so report endpoints work without explicit dates.
func parseWindow(r *http.Request) (reports.Window, error) {
	window := reports.Window{
		From: time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Now().UTC(),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		parsed, err := time.Parse(dateLayout, from)
		if err != nil {
			return reports.Window{}, errors.New("invalid from date, want YYYY-MM-DD")
		}
		window.From = parsed
	}
	if to := r.URL.Query().Get("to"); to != "" {
		parsed, err := time.Parse(dateLayout, to)
		if err != nil {
			return reports.Window{}, errors.New("invalid to date, want YYYY-MM-DD")
		}
		window.To = parsed
	}
	return window, nil
}
