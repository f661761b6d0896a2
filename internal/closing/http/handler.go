package closinghttp

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-ledger/meridian/internal/closing"
	"github.com/meridian-ledger/meridian/internal/ledger"
	"github.com/meridian-ledger/meridian/internal/observability"
	"github.com/meridian-ledger/meridian/internal/platform/httpx"
	"github.com/meridian-ledger/meridian/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler manages year-end closing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *closing.Service
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *closing.Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// MountRoutes registers closing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/closings", h.listClosings)
	r.Post("/closings", h.closeYear)
}

// CloseYearRequest triggers the year-end closing workflow.
type CloseYearRequest struct {
	ClosingDate string `json:"closing_date" validate:"required"`
}

// ClosureResponse is the wire form of a recorded closure.
type ClosureResponse struct {
	ID            int64     `json:"id"`
	CompanyID     int64     `json:"company_id"`
	FiscalYear    int       `json:"fiscal_year"`
	TransactionID int64     `json:"transaction_id"`
	ClosedBy      int64     `json:"closed_by"`
	ClosedAt      time.Time `json:"closed_at"`
}

func toClosureResponse(c closing.Closure) ClosureResponse {
	return ClosureResponse{
		ID:            c.ID,
		CompanyID:     c.CompanyID,
		FiscalYear:    c.FiscalYear,
		TransactionID: c.TransactionID,
		ClosedBy:      c.ClosedBy,
		ClosedAt:      c.ClosedAt,
	}
}

func (h *Handler) listClosings(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	closures, err := h.service.ListClosures(r.Context(), actor.CompanyID)
	if err != nil {
		h.logger.Error("list closures failed", "error", err, "company_id", actor.CompanyID)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load closures")
		return
	}

	resp := make([]ClosureResponse, 0, len(closures))
	for _, c := range closures {
		resp = append(resp, toClosureResponse(c))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"closings": resp})
}

func (h *Handler) closeYear(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	var req CloseYearRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	closingDate, err := time.Parse(dateLayout, req.ClosingDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Invalid closing_date, want YYYY-MM-DD")
		return
	}

	closure, err := h.service.CloseYear(r.Context(), closing.CloseInput{
		CompanyID:   actor.CompanyID,
		ActorID:     actor.UserID,
		ClosingDate: closingDate,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.metrics.IncClosing()
	httpx.JSON(w, http.StatusCreated, toClosureResponse(closure))
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, closing.ErrAlreadyClosed):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, closing.ErrNothingToClose):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	case errors.Is(err, closing.ErrRetainedEarningsMissing),
		errors.Is(err, ledger.ErrAccountNotFound):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	default:
		h.logger.Error("close year failed", "error", err, "path", r.URL.Path)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Unexpected error")
	}
}
