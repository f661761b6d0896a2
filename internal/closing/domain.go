package closing

import (
	"errors"
	"time"
)

// ClosingMarker is the description stamped on every closing entry. It is
// kept for human readability; closure detection relies on the closures
// table, never on this text.
const ClosingMarker = "Year End Closing Entry"

// RetainedEarningsTitle names the equity account the close rolls into.
const RetainedEarningsTitle = "Retained Earnings"

// Closure records a completed year-end close. One row per company per
// fiscal year is the source of truth for double-close rejection.
type Closure struct {
	ID            int64
	CompanyID     int64
	FiscalYear    int
	TransactionID int64
	ClosedBy      int64
	ClosedAt      time.Time
}

// CloseInput bundles parameters for closing a fiscal year.
type CloseInput struct {
	CompanyID   int64
	ActorID     int64
	ClosingDate time.Time
}

// Validate ensures the close request is coherent.
func (in CloseInput) Validate() error {
	if in.CompanyID == 0 {
		return errors.New("closing: company required")
	}
	if in.ClosingDate.IsZero() {
		return errors.New("closing: closing date required")
	}
	return nil
}

var (
	// ErrRetainedEarningsMissing indicates the chart of accounts lacks the
	// retained earnings account.
	ErrRetainedEarningsMissing = errors.New("closing: retained earnings account not found")
	// ErrNothingToClose indicates every income and expense balance is zero.
	ErrNothingToClose = errors.New("closing: no income or expense balances to close")
	// ErrAlreadyClosed indicates the fiscal year was closed before.
	ErrAlreadyClosed = errors.New("closing: fiscal year already closed")
)
