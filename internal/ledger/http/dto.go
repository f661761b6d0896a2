package ledgerhttp

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-ledger/meridian/internal/ledger"
)

const dateLayout = "2006-01-02"

// PostLineRequest is one movement of a posting request.
type PostLineRequest struct {
	AccountID   int64  `json:"account_id" validate:"required"`
	Side        string `json:"side" validate:"required,oneof=debit credit"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description"`
}

// PostTransactionRequest carries a balanced entry over the wire.
type PostTransactionRequest struct {
	EntryDate      string            `json:"entry_date" validate:"required"`
	Description    string            `json:"description"`
	IdempotencyKey string            `json:"idempotency_key"`
	Extra          map[string]any    `json:"extra"`
	Lines          []PostLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ToPostingInput converts the wire form into the domain posting input.
func (req PostTransactionRequest) ToPostingInput(companyID, actorID int64) (ledger.PostingInput, error) {
	entryDate, err := time.Parse(dateLayout, req.EntryDate)
	if err != nil {
		return ledger.PostingInput{}, fmt.Errorf("entry_date: %w", err)
	}
	input := ledger.PostingInput{
		CompanyID:      companyID,
		ActorID:        actorID,
		EntryDate:      entryDate,
		Description:    req.Description,
		Extra:          req.Extra,
		IdempotencyKey: req.IdempotencyKey,
	}
	for idx, line := range req.Lines {
		debit, err := ledger.ParseSide(line.Side)
		if err != nil {
			return ledger.PostingInput{}, fmt.Errorf("line %d: %w", idx, err)
		}
		amount, err := decimal.NewFromString(line.Amount)
		if err != nil {
			return ledger.PostingInput{}, fmt.Errorf("line %d amount: %w", idx, err)
		}
		input.Lines = append(input.Lines, ledger.PostingLineInput{
			AccountID:   line.AccountID,
			Debit:       debit,
			Amount:      amount,
			Description: line.Description,
		})
	}
	return input, nil
}

// CreateAccountRequest provisions a chart of accounts entry.
type CreateAccountRequest struct {
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	Type            string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY INCOME EXPENSE CONTRA"`
	SubType         string `json:"sub_type"`
	DebitNormal     *bool  `json:"debit_normal"`
	ContraAccountID *int64 `json:"contra_account_id"`
	IsSystem        bool   `json:"is_system"`
}

// AccountResponse is the wire form of an account.
type AccountResponse struct {
	ID              int64  `json:"id"`
	CompanyID       int64  `json:"company_id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Type            string `json:"type"`
	SubType         string `json:"sub_type"`
	Side            string `json:"side"`
	Balance         string `json:"balance"`
	ContraAccountID *int64 `json:"contra_account_id,omitempty"`
	IsSystem        bool   `json:"is_system,omitempty"`
}

func toAccountResponse(a ledger.Account) AccountResponse {
	return AccountResponse{
		ID:              a.ID,
		CompanyID:       a.CompanyID,
		Title:           a.Title,
		Description:     a.Description,
		Type:            string(a.Type),
		SubType:         string(a.SubType),
		Side:            ledger.SideLabel(a.DebitNormal),
		Balance:         a.Balance.StringFixed(2),
		ContraAccountID: a.ContraAccountID,
		IsSystem:        a.IsSystem,
	}
}

// TransactionResponse acknowledges a committed posting.
type TransactionResponse struct {
	TransactionID int64 `json:"transaction_id"`
}
