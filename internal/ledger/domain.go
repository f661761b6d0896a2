package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeContra    AccountType = "CONTRA"
)

// AccountSubType refines the account classification.
type AccountSubType string

const (
	SubTypeGeneral       AccountSubType = "GENERAL"
	SubTypeCash          AccountSubType = "CASH"
	SubTypeReceivable    AccountSubType = "RECEIVABLE"
	SubTypePayable       AccountSubType = "PAYABLE"
	SubTypeContraIncome  AccountSubType = "CONTRA_INCOME"
	SubTypeContraExpense AccountSubType = "CONTRA_EXPENSE"
)

// Account models one chart of accounts row scoped to a company. Balance is
// denominated on the account's normal side: debit-normal accounts grow when
// debited, credit-normal accounts grow when credited.
type Account struct {
	ID              int64
	CompanyID       int64
	Title           string
	Description     string
	Type            AccountType
	SubType         AccountSubType
	DebitNormal     bool
	Balance         decimal.Decimal
	ContraAccountID *int64
	IsSystem        bool
	IsDeleted       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Delta returns the signed effect of a single movement on the account's
// stored balance: same side as the normal side adds, the opposite subtracts.
func (a Account) Delta(debit bool, amount decimal.Decimal) decimal.Decimal {
	if debit == a.DebitNormal {
		return amount
	}
	return amount.Neg()
}

// DebitNormalFor reports the conventional normal side for an account type.
// Assets and expenses are debit-normal; everything else is credit-normal.
func DebitNormalFor(t AccountType) bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// JournalLine is one debit or credit movement. Lines are immutable once
// written; voiding happens through reversing entries, never in-place edits.
type JournalLine struct {
	ID            int64
	TransactionID int64
	CompanyID     int64
	AccountID     int64
	Debit         bool
	Amount        decimal.Decimal
	Description   string
	EntryDate     time.Time
	CreatedBy     int64
	Extra         map[string]any
	ReversedByTxn *int64
	IsDeleted     bool
	CreatedAt     time.Time
}

// PostingLineInput describes one movement of a posting request.
type PostingLineInput struct {
	AccountID   int64
	Debit       bool
	Amount      decimal.Decimal
	Description string
}

// PostingInput groups the fields required to commit one balanced entry.
// TransactionID is normally zero and assigned at commit time; composite
// workflows such as the year-end close supply it up front.
type PostingInput struct {
	CompanyID      int64
	ActorID        int64
	EntryDate      time.Time
	Description    string
	Extra          map[string]any
	TransactionID  int64
	IdempotencyKey string
	Lines          []PostingLineInput
}

var (
	// ErrImbalancedEntry indicates debit total != credit total.
	ErrImbalancedEntry = errors.New("ledger: debit and credit totals must be equal")
	// ErrAccountNotFound indicates a referenced account does not exist.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrCrossCompanyAccess indicates an account outside the acting company scope.
	ErrCrossCompanyAccess = errors.New("ledger: account belongs to another company")
	// ErrAccountDeleted indicates a posting against a soft-deleted account.
	ErrAccountDeleted = errors.New("ledger: account is deleted")
	// ErrTransactionNotFound indicates no live lines for a transaction id.
	ErrTransactionNotFound = errors.New("ledger: transaction not found")
	// ErrAlreadyReversed indicates the transaction was reversed before.
	ErrAlreadyReversed = errors.New("ledger: transaction already reversed")
	// ErrDuplicatePosting indicates an idempotency key was seen before.
	ErrDuplicatePosting = errors.New("ledger: posting already processed")
)

// Validate checks the invariants that hold before any write is attempted.
func (in PostingInput) Validate() error {
	if in.CompanyID == 0 {
		return errors.New("ledger: company required")
	}
	if in.EntryDate.IsZero() {
		return errors.New("ledger: entry date required")
	}
	if len(in.Lines) == 0 {
		return errors.New("ledger: at least one line required")
	}
	debit, credit := decimal.Zero, decimal.Zero
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if !line.Amount.IsPositive() {
			return fmt.Errorf("ledger: line %d amount must be positive", idx)
		}
		if line.Debit {
			debit = debit.Add(line.Amount)
		} else {
			credit = credit.Add(line.Amount)
		}
	}
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debit %s credit %s", ErrImbalancedEntry, debit.StringFixed(2), credit.StringFixed(2))
	}
	return nil
}

// SideLabel renders a line side for humans and the wire.
func SideLabel(debit bool) string {
	if debit {
		return "debit"
	}
	return "credit"
}

// ParseSide converts a wire side label back to its boolean form.
func ParseSide(label string) (bool, error) {
	switch strings.ToLower(label) {
	case "debit":
		return true, nil
	case "credit":
		return false, nil
	default:
		return false, fmt.Errorf("ledger: unknown side %q", label)
	}
}
