package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-ledger/meridian/internal/ledger"
)

// LedgerRow is one movement in a single account's general ledger view.
type LedgerRow struct {
	Date        time.Time
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Balance     decimal.Decimal
}

// GeneralLedger walks one account's activity with a running balance.
type GeneralLedger struct {
	AccountID int64
	Title     string
	Rows      []LedgerRow
}

// BuildGeneralLedger orders the window's lines by entry date and computes a
// running balance seeded from the account's stored balance, applying the
// normal-side sign rule per line.
func BuildGeneralLedger(account ledger.Account, lines []ledger.JournalLine) GeneralLedger {
	ordered := append([]ledger.JournalLine(nil), lines...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].EntryDate.Before(ordered[j].EntryDate) })

	result := GeneralLedger{AccountID: account.ID, Title: account.Title}
	running := account.Balance
	for _, line := range ordered {
		running = running.Add(account.Delta(line.Debit, line.Amount))
		row := LedgerRow{
			Date:        line.EntryDate,
			Description: line.Description,
			Balance:     running,
		}
		if line.Debit {
			row.Debit = line.Amount
		} else {
			row.Credit = line.Amount
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}
