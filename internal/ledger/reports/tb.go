package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-ledger/meridian/internal/ledger"
)

// TrialBalanceRow lists one account's gross activity for the period.
type TrialBalanceRow struct {
	AccountID int64
	Title     string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// TrialBalance is the structured output for the trial balance report.
type TrialBalance struct {
	Rows        []TrialBalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// BuildTrialBalance sums debits and credits per account without netting
// against the normal side. Every account appears, including ones with no
// activity in the window, sorted by title.
func BuildTrialBalance(accounts []ledger.Account, lines []ledger.JournalLine) TrialBalance {
	debits := make(map[int64]decimal.Decimal)
	credits := make(map[int64]decimal.Decimal)
	for _, line := range lines {
		if line.Debit {
			debits[line.AccountID] = debits[line.AccountID].Add(line.Amount)
		} else {
			credits[line.AccountID] = credits[line.AccountID].Add(line.Amount)
		}
	}

	result := TrialBalance{}
	for _, account := range accounts {
		row := TrialBalanceRow{
			AccountID: account.ID,
			Title:     account.Title,
			Debit:     debits[account.ID],
			Credit:    credits[account.ID],
		}
		result.Rows = append(result.Rows, row)
		result.TotalDebit = result.TotalDebit.Add(row.Debit)
		result.TotalCredit = result.TotalCredit.Add(row.Credit)
	}
	sort.Slice(result.Rows, func(i, j int) bool { return result.Rows[i].Title < result.Rows[j].Title })
	return result
}
