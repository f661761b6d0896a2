package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-ledger/meridian/internal/ledger"
)

// IncomeStatementRow summarises one account's net contribution.
type IncomeStatementRow struct {
	AccountID int64
	Title     string
	Amount    decimal.Decimal
}

// IncomeStatement groups income and expense contributions for a window.
type IncomeStatement struct {
	Income       []IncomeStatementRow
	Expense      []IncomeStatementRow
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	NetIncome    decimal.Decimal
}

// BuildIncomeStatement sums income accounts as credit-debit and expense
// accounts as debit-credit. Contra accounts are reclassified into the bucket
// they offset: a contra-income account's debit activity lands in the income
// bucket as a negative contribution, reducing total income.
func BuildIncomeStatement(accounts []ledger.Account, lines []ledger.JournalLine) IncomeStatement {
	debits := make(map[int64]decimal.Decimal)
	credits := make(map[int64]decimal.Decimal)
	for _, line := range lines {
		if line.Debit {
			debits[line.AccountID] = debits[line.AccountID].Add(line.Amount)
		} else {
			credits[line.AccountID] = credits[line.AccountID].Add(line.Amount)
		}
	}

	result := IncomeStatement{}
	for _, account := range accounts {
		incomeSide := false
		switch {
		case account.Type == ledger.AccountTypeIncome:
			incomeSide = true
		case account.Type == ledger.AccountTypeExpense:
		case account.Type == ledger.AccountTypeContra && account.SubType == ledger.SubTypeContraIncome:
			incomeSide = true
		case account.Type == ledger.AccountTypeContra && account.SubType == ledger.SubTypeContraExpense:
		default:
			continue
		}
		if incomeSide {
			row := IncomeStatementRow{AccountID: account.ID, Title: account.Title, Amount: credits[account.ID].Sub(debits[account.ID])}
			result.Income = append(result.Income, row)
			result.TotalIncome = result.TotalIncome.Add(row.Amount)
		} else {
			row := IncomeStatementRow{AccountID: account.ID, Title: account.Title, Amount: debits[account.ID].Sub(credits[account.ID])}
			result.Expense = append(result.Expense, row)
			result.TotalExpense = result.TotalExpense.Add(row.Amount)
		}
	}

	sort.Slice(result.Income, func(i, j int) bool { return result.Income[i].Title < result.Income[j].Title })
	sort.Slice(result.Expense, func(i, j int) bool { return result.Expense[i].Title < result.Expense[j].Title })
	result.NetIncome = result.TotalIncome.Sub(result.TotalExpense)
	return result
}
