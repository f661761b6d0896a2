package reports

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridian-ledger/meridian/internal/ledger"
)

// CashFlow groups the window's net cash contributions by activity.
type CashFlow struct {
	Operating decimal.Decimal
	Investing decimal.Decimal
	Financing decimal.Decimal
	Net       decimal.Decimal
}

// BuildCashFlow classifies each line by its account's type: income and
// expense movements are operating, non-cash asset movements are investing,
// liability and equity movements are financing. Credits add, debits
// subtract. Accounts literally titled "cash" are the subject of the report
// and are excluded from classification.
func BuildCashFlow(accounts []ledger.Account, lines []ledger.JournalLine) CashFlow {
	byID := make(map[int64]ledger.Account, len(accounts))
	for _, account := range accounts {
		byID[account.ID] = account
	}

	result := CashFlow{}
	for _, line := range lines {
		account, ok := byID[line.AccountID]
		if !ok {
			continue
		}
		amount := line.Amount
		if line.Debit {
			amount = amount.Neg()
		}
		switch account.Type {
		case ledger.AccountTypeIncome, ledger.AccountTypeExpense:
			result.Operating = result.Operating.Add(amount)
		case ledger.AccountTypeAsset:
			if strings.EqualFold(account.Title, "cash") {
				continue
			}
			result.Investing = result.Investing.Add(amount)
		case ledger.AccountTypeLiability, ledger.AccountTypeEquity:
			result.Financing = result.Financing.Add(amount)
		case ledger.AccountTypeContra:
			if account.SubType == ledger.SubTypeContraIncome || account.SubType == ledger.SubTypeContraExpense {
				result.Operating = result.Operating.Add(amount)
			}
		}
	}
	result.Net = result.Operating.Add(result.Investing).Add(result.Financing)
	return result
}
