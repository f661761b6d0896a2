package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-ledger/meridian/internal/ledger"
)

// BalanceSheetRow summarises one account's contra-netted balance.
type BalanceSheetRow struct {
	AccountID int64
	Title     string
	Balance   decimal.Decimal
}

// BalanceSheetSection contains the rows and total for one classification.
type BalanceSheetSection struct {
	Label string
	Rows  []BalanceSheetRow
	Total decimal.Decimal
}

// BalanceSheet is the structured output for the balance sheet report.
// Whenever every posting balanced and closing ran correctly,
// TotalAssets equals TotalLiabilities plus TotalEquity.
type BalanceSheet struct {
	Assets           BalanceSheetSection
	Liabilities      BalanceSheetSection
	Equity           BalanceSheetSection
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	TotalEquity      decimal.Decimal
}

// NetIncomeRowTitle labels the synthetic equity row carrying the period's
// net income.
const NetIncomeRowTitle = "Net Income"

// BuildBalanceSheet computes each asset, liability, and equity account's
// signed balance per its normal side, nets the linked contra account's
// balance through the explicit contra_account_id link, and appends the
// period's net income as a synthetic equity row. Contra accounts themselves
// and auto-provisioned system accounts never appear as rows.
func BuildBalanceSheet(accounts []ledger.Account, lines []ledger.JournalLine, netIncome decimal.Decimal) BalanceSheet {
	balances := make(map[int64]decimal.Decimal, len(accounts))
	byID := make(map[int64]ledger.Account, len(accounts))
	for _, account := range accounts {
		byID[account.ID] = account
	}
	for _, line := range lines {
		account, ok := byID[line.AccountID]
		if !ok {
			continue
		}
		balances[line.AccountID] = balances[line.AccountID].Add(account.Delta(line.Debit, line.Amount))
	}

	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}

	for _, account := range accounts {
		if account.Type == ledger.AccountTypeContra || account.IsSystem {
			continue
		}
		balance := balances[account.ID]
		if account.ContraAccountID != nil {
			balance = balance.Sub(balances[*account.ContraAccountID])
		}
		row := BalanceSheetRow{AccountID: account.ID, Title: account.Title, Balance: balance}
		switch account.Type {
		case ledger.AccountTypeAsset:
			assets.Rows = append(assets.Rows, row)
			assets.Total = assets.Total.Add(row.Balance)
		case ledger.AccountTypeLiability:
			liabilities.Rows = append(liabilities.Rows, row)
			liabilities.Total = liabilities.Total.Add(row.Balance)
		case ledger.AccountTypeEquity:
			equity.Rows = append(equity.Rows, row)
			equity.Total = equity.Total.Add(row.Balance)
		}
	}

	sort.Slice(assets.Rows, func(i, j int) bool { return assets.Rows[i].Title < assets.Rows[j].Title })
	sort.Slice(liabilities.Rows, func(i, j int) bool { return liabilities.Rows[i].Title < liabilities.Rows[j].Title })
	sort.Slice(equity.Rows, func(i, j int) bool { return equity.Rows[i].Title < equity.Rows[j].Title })

	equity.Rows = append(equity.Rows, BalanceSheetRow{Title: NetIncomeRowTitle, Balance: netIncome})
	equity.Total = equity.Total.Add(netIncome)

	return BalanceSheet{
		Assets:           assets,
		Liabilities:      liabilities,
		Equity:           equity,
		TotalAssets:      assets.Total,
		TotalLiabilities: liabilities.Total,
		TotalEquity:      equity.Total,
	}
}
