package reports

import (
	"context"
	"time"
)

// Window bounds a report query. Both ends are inclusive.
type Window struct {
	From time.Time
	To   time.Time
}

// Service derives financial reports from ledger data. It is purely
// read-side: nothing here mutates accounts or journal lines.
type Service struct {
	repo Repository
}

// NewService constructs the report service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// TrialBalance lists every account's gross debit and credit activity.
func (s *Service) TrialBalance(ctx context.Context, companyID int64, window Window) (TrialBalance, error) {
	accounts, err := s.repo.AccountsByCompany(ctx, companyID)
	if err != nil {
		return TrialBalance{}, err
	}
	lines, err := s.repo.LinesInRange(ctx, companyID, window.From, window.To)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(accounts, lines), nil
}

// GeneralLedger walks one account's movements with a running balance.
func (s *Service) GeneralLedger(ctx context.Context, companyID, accountID int64, window Window) (GeneralLedger, error) {
	account, err := s.repo.AccountByID(ctx, companyID, accountID)
	if err != nil {
		return GeneralLedger{}, err
	}
	lines, err := s.repo.AccountLinesInRange(ctx, companyID, accountID, window.From, window.To)
	if err != nil {
		return GeneralLedger{}, err
	}
	return BuildGeneralLedger(account, lines), nil
}

// IncomeStatement reports income and expense contributions with contra
// reclassification.
func (s *Service) IncomeStatement(ctx context.Context, companyID int64, window Window) (IncomeStatement, error) {
	accounts, err := s.repo.AccountsByCompany(ctx, companyID)
	if err != nil {
		return IncomeStatement{}, err
	}
	lines, err := s.repo.LinesInRange(ctx, companyID, window.From, window.To)
	if err != nil {
		return IncomeStatement{}, err
	}
	return BuildIncomeStatement(accounts, lines), nil
}

// BalanceSheet reports contra-netted balances by classification, with the
// same window's net income appended to equity.
func (s *Service) BalanceSheet(ctx context.Context, companyID int64, window Window) (BalanceSheet, error) {
	accounts, err := s.repo.AccountsByCompany(ctx, companyID)
	if err != nil {
		return BalanceSheet{}, err
	}
	lines, err := s.repo.LinesInRange(ctx, companyID, window.From, window.To)
	if err != nil {
		return BalanceSheet{}, err
	}
	income := BuildIncomeStatement(accounts, lines)
	return BuildBalanceSheet(accounts, lines, income.NetIncome), nil
}

// CashFlow reports operating, investing, and financing cash contributions.
func (s *Service) CashFlow(ctx context.Context, companyID int64, window Window) (CashFlow, error) {
	accounts, err := s.repo.AccountsByCompany(ctx, companyID)
	if err != nil {
		return CashFlow{}, err
	}
	lines, err := s.repo.LinesInRange(ctx, companyID, window.From, window.To)
	if err != nil {
		return CashFlow{}, err
	}
	return BuildCashFlow(accounts, lines), nil
}
