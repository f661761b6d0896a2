package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDeltaFollowsNormalSide(t *testing.T) {
	cash := Account{Type: AccountTypeAsset, DebitNormal: true}
	if got := cash.Delta(true, decimal.NewFromInt(100)); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("debit on debit-normal should add, got %s", got)
	}
	if got := cash.Delta(false, decimal.NewFromInt(100)); !got.Equal(decimal.NewFromInt(-100)) {
		t.Fatalf("credit on debit-normal should subtract, got %s", got)
	}

	revenue := Account{Type: AccountTypeIncome, DebitNormal: false}
	if got := revenue.Delta(false, decimal.NewFromInt(250)); !got.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("credit on credit-normal should add, got %s", got)
	}
	if got := revenue.Delta(true, decimal.NewFromInt(250)); !got.Equal(decimal.NewFromInt(-250)) {
		t.Fatalf("debit on credit-normal should subtract, got %s", got)
	}
}

func TestDebitNormalFor(t *testing.T) {
	cases := map[AccountType]bool{
		AccountTypeAsset:     true,
		AccountTypeExpense:   true,
		AccountTypeLiability: false,
		AccountTypeEquity:    false,
		AccountTypeIncome:    false,
		AccountTypeContra:    false,
	}
	for accountType, want := range cases {
		if got := DebitNormalFor(accountType); got != want {
			t.Fatalf("%s: want debit normal %v got %v", accountType, want, got)
		}
	}
}

func TestPostingInputValidate(t *testing.T) {
	base := PostingInput{
		CompanyID: 1,
		EntryDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: true, Amount: decimal.NewFromInt(100)},
			{AccountID: 2, Debit: false, Amount: decimal.NewFromInt(100)},
		},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("balanced entry should validate: %v", err)
	}

	imbalanced := base
	imbalanced.Lines = []PostingLineInput{
		{AccountID: 1, Debit: true, Amount: decimal.NewFromInt(100)},
		{AccountID: 2, Debit: false, Amount: decimal.NewFromInt(99)},
	}
	if err := imbalanced.Validate(); !errors.Is(err, ErrImbalancedEntry) {
		t.Fatalf("want ErrImbalancedEntry, got %v", err)
	}

	// Fractional cents must balance exactly, not approximately.
	fractional := base
	fractional.Lines = []PostingLineInput{
		{AccountID: 1, Debit: true, Amount: decimal.RequireFromString("0.1")},
		{AccountID: 3, Debit: true, Amount: decimal.RequireFromString("0.2")},
		{AccountID: 2, Debit: false, Amount: decimal.RequireFromString("0.3")},
	}
	if err := fractional.Validate(); err != nil {
		t.Fatalf("0.1 + 0.2 must equal 0.3 exactly: %v", err)
	}

	noCompany := base
	noCompany.CompanyID = 0
	if err := noCompany.Validate(); err == nil {
		t.Fatal("missing company must fail validation")
	}

	noLines := base
	noLines.Lines = nil
	if err := noLines.Validate(); err == nil {
		t.Fatal("empty entry must fail validation")
	}

	negative := base
	negative.Lines = []PostingLineInput{
		{AccountID: 1, Debit: true, Amount: decimal.NewFromInt(-5)},
		{AccountID: 2, Debit: false, Amount: decimal.NewFromInt(-5)},
	}
	if err := negative.Validate(); err == nil {
		t.Fatal("negative amounts must fail validation")
	}
}

func TestParseSide(t *testing.T) {
	debit, err := ParseSide("debit")
	if err != nil || !debit {
		t.Fatalf("parse debit: %v %v", debit, err)
	}
	credit, err := ParseSide("CREDIT")
	if err != nil || credit {
		t.Fatalf("parse credit: %v %v", credit, err)
	}
	if _, err := ParseSide("sideways"); err == nil {
		t.Fatal("unknown side must error")
	}
	if got := SideLabel(true); got != "debit" {
		t.Fatalf("side label: %s", got)
	}
}
