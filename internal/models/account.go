package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the accounting classification of an account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "Asset"
	AccountTypeLiability AccountType = "Liability"
	AccountTypeIncome    AccountType = "Income"
	AccountTypeExpense   AccountType = "Expense"
	AccountTypeEquity    AccountType = "Equity"
	AccountTypeGoal      AccountType = "Goal"
)

var accountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeIncome,
	AccountTypeExpense,
	AccountTypeEquity,
	AccountTypeGoal,
}

// ParseAccountType matches s against the known account types, ignoring case.
func ParseAccountType(s string) (AccountType, error) {
	for _, t := range accountTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccountType, s)
}

// DebitNormal reports whether debits increase the balance of this type.
func (t AccountType) DebitNormal() bool {
	switch t {
	case AccountTypeAsset, AccountTypeExpense, AccountTypeGoal:
		return true
	}
	return false
}

// Account represents a ledger account owned by a single user
type Account struct {
	ID                int64               `json:"id"`
	OwnerID           int64               `json:"-"`
	Name              string              `json:"name"`
	Num               int                 `json:"num"`
	Type              AccountType         `json:"type"`
	SubTypeID         *int64              `json:"subType"`
	InBankFeed        bool                `json:"inBankFeed"`
	Balance           decimal.NullDecimal `json:"balance"`
	ReconciledBalance decimal.Decimal     `json:"reconciledBalance"`
	Icon              string              `json:"icon"`
	System            bool                `json:"system"`
	CreatedAt         time.Time           `json:"created_at"`
}

// DefaultAccountIcon is used when an account is created without one.
const DefaultAccountIcon = "💰"

// SubAccountType is a user-facing sub-classification tied to one AccountType
type SubAccountType struct {
	ID          int64       `json:"id"`
	Name        string      `json:"subType"`
	AccountType AccountType `json:"accountType"`
}

// DefaultSubAccountTypes seeds an empty store.
var DefaultSubAccountTypes = []SubAccountType{
	{Name: "Checking", AccountType: AccountTypeAsset},
	{Name: "Savings", AccountType: AccountTypeAsset},
	{Name: "Credit Card", AccountType: AccountTypeLiability},
	{Name: "Loan", AccountType: AccountTypeLiability},
	{Name: "Salary", AccountType: AccountTypeIncome},
	{Name: "Investment", AccountType: AccountTypeIncome},
	{Name: "Housing", AccountType: AccountTypeExpense},
	{Name: "Food", AccountType: AccountTypeExpense},
	{Name: "Transportation", AccountType: AccountTypeExpense},
	{Name: "Entertainment", AccountType: AccountTypeExpense},
	{Name: "Retained Earnings", AccountType: AccountTypeEquity},
	{Name: "Vacation", AccountType: AccountTypeGoal},
	{Name: "Emergency Fund", AccountType: AccountTypeGoal},
}

// LedgerSums are the raw debit and credit totals touching one account.
type LedgerSums struct {
	Debit            decimal.Decimal
	Credit           decimal.Decimal
	ReconciledDebit  decimal.Decimal
	ReconciledCredit decimal.Decimal
}
