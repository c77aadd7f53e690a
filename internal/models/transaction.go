package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the review state of a transaction.
type TransactionStatus string

const (
	StatusReview      TransactionStatus = "review"
	StatusCategorized TransactionStatus = "categorized"
	StatusReconciled  TransactionStatus = "reconciled"
)

// ParseTransactionStatus validates s against the three known statuses.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch st := TransactionStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusReview, StatusCategorized, StatusReconciled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Transaction represents one double-entry movement between two accounts
type Transaction struct {
	ID           int64             `json:"id"`
	OwnerID      int64             `json:"-"`
	Date         Date              `json:"date"`
	Amount       decimal.Decimal   `json:"amount"`
	DebitID      int64             `json:"debit"`
	CreditID     int64             `json:"credit"`
	MerchantID   *int64            `json:"merchant"`
	Notes        string            `json:"notes"`
	Status       TransactionStatus `json:"status"`
	IsReconciled bool              `json:"is_reconciled"`
	UpdatedAt    time.Time         `json:"updated"`
}

// SetStatus moves the transaction to status and re-derives the legacy
// reconciled flag from it.
func (t *Transaction) SetStatus(status TransactionStatus) {
	t.Status = status
	t.IsReconciled = status == StatusReconciled
}

// Touches reports whether the transaction debits or credits accountID.
func (t *Transaction) Touches(accountID int64) bool {
	return t.DebitID == accountID || t.CreditID == accountID
}

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	AccountID int64
	Status    TransactionStatus
	From      Date
	To        Date
	Limit     int
	Offset    int
}
