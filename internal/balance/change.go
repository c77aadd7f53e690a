package balance

import "github.com/Dan9191/ledger-service/internal/models"

// ChangeKind tells which ledger event produced a Change.
type ChangeKind int

const (
	Created ChangeKind = iota
	Deleted
	Updated
	StatusChanged
)

func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Updated:
		return "updated"
	case StatusChanged:
		return "status_changed"
	}
	return "unknown"
}

// Change names the accounts whose balances a ledger event may have moved.
type Change struct {
	Kind     ChangeKind
	Accounts []int64
}

func TransactionCreated(t *models.Transaction) Change {
	return Change{Kind: Created, Accounts: []int64{t.DebitID, t.CreditID}}
}

func TransactionDeleted(t *models.Transaction) Change {
	return Change{Kind: Deleted, Accounts: []int64{t.DebitID, t.CreditID}}
}

// TransactionUpdated covers both the old and new sides, so an account that
// was replaced is recomputed too.
func TransactionUpdated(before, after *models.Transaction) Change {
	return Change{Kind: Updated, Accounts: []int64{before.DebitID, before.CreditID, after.DebitID, after.CreditID}}
}

func TransactionStatusChanged(t *models.Transaction) Change {
	return Change{Kind: StatusChanged, Accounts: []int64{t.DebitID, t.CreditID}}
}
