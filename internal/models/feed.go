package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeedStatus is the health of a bank feed connection.
type FeedStatus string

const (
	FeedActive       FeedStatus = "active"
	FeedError        FeedStatus = "error"
	FeedDisconnected FeedStatus = "disconnected"
)

// DefaultInstitutionName is used when the institution lookup yields nothing.
const DefaultInstitutionName = "Financial Institution"

// FeedConnection links one ledger account to an upstream bank item
type FeedConnection struct {
	ID                int64      `json:"id"`
	OwnerID           int64      `json:"-"`
	AccountID         int64      `json:"account"`
	ItemID            string     `json:"item_id"`
	AccessToken       string     `json:"-"`
	ExternalAccountID string     `json:"external_account_id,omitempty"`
	InstitutionName   string     `json:"institution_name"`
	Cursor            string     `json:"-"`
	Status            FeedStatus `json:"status"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	LastSync          *time.Time `json:"last_sync"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// FeedLink ties an upstream transaction id to the ledger transaction it produced.
type FeedLink struct {
	ID            int64     `json:"id"`
	ConnectionID  int64     `json:"connection"`
	TransactionID int64     `json:"transaction"`
	ExternalID    string    `json:"external_id"`
	ImportedAt    time.Time `json:"imported_at"`
}

// SyncRun records the outcome of one sync of a connection.
type SyncRun struct {
	ID           string    `json:"id"`
	ConnectionID int64     `json:"connection"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Added        int       `json:"added"`
	Modified     int       `json:"modified"`
	Removed      int       `json:"removed"`
	Skipped      int       `json:"skipped"`
	Pages        int       `json:"pages"`
	Status       string    `json:"status"`
	Errors       []string  `json:"errors"`
}

const (
	SyncRunOK      = "ok"
	SyncRunPartial = "partial"
	SyncRunFailed  = "failed"
)

// ExternalTxn is an upstream transaction as reported by the feed.
// Date and Amount stay raw so a malformed row fails on its own.
type ExternalTxn struct {
	ID           string
	AccountID    string
	Date         string
	Amount       string
	Name         string
	MerchantName string
	Category     []string
}

// FeedPage is one page of upstream changes.
type FeedPage struct {
	Added      []ExternalTxn
	Modified   []ExternalTxn
	Removed    []string
	NextCursor string
	HasMore    bool
}

// Institution is the upstream bank behind an item.
type Institution struct {
	ID   string `json:"institution_id"`
	Name string `json:"name"`
}

// ExternalAccount is an upstream sub-account under an item.
type ExternalAccount struct {
	ID        string              `json:"account_id"`
	Name      string              `json:"name"`
	Mask      string              `json:"mask"`
	Type      string              `json:"type"`
	Subtype   string              `json:"subtype"`
	Available decimal.NullDecimal `json:"available"`
	Current   decimal.NullDecimal `json:"current"`
	Currency  string              `json:"currency"`
}
