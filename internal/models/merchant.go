package models

// Merchant is a counterparty name, unique per owner.
type Merchant struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"-"`
	Name    string `json:"name"`
}
