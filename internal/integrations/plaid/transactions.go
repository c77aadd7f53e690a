package plaid

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/shopspring/decimal"
)

type syncRequest struct {
	credentials
	AccessToken string `json:"access_token"`
	Cursor      string `json:"cursor,omitempty"`
	Count       int    `json:"count,omitempty"`
}

type transaction struct {
	TransactionID           string      `json:"transaction_id"`
	AccountID               string      `json:"account_id"`
	Amount                  json.Number `json:"amount"`
	Date                    string      `json:"date"`
	Name                    string      `json:"name"`
	MerchantName            *string     `json:"merchant_name"`
	Category                []string    `json:"category"`
	PersonalFinanceCategory *struct {
		Primary  string `json:"primary"`
		Detailed string `json:"detailed"`
	} `json:"personal_finance_category"`
}

type syncResponse struct {
	Added    []transaction `json:"added"`
	Modified []transaction `json:"modified"`
	Removed  []struct {
		TransactionID string `json:"transaction_id"`
	} `json:"removed"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

// FetchTransactions pulls one page of changes after cursor. An empty cursor
// starts from the beginning of the item's history.
func (c *Client) FetchTransactions(ctx context.Context, accessToken, cursor string) (*models.FeedPage, error) {
	req := syncRequest{
		credentials: c.creds(),
		AccessToken: accessToken,
		Cursor:      cursor,
		Count:       500,
	}
	var resp syncResponse
	if err := c.post(ctx, "/transactions/sync", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to sync transactions: %w", err)
	}

	page := &models.FeedPage{
		Added:      make([]models.ExternalTxn, 0, len(resp.Added)),
		Modified:   make([]models.ExternalTxn, 0, len(resp.Modified)),
		Removed:    make([]string, 0, len(resp.Removed)),
		NextCursor: resp.NextCursor,
		HasMore:    resp.HasMore,
	}
	for _, t := range resp.Added {
		page.Added = append(page.Added, toExternal(t))
	}
	for _, t := range resp.Modified {
		page.Modified = append(page.Modified, toExternal(t))
	}
	for _, r := range resp.Removed {
		page.Removed = append(page.Removed, r.TransactionID)
	}
	return page, nil
}

// toExternal resolves optional fields to plain values. The legacy category
// list wins over the personal finance category when both are present.
func toExternal(t transaction) models.ExternalTxn {
	ext := models.ExternalTxn{
		ID:        t.TransactionID,
		AccountID: t.AccountID,
		Date:      t.Date,
		Amount:    t.Amount.String(),
		Name:      t.Name,
	}
	if t.MerchantName != nil {
		ext.MerchantName = *t.MerchantName
	}
	switch {
	case len(t.Category) > 0:
		ext.Category = t.Category
	case t.PersonalFinanceCategory != nil && t.PersonalFinanceCategory.Primary != "":
		ext.Category = []string{t.PersonalFinanceCategory.Primary}
		if t.PersonalFinanceCategory.Detailed != "" {
			ext.Category = append(ext.Category, t.PersonalFinanceCategory.Detailed)
		}
	}
	return ext
}

func nullDecimal(n json.Number) decimal.NullDecimal {
	if n == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
