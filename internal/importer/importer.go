// Package importer creates ledger transactions from bank statement files.
package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/Dan9191/ledger-service/internal/service"
	"github.com/sirupsen/logrus"
)

// Row is one statement line before parsing. Err carries a problem found
// while reading the source, such as a column index out of range.
type Row struct {
	Line        int
	Date        string
	Description string
	Amount      string
	Category    string
	Merchant    string
	Err         string
}

// Summary reports the outcome of an import.
type Summary struct {
	Status    string   `json:"status"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// Importer turns statement rows into transactions against a selected account
type Importer struct {
	svc   *service.Service
	rules *Rules
	log   *logrus.Logger
}

// NewImporter creates an importer. rules may be nil.
func NewImporter(svc *service.Service, rules *Rules, log *logrus.Logger) *Importer {
	return &Importer{svc: svc, rules: rules, log: log}
}

// ImportRows creates one transaction per row, each in its own database
// transaction. A failed row is reported in the summary and the rest go on.
func (im *Importer) ImportRows(ctx context.Context, ownerID, accountID int64, rows []Row) (*Summary, error) {
	if _, err := im.svc.GetAccount(ctx, ownerID, accountID); err != nil {
		return nil, err
	}

	summary := &Summary{Status: "completed", Errors: []string{}}
	for _, row := range rows {
		summary.Total++
		if err := im.importRow(ctx, ownerID, accountID, row); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("Row %d: %v", row.Line, err))
			continue
		}
		summary.Succeeded++
	}

	im.log.WithFields(logrus.Fields{
		"owner":     ownerID,
		"account":   accountID,
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	}).Info("Statement imported")
	return summary, nil
}

// importRow posts a row against the selected account. A positive amount is
// money coming in: the selected account is debited and the category
// credited. Without a category both sides are the selected account until
// someone categorizes it.
func (im *Importer) importRow(ctx context.Context, ownerID, accountID int64, row Row) error {
	if row.Err != "" {
		return fmt.Errorf("%s", row.Err)
	}
	if strings.TrimSpace(row.Date) == "" || strings.TrimSpace(row.Amount) == "" {
		return fmt.Errorf("missing required fields")
	}
	date, err := ParseDate(row.Date)
	if err != nil {
		return fmt.Errorf("invalid date format '%s'", row.Date)
	}
	amount, err := ParseAmount(row.Amount)
	if err != nil {
		return fmt.Errorf("error parsing amount - %v", err)
	}

	category, merchant := strings.TrimSpace(row.Category), strings.TrimSpace(row.Merchant)
	if category == "" && im.rules != nil {
		if rule, ok := im.rules.Match(row.Description); ok {
			category = rule.Name
			if merchant == "" {
				merchant = rule.Merchant
			}
		}
	}

	positive := amount.IsPositive()
	in := service.NewTransaction{
		Date:     date,
		Amount:   amount.Abs(),
		Notes:    row.Description,
		Merchant: merchant,
		Status:   models.StatusReview,
	}
	return im.svc.WithTx(ctx, func(tx *service.Service) error {
		if category == "" {
			in.DebitID, in.CreditID = accountID, accountID
		} else {
			cat, err := tx.CategoryAccount(ctx, ownerID, category, positive)
			if err != nil {
				return fmt.Errorf("error resolving category - %v", err)
			}
			if positive {
				in.DebitID, in.CreditID = accountID, cat.ID
			} else {
				in.DebitID, in.CreditID = cat.ID, accountID
			}
		}
		_, err := tx.CreateTransaction(ctx, ownerID, in)
		return err
	})
}
