package service

import (
	"context"
	"errors"

	"github.com/Dan9191/ledger-service/internal/balance"
	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/sirupsen/logrus"
)

// BulkUpdate is a patch applied to many transactions at once.
//
// CategoryID replaces whichever side of each transaction is not
// SelectedAccountID. When both sides equal the selected account, the
// category goes to the side its classification normally sits on: debit for
// debit-normal accounts, credit otherwise.
type BulkUpdate struct {
	IDs               []int64 `json:"ids"`
	Notes             *string `json:"notes"`
	Status            *string `json:"status"`
	CategoryID        *int64  `json:"category"`
	SelectedAccountID *int64  `json:"selectedAccount"`
	IsReconciled      *bool   `json:"is_reconciled"`
}

// BulkResult summarizes a committed bulk update.
type BulkResult struct {
	Updated  int     `json:"updated"`
	Accounts []int64 `json:"accounts"`
}

func (p BulkUpdate) empty() bool {
	return p.Notes == nil && p.Status == nil && p.CategoryID == nil && p.IsReconciled == nil
}

// BulkUpdateTransactions validates the whole batch before writing anything.
// Any failure rejects the batch with a *models.BulkValidationError. On
// success every distinct affected account is recomputed once, in the same
// database transaction as the writes.
func (s *Service) BulkUpdateTransactions(ctx context.Context, ownerID int64, patch BulkUpdate) (*BulkResult, error) {
	result := &BulkResult{}
	err := s.WithTx(ctx, func(tx *Service) error {
		txns, category, status, err := tx.validateBulk(ctx, ownerID, patch)
		if err != nil {
			return err
		}

		changes := make([]balance.Change, 0, len(txns))
		for _, before := range txns {
			after := *before
			if patch.Notes != nil {
				after.Notes = *patch.Notes
			}
			if category != nil {
				applyCategory(&after, category, *patch.SelectedAccountID)
			}
			if status != "" {
				after.SetStatus(status)
			}
			if err := tx.repo.UpdateTransaction(ctx, &after); err != nil {
				return err
			}
			if patch.IsReconciled != nil && status == "" {
				after.IsReconciled = *patch.IsReconciled
				if err := tx.repo.SetLegacyReconciled(ctx, after.ID, after.IsReconciled); err != nil {
					return err
				}
			}
			changes = append(changes, balance.TransactionUpdated(before, &after))
		}

		result.Updated = len(txns)
		result.Accounts = balance.Affected(changes...)
		return tx.engine.Apply(ctx, tx.repo, changes...)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"owner":    ownerID,
		"updated":  result.Updated,
		"accounts": result.Accounts,
	}).Info("Bulk update applied")
	return result, nil
}

func (s *Service) validateBulk(ctx context.Context, ownerID int64, patch BulkUpdate) ([]*models.Transaction, *models.Account, models.TransactionStatus, error) {
	verr := &models.BulkValidationError{}
	if len(patch.IDs) == 0 {
		verr.Add(0, "ids", "at least one transaction id is required")
	}
	if patch.empty() {
		verr.Add(0, "patch", "nothing to update")
	}

	var status models.TransactionStatus
	if patch.Status != nil {
		st, err := models.ParseTransactionStatus(*patch.Status)
		if err != nil {
			verr.Add(0, "status", "invalid status %q", *patch.Status)
		}
		status = st
	}

	var category *models.Account
	if patch.CategoryID != nil {
		if patch.SelectedAccountID == nil {
			verr.Add(0, "selectedAccount", "required when setting a category")
		}
		a, err := s.repo.GetAccount(ctx, *patch.CategoryID)
		switch {
		case errors.Is(err, models.ErrAccountNotFound) || (err == nil && a.OwnerID != ownerID):
			verr.Add(0, "category", "account %d not found", *patch.CategoryID)
		case err != nil:
			return nil, nil, "", err
		default:
			category = a
		}
	}

	seen := make(map[int64]bool, len(patch.IDs))
	txns := make([]*models.Transaction, 0, len(patch.IDs))
	for _, id := range patch.IDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		t, err := s.ownedTransaction(ctx, ownerID, id)
		if errors.Is(err, models.ErrTransactionNotFound) {
			verr.Add(id, "id", "transaction not found")
			continue
		}
		if err != nil {
			return nil, nil, "", err
		}
		if patch.CategoryID != nil && patch.SelectedAccountID != nil && !t.Touches(*patch.SelectedAccountID) {
			verr.Add(id, "selectedAccount", "transaction does not involve account %d", *patch.SelectedAccountID)
		}
		txns = append(txns, t)
	}

	if !verr.Empty() {
		return nil, nil, "", verr
	}
	return txns, category, status, nil
}

func applyCategory(t *models.Transaction, category *models.Account, selected int64) {
	switch {
	case t.DebitID == selected && t.CreditID == selected:
		if category.Type.DebitNormal() {
			t.DebitID = category.ID
		} else {
			t.CreditID = category.ID
		}
	case t.DebitID == selected:
		t.CreditID = category.ID
	default:
		t.DebitID = category.ID
	}
}
