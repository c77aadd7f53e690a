package service

import (
	"context"
	"strings"

	"github.com/Dan9191/ledger-service/internal/balance"
	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// NewTransaction is the input for CreateTransaction.
//
// DebitID and CreditID are the explicitly chosen sides; zero means not
// supplied. AccountID fills any missing side. With no Status, a transaction
// whose both sides were supplied is categorized and anything else is review.
type NewTransaction struct {
	Date       models.Date              `json:"date"`
	Amount     decimal.Decimal          `json:"amount"`
	DebitID    int64                    `json:"debit"`
	CreditID   int64                    `json:"credit"`
	AccountID  int64                    `json:"account"`
	Notes      string                   `json:"notes"`
	MerchantID *int64                   `json:"merchant"`
	Merchant   string                   `json:"merchantName"`
	Status     models.TransactionStatus `json:"status"`
}

// TransactionPatch holds the editable fields of a single transaction.
// Status is changed through SetStatus.
type TransactionPatch struct {
	Date          *models.Date     `json:"date"`
	Amount        *decimal.Decimal `json:"amount"`
	DebitID       *int64           `json:"debit"`
	CreditID      *int64           `json:"credit"`
	Notes         *string          `json:"notes"`
	MerchantID    *int64           `json:"merchant"`
	ClearMerchant bool             `json:"clearMerchant"`
}

func validateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return models.NewFieldError("amount", "must not be negative")
	}
	if !models.HasCents(amount) {
		return models.NewFieldError("amount", "must have at most two fraction digits")
	}
	if !models.FitsMinor(amount) {
		return models.NewFieldError("amount", "is too large")
	}
	return nil
}

// CreateTransaction posts a ledger entry and recomputes both accounts in the
// same database transaction.
func (s *Service) CreateTransaction(ctx context.Context, ownerID int64, in NewTransaction) (*models.Transaction, error) {
	if in.Date.IsZero() {
		return nil, models.NewFieldError("date", "is required")
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.StatusReview
		if in.DebitID != 0 && in.CreditID != 0 {
			status = models.StatusCategorized
		}
	} else if _, err := models.ParseTransactionStatus(string(status)); err != nil {
		return nil, err
	}

	debit, credit := in.DebitID, in.CreditID
	if debit == 0 {
		debit = in.AccountID
	}
	if credit == 0 {
		credit = in.AccountID
	}
	if debit == 0 && credit == 0 {
		return nil, models.NewFieldError("debit", "a debit, credit or account is required")
	}
	if debit == 0 {
		debit = credit
	}
	if credit == 0 {
		credit = debit
	}

	t := &models.Transaction{
		OwnerID:    ownerID,
		Date:       in.Date,
		Amount:     in.Amount,
		DebitID:    debit,
		CreditID:   credit,
		MerchantID: in.MerchantID,
		Notes:      strings.TrimSpace(in.Notes),
		Status:     status,
	}
	err := s.WithTx(ctx, func(tx *Service) error {
		if _, err := tx.ledgerAccount(ctx, ownerID, t.DebitID, "debit"); err != nil {
			return err
		}
		if _, err := tx.ledgerAccount(ctx, ownerID, t.CreditID, "credit"); err != nil {
			return err
		}
		if err := tx.resolveMerchant(ctx, ownerID, t, in.Merchant); err != nil {
			return err
		}
		if err := tx.repo.CreateTransaction(ctx, t); err != nil {
			return err
		}
		return tx.engine.Apply(ctx, tx.repo, balance.TransactionCreated(t))
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"owner":       ownerID,
		"transaction": t.ID,
		"debit":       t.DebitID,
		"credit":      t.CreditID,
		"status":      t.Status,
	}).Info("Transaction created")
	return t, nil
}

func (s *Service) resolveMerchant(ctx context.Context, ownerID int64, t *models.Transaction, name string) error {
	if t.MerchantID != nil {
		return s.checkMerchant(ctx, ownerID, *t.MerchantID)
	}
	if strings.TrimSpace(name) == "" {
		return nil
	}
	m, err := s.FindOrCreateMerchant(ctx, ownerID, name)
	if err != nil {
		return err
	}
	t.MerchantID = &m.ID
	return nil
}

// GetTransaction returns one of the owner's transactions
func (s *Service) GetTransaction(ctx context.Context, ownerID, id int64) (*models.Transaction, error) {
	return s.ownedTransaction(ctx, ownerID, id)
}

// ListTransactions returns the owner's transactions matching f
func (s *Service) ListTransactions(ctx context.Context, ownerID int64, f models.TransactionFilter) ([]models.Transaction, error) {
	if f.Status != "" {
		if _, err := models.ParseTransactionStatus(string(f.Status)); err != nil {
			return nil, err
		}
	}
	return s.repo.ListTransactions(ctx, ownerID, f)
}

// UpdateTransaction edits a single transaction. The accounts on both the old
// and new sides are recomputed.
func (s *Service) UpdateTransaction(ctx context.Context, ownerID, id int64, patch TransactionPatch) (*models.Transaction, error) {
	if patch.Amount != nil {
		if err := validateAmount(*patch.Amount); err != nil {
			return nil, err
		}
	}
	if patch.Date != nil && patch.Date.IsZero() {
		return nil, models.NewFieldError("date", "is required")
	}

	var updated *models.Transaction
	err := s.WithTx(ctx, func(tx *Service) error {
		before, err := tx.ownedTransaction(ctx, ownerID, id)
		if err != nil {
			return err
		}
		after := *before
		if patch.Date != nil {
			after.Date = *patch.Date
		}
		if patch.Amount != nil {
			after.Amount = *patch.Amount
		}
		if patch.Notes != nil {
			after.Notes = strings.TrimSpace(*patch.Notes)
		}
		if patch.DebitID != nil {
			if _, err := tx.ledgerAccount(ctx, ownerID, *patch.DebitID, "debit"); err != nil {
				return err
			}
			after.DebitID = *patch.DebitID
		}
		if patch.CreditID != nil {
			if _, err := tx.ledgerAccount(ctx, ownerID, *patch.CreditID, "credit"); err != nil {
				return err
			}
			after.CreditID = *patch.CreditID
		}
		if patch.ClearMerchant {
			after.MerchantID = nil
		} else if patch.MerchantID != nil {
			if err := tx.checkMerchant(ctx, ownerID, *patch.MerchantID); err != nil {
				return err
			}
			after.MerchantID = patch.MerchantID
		}
		if err := tx.repo.UpdateTransaction(ctx, &after); err != nil {
			return err
		}
		updated = &after
		return tx.engine.Apply(ctx, tx.repo, balance.TransactionUpdated(before, &after))
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"owner": ownerID, "transaction": id}).Info("Transaction updated")
	return updated, nil
}

// DeleteTransaction removes a transaction and restores both accounts'
// balances to what they would be without it.
func (s *Service) DeleteTransaction(ctx context.Context, ownerID, id int64) error {
	err := s.WithTx(ctx, func(tx *Service) error {
		t, err := tx.ownedTransaction(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if err := tx.repo.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		return tx.engine.Apply(ctx, tx.repo, balance.TransactionDeleted(t))
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"owner": ownerID, "transaction": id}).Info("Transaction deleted")
	return nil
}

// SetStatus moves a transaction to any of the three statuses and recomputes
// both referenced accounts, since reconciled balances depend on status.
func (s *Service) SetStatus(ctx context.Context, ownerID, id int64, status string) (*models.Transaction, error) {
	newStatus, err := models.ParseTransactionStatus(status)
	if err != nil {
		return nil, err
	}
	var t *models.Transaction
	err = s.WithTx(ctx, func(tx *Service) error {
		current, err := tx.ownedTransaction(ctx, ownerID, id)
		if err != nil {
			return err
		}
		current.SetStatus(newStatus)
		if err := tx.repo.UpdateTransaction(ctx, current); err != nil {
			return err
		}
		t = current
		return tx.engine.Apply(ctx, tx.repo, balance.TransactionStatusChanged(current))
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"owner": ownerID, "transaction": id, "status": newStatus}).
		Info("Transaction status changed")
	return t, nil
}
