package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/ledger-service/internal/models"
)

const transactionColumns = `id, owner_id, txn_date, amount, debit_id, credit_id, merchant_id,
	notes, status, is_reconciled, updated_at`

func scanTransaction(s scanner) (*models.Transaction, error) {
	var (
		t        models.Transaction
		amount   int64
		merchant sql.NullInt64
	)
	err := s.Scan(&t.ID, &t.OwnerID, &t.Date, &amount, &t.DebitID, &t.CreditID, &merchant,
		&t.Notes, &t.Status, &t.IsReconciled, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Amount = models.FromMinor(amount)
	if merchant.Valid {
		id := merchant.Int64
		t.MerchantID = &id
	}
	return &t, nil
}

// CreateTransaction inserts a transaction. The legacy reconciled flag is
// derived from status.
func (r *Repository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	t.UpdatedAt = time.Now().UTC()
	t.IsReconciled = t.Status == models.StatusReconciled
	query := `
		INSERT INTO transactions (owner_id, txn_date, amount, debit_id, credit_id, merchant_id,
			notes, status, is_reconciled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	err := r.queryRow(ctx, query, t.OwnerID, t.Date, models.ToMinor(t.Amount), t.DebitID, t.CreditID,
		t.MerchantID, t.Notes, string(t.Status), t.IsReconciled, t.UpdatedAt).Scan(&t.ID)
	if isForeignKeyViolation(err) {
		return models.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransaction retrieves a transaction by id
func (r *Repository) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(r.queryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns the owner's transactions, newest first.
func (r *Repository) ListTransactions(ctx context.Context, ownerID int64, f models.TransactionFilter) ([]models.Transaction, error) {
	where := []string{"owner_id = ?"}
	args := []any{ownerID}
	if f.AccountID != 0 {
		where = append(where, "(debit_id = ? OR credit_id = ?)")
		args = append(args, f.AccountID, f.AccountID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		where = append(where, "txn_date >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "txn_date <= ?")
		args = append(args, f.To)
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY txn_date DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}

// UpdateTransaction rewrites every mutable field of a stored transaction.
// The legacy reconciled flag is written as given; use Transaction.SetStatus
// to keep it in step with a status change.
func (r *Repository) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	t.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE transactions
		SET txn_date = ?, amount = ?, debit_id = ?, credit_id = ?, merchant_id = ?,
			notes = ?, status = ?, is_reconciled = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.exec(ctx, query, t.Date, models.ToMinor(t.Amount), t.DebitID, t.CreditID, t.MerchantID,
		t.Notes, string(t.Status), t.IsReconciled, t.UpdatedAt, t.ID)
	if isForeignKeyViolation(err) {
		return models.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return expectOne(res, models.ErrTransactionNotFound)
}

// DeleteTransaction removes a transaction and any feed link pointing at it.
func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := r.exec(ctx, `DELETE FROM feed_links WHERE transaction_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete feed links: %w", err)
	}
	res, err := r.exec(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectOne(res, models.ErrTransactionNotFound)
}

// SetLegacyReconciled writes only the deprecated reconciled flag. Nothing
// reads it for balances.
func (r *Repository) SetLegacyReconciled(ctx context.Context, id int64, reconciled bool) error {
	res, err := r.exec(ctx, `UPDATE transactions SET is_reconciled = ? WHERE id = ?`, reconciled, id)
	if err != nil {
		return fmt.Errorf("failed to update reconciled flag: %w", err)
	}
	return expectOne(res, models.ErrTransactionNotFound)
}
