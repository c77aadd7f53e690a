package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/ledger-service/internal/models"
)

// FindMerchantByName looks up a merchant by exact name within one owner.
func (r *Repository) FindMerchantByName(ctx context.Context, ownerID int64, name string) (*models.Merchant, error) {
	m := &models.Merchant{}
	query := `SELECT id, owner_id, name FROM merchants WHERE owner_id = ? AND name = ?`
	err := r.queryRow(ctx, query, ownerID, name).Scan(&m.ID, &m.OwnerID, &m.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrMerchantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find merchant: %w", err)
	}
	return m, nil
}

// GetMerchant retrieves a merchant by id.
func (r *Repository) GetMerchant(ctx context.Context, id int64) (*models.Merchant, error) {
	m := &models.Merchant{}
	err := r.queryRow(ctx, `SELECT id, owner_id, name FROM merchants WHERE id = ?`, id).Scan(&m.ID, &m.OwnerID, &m.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrMerchantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}
	return m, nil
}

// CreateMerchant inserts a merchant.
func (r *Repository) CreateMerchant(ctx context.Context, m *models.Merchant) error {
	query := `INSERT INTO merchants (owner_id, name) VALUES (?, ?) RETURNING id`
	if err := r.queryRow(ctx, query, m.OwnerID, m.Name).Scan(&m.ID); err != nil {
		return fmt.Errorf("failed to create merchant: %w", err)
	}
	return nil
}

// ListMerchants returns the owner's merchants sorted by name.
func (r *Repository) ListMerchants(ctx context.Context, ownerID int64) ([]models.Merchant, error) {
	rows, err := r.query(ctx, `SELECT id, owner_id, name FROM merchants WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchants: %w", err)
	}
	defer rows.Close()

	var merchants []models.Merchant
	for rows.Next() {
		var m models.Merchant
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan merchant: %w", err)
		}
		merchants = append(merchants, m)
	}
	return merchants, rows.Err()
}
