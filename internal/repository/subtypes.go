package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/ledger-service/internal/models"
)

// CreateSubAccountType stores a new sub-classification.
func (r *Repository) CreateSubAccountType(ctx context.Context, st *models.SubAccountType) error {
	query := `INSERT INTO sub_account_types (sub_type, account_type) VALUES (?, ?) RETURNING id`
	if err := r.queryRow(ctx, query, st.Name, string(st.AccountType)).Scan(&st.ID); err != nil {
		if isUniqueViolation(err) {
			return models.NewFieldError("subType", "%q already exists for %s", st.Name, st.AccountType)
		}
		return fmt.Errorf("failed to create sub account type: %w", err)
	}
	return nil
}

// GetSubAccountType retrieves a sub-classification by id.
func (r *Repository) GetSubAccountType(ctx context.Context, id int64) (*models.SubAccountType, error) {
	st := &models.SubAccountType{}
	query := `SELECT id, sub_type, account_type FROM sub_account_types WHERE id = ?`
	err := r.queryRow(ctx, query, id).Scan(&st.ID, &st.Name, &st.AccountType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewFieldError("subType", "sub account type %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sub account type: %w", err)
	}
	return st, nil
}

// ListSubAccountTypes returns all sub-classifications grouped by account type.
func (r *Repository) ListSubAccountTypes(ctx context.Context) ([]models.SubAccountType, error) {
	rows, err := r.query(ctx, `SELECT id, sub_type, account_type FROM sub_account_types ORDER BY account_type, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sub account types: %w", err)
	}
	defer rows.Close()

	var types []models.SubAccountType
	for rows.Next() {
		var st models.SubAccountType
		if err := rows.Scan(&st.ID, &st.Name, &st.AccountType); err != nil {
			return nil, fmt.Errorf("failed to scan sub account type: %w", err)
		}
		types = append(types, st)
	}
	return types, rows.Err()
}
