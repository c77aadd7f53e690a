package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/ledger-service/internal/models"
)

const connectionColumns = `id, owner_id, account_id, item_id, access_token, external_account_id,
	institution_name, sync_cursor, status, error_message, last_sync, created_at, updated_at`

func scanConnection(s scanner) (*models.FeedConnection, error) {
	var (
		c        models.FeedConnection
		lastSync sql.NullTime
	)
	err := s.Scan(&c.ID, &c.OwnerID, &c.AccountID, &c.ItemID, &c.AccessToken, &c.ExternalAccountID,
		&c.InstitutionName, &c.Cursor, &c.Status, &c.ErrorMessage, &lastSync, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastSync.Valid {
		t := lastSync.Time
		c.LastSync = &t
	}
	return &c, nil
}

func (r *Repository) queryConnections(ctx context.Context, query string, args ...any) ([]models.FeedConnection, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []models.FeedConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}
	return conns, nil
}

// UpsertConnection stores a connection keyed by (owner, account). An existing
// row gets the new item, token and institution and is reactivated; its cursor
// is reset only when the item changed.
func (r *Repository) UpsertConnection(ctx context.Context, c *models.FeedConnection) error {
	return r.WithTx(ctx, func(tx *Repository) error {
		now := time.Now().UTC()
		existing, err := scanConnection(tx.queryRow(ctx,
			`SELECT `+connectionColumns+` FROM feed_connections WHERE owner_id = ? AND account_id = ?`,
			c.OwnerID, c.AccountID))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			c.CreatedAt, c.UpdatedAt = now, now
			if c.Status == "" {
				c.Status = models.FeedActive
			}
			query := `
				INSERT INTO feed_connections (owner_id, account_id, item_id, access_token, external_account_id,
					institution_name, sync_cursor, status, error_message, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				RETURNING id`
			err := tx.queryRow(ctx, query, c.OwnerID, c.AccountID, c.ItemID, c.AccessToken, c.ExternalAccountID,
				c.InstitutionName, c.Cursor, string(c.Status), c.ErrorMessage, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
			if err != nil {
				return fmt.Errorf("failed to create connection: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to find connection: %w", err)
		}

		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
		c.UpdatedAt = now
		c.Status = models.FeedActive
		c.ErrorMessage = ""
		c.LastSync = existing.LastSync
		if existing.ItemID == c.ItemID && c.Cursor == "" {
			c.Cursor = existing.Cursor
		}
		query := `
			UPDATE feed_connections
			SET item_id = ?, access_token = ?, external_account_id = ?, institution_name = ?,
				sync_cursor = ?, status = ?, error_message = '', updated_at = ?
			WHERE id = ?`
		_, err = tx.exec(ctx, query, c.ItemID, c.AccessToken, c.ExternalAccountID, c.InstitutionName,
			c.Cursor, string(c.Status), c.UpdatedAt, c.ID)
		if err != nil {
			return fmt.Errorf("failed to update connection: %w", err)
		}
		return nil
	})
}

// GetConnection retrieves a connection by id.
func (r *Repository) GetConnection(ctx context.Context, id int64) (*models.FeedConnection, error) {
	c, err := scanConnection(r.queryRow(ctx, `SELECT `+connectionColumns+` FROM feed_connections WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return c, nil
}

// ListConnections returns the owner's connections.
func (r *Repository) ListConnections(ctx context.Context, ownerID int64) ([]models.FeedConnection, error) {
	return r.queryConnections(ctx, `SELECT `+connectionColumns+` FROM feed_connections WHERE owner_id = ? ORDER BY id`, ownerID)
}

// ListConnectionsByStatus returns every connection in the given state.
func (r *Repository) ListConnectionsByStatus(ctx context.Context, status models.FeedStatus) ([]models.FeedConnection, error) {
	return r.queryConnections(ctx, `SELECT `+connectionColumns+` FROM feed_connections WHERE status = ? ORDER BY id`, string(status))
}

// SaveCursor persists the position reached by a sync along with its time.
func (r *Repository) SaveCursor(ctx context.Context, id int64, cursor string, syncedAt time.Time) error {
	query := `UPDATE feed_connections SET sync_cursor = ?, last_sync = ?, updated_at = ? WHERE id = ?`
	res, err := r.exec(ctx, query, cursor, syncedAt, syncedAt, id)
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return expectOne(res, models.ErrConnectionNotFound)
}

// SetConnectionStatus changes the health state and its message.
func (r *Repository) SetConnectionStatus(ctx context.Context, id int64, status models.FeedStatus, message string) error {
	query := `UPDATE feed_connections SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`
	res, err := r.exec(ctx, query, string(status), message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set connection status: %w", err)
	}
	return expectOne(res, models.ErrConnectionNotFound)
}

// GetLinkByExternalID finds the link for an upstream transaction id.
func (r *Repository) GetLinkByExternalID(ctx context.Context, externalID string) (*models.FeedLink, error) {
	l := &models.FeedLink{}
	query := `SELECT id, connection_id, transaction_id, external_id, imported_at FROM feed_links WHERE external_id = ?`
	err := r.queryRow(ctx, query, externalID).Scan(&l.ID, &l.ConnectionID, &l.TransactionID, &l.ExternalID, &l.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find feed link: %w", err)
	}
	return l, nil
}

// CreateLink records which transaction an upstream id produced.
func (r *Repository) CreateLink(ctx context.Context, l *models.FeedLink) error {
	l.ImportedAt = time.Now().UTC()
	query := `
		INSERT INTO feed_links (connection_id, transaction_id, external_id, imported_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`
	err := r.queryRow(ctx, query, l.ConnectionID, l.TransactionID, l.ExternalID, l.ImportedAt).Scan(&l.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("upstream transaction %s already linked: %w", l.ExternalID, err)
	}
	if err != nil {
		return fmt.Errorf("failed to create feed link: %w", err)
	}
	return nil
}

// CreateSyncRun stores a finished sync run.
func (r *Repository) CreateSyncRun(ctx context.Context, run *models.SyncRun) error {
	errs := run.Errors
	if errs == nil {
		errs = []string{}
	}
	encoded, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("failed to encode sync errors: %w", err)
	}
	query := `
		INSERT INTO sync_runs (id, connection_id, started_at, finished_at, added, modified, removed,
			skipped, pages, status, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.exec(ctx, query, run.ID, run.ConnectionID, run.StartedAt, run.FinishedAt, run.Added,
		run.Modified, run.Removed, run.Skipped, run.Pages, run.Status, string(encoded))
	if err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

// ListSyncRuns returns the most recent runs of a connection, newest first.
func (r *Repository) ListSyncRuns(ctx context.Context, connectionID int64, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, connection_id, started_at, finished_at, added, modified, removed, skipped, pages, status, errors
		FROM sync_runs WHERE connection_id = ? ORDER BY started_at DESC LIMIT ?`
	rows, err := r.query(ctx, query, connectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var (
			run     models.SyncRun
			encoded string
		)
		err := rows.Scan(&run.ID, &run.ConnectionID, &run.StartedAt, &run.FinishedAt, &run.Added,
			&run.Modified, &run.Removed, &run.Skipped, &run.Pages, &run.Status, &encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &run.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode sync errors: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
