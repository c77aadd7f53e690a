package banksync

import (
	"context"
	"sort"
	"strings"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/Dan9191/ledger-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// ExchangeRequest completes the bank linking flow for one ledger account.
type ExchangeRequest struct {
	AccountID     int64  `json:"account"`
	PublicToken   string `json:"public_token"`
	InstitutionID string `json:"institution_id"`
}

// CreateLinkToken starts linking a bank, optionally for a specific account.
func (r *Reconciler) CreateLinkToken(ctx context.Context, ownerID int64, accountID *int64) (string, error) {
	if accountID != nil {
		if _, err := r.svc.GetAccount(ctx, ownerID, *accountID); err != nil {
			return "", err
		}
	}
	return r.client.CreateLinkToken(ctx, ownerID, accountID)
}

// ExchangePublicToken stores a connection for the account. The access token
// is sealed before it is written and is never returned.
func (r *Reconciler) ExchangePublicToken(ctx context.Context, ownerID int64, req ExchangeRequest) (*models.FeedConnection, error) {
	if strings.TrimSpace(req.PublicToken) == "" {
		return nil, models.NewFieldError("public_token", "is required")
	}
	if _, err := r.svc.GetAccount(ctx, ownerID, req.AccountID); err != nil {
		return nil, err
	}

	accessToken, itemID, err := r.client.ExchangePublicToken(ctx, req.PublicToken)
	if err != nil {
		return nil, err
	}
	sealed, err := r.box.Seal(accessToken)
	if err != nil {
		return nil, err
	}

	conn := &models.FeedConnection{
		OwnerID:         ownerID,
		AccountID:       req.AccountID,
		ItemID:          itemID,
		AccessToken:     sealed,
		InstitutionName: r.institutionName(ctx, req.InstitutionID),
		Status:          models.FeedActive,
	}
	err = r.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := tx.UpsertConnection(ctx, conn); err != nil {
			return err
		}
		return tx.SetBankFeed(ctx, conn.AccountID, true)
	})
	if err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{"owner": ownerID, "connection": conn.ID, "account": conn.AccountID}).
		Infof("Bank connected: %s", conn.InstitutionName)
	return conn, nil
}

// institutionName never fails: lookup problems fall back to a generic name.
func (r *Reconciler) institutionName(ctx context.Context, institutionID string) string {
	if institutionID == "" {
		return models.DefaultInstitutionName
	}
	inst, err := r.client.GetInstitution(ctx, institutionID)
	if err != nil {
		r.log.Warnf("Institution lookup failed for %s: %v", institutionID, err)
		return models.DefaultInstitutionName
	}
	if inst == nil || inst.Name == "" {
		return models.DefaultInstitutionName
	}
	return inst.Name
}

// ListExternalAccounts returns the upstream sub-accounts behind a connection.
func (r *Reconciler) ListExternalAccounts(ctx context.Context, ownerID, connectionID int64) ([]models.ExternalAccount, error) {
	conn, err := r.ownedConnection(ctx, ownerID, connectionID)
	if err != nil {
		return nil, err
	}
	token, err := r.box.Open(conn.AccessToken)
	if err != nil {
		return nil, err
	}
	return r.client.GetAccounts(ctx, token)
}

// MapAccounts attaches upstream sub-accounts to ledger accounts. Each mapped
// account gets its own connection sharing the source item and token, filtered
// to its sub-account.
func (r *Reconciler) MapAccounts(ctx context.Context, ownerID, connectionID int64, mapping map[string]int64) ([]models.FeedConnection, error) {
	if len(mapping) == 0 {
		return nil, models.NewFieldError("mapping", "at least one account mapping is required")
	}
	src, err := r.ownedConnection(ctx, ownerID, connectionID)
	if err != nil {
		return nil, err
	}

	externalIDs := make([]string, 0, len(mapping))
	for id := range mapping {
		externalIDs = append(externalIDs, id)
	}
	sort.Strings(externalIDs)

	conns := make([]models.FeedConnection, 0, len(mapping))
	err = r.repo.WithTx(ctx, func(tx *repository.Repository) error {
		svc := r.svc.Using(tx)
		for _, extID := range externalIDs {
			accountID := mapping[extID]
			if _, err := svc.GetAccount(ctx, ownerID, accountID); err != nil {
				return err
			}
			conn := &models.FeedConnection{
				OwnerID:           ownerID,
				AccountID:         accountID,
				ItemID:            src.ItemID,
				AccessToken:       src.AccessToken,
				ExternalAccountID: extID,
				InstitutionName:   src.InstitutionName,
				Status:            models.FeedActive,
			}
			if err := tx.UpsertConnection(ctx, conn); err != nil {
				return err
			}
			if err := tx.SetBankFeed(ctx, accountID, true); err != nil {
				return err
			}
			conns = append(conns, *conn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{"owner": ownerID, "connection": connectionID}).
		Infof("Mapped %d bank accounts", len(conns))
	return conns, nil
}

// Disconnect stops syncing a connection and clears the account's feed flag.
func (r *Reconciler) Disconnect(ctx context.Context, ownerID, connectionID int64) error {
	conn, err := r.ownedConnection(ctx, ownerID, connectionID)
	if err != nil {
		return err
	}
	err = r.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := tx.SetConnectionStatus(ctx, conn.ID, models.FeedDisconnected, ""); err != nil {
			return err
		}
		return tx.SetBankFeed(ctx, conn.AccountID, false)
	})
	if err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{"owner": ownerID, "connection": conn.ID}).Info("Bank disconnected")
	return nil
}

// ListConnections returns the owner's connections without their tokens.
func (r *Reconciler) ListConnections(ctx context.Context, ownerID int64) ([]models.FeedConnection, error) {
	return r.repo.ListConnections(ctx, ownerID)
}

// ListSyncRuns returns recent runs of one of the owner's connections.
func (r *Reconciler) ListSyncRuns(ctx context.Context, ownerID, connectionID int64, limit int) ([]models.SyncRun, error) {
	if _, err := r.ownedConnection(ctx, ownerID, connectionID); err != nil {
		return nil, err
	}
	return r.repo.ListSyncRuns(ctx, connectionID, limit)
}

func (r *Reconciler) ownedConnection(ctx context.Context, ownerID, id int64) (*models.FeedConnection, error) {
	conn, err := r.repo.GetConnection(ctx, id)
	if err != nil {
		return nil, err
	}
	if conn.OwnerID != ownerID {
		return nil, models.ErrConnectionNotFound
	}
	return conn, nil
}
