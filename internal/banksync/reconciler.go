// Package banksync merges transactions from an upstream bank feed into the
// ledger.
package banksync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/Dan9191/ledger-service/internal/repository"
	"github.com/Dan9191/ledger-service/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Client is the upstream feed the reconciler pulls from.
type Client interface {
	CreateLinkToken(ctx context.Context, ownerID int64, accountID *int64) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error)
	GetInstitution(ctx context.Context, institutionID string) (*models.Institution, error)
	GetAccounts(ctx context.Context, accessToken string) ([]models.ExternalAccount, error)
	FetchTransactions(ctx context.Context, accessToken, cursor string) (*models.FeedPage, error)
}

// Sealer protects access tokens at rest.
type Sealer interface {
	Seal(data string) (string, error)
	Open(sealed string) (string, error)
}

// Notifier tells an owner about connections that stopped syncing.
type Notifier interface {
	SendFeedErrorReport(to, username string, conns []models.FeedConnection) error
}

// Options tune a Reconciler. Zero values fall back to defaults.
type Options struct {
	Timeout  time.Duration
	MaxPages int
	Notifier Notifier
}

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxPages = 10
)

// Reconciler syncs bank feed connections into the ledger
type Reconciler struct {
	repo     *repository.Repository
	svc      *service.Service
	client   Client
	box      Sealer
	log      *logrus.Logger
	timeout  time.Duration
	maxPages int
	notifier Notifier
	group    singleflight.Group
	now      func() time.Time
}

// NewReconciler creates a reconciler
func NewReconciler(repo *repository.Repository, svc *service.Service, client Client, box Sealer, log *logrus.Logger, opts Options) *Reconciler {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	return &Reconciler{
		repo:     repo,
		svc:      svc,
		client:   client,
		box:      box,
		log:      log,
		timeout:  opts.Timeout,
		maxPages: opts.MaxPages,
		notifier: opts.Notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type outcome int

const (
	outcomeAdded outcome = iota
	outcomeModified
	outcomeRemoved
	outcomeSkipped
	outcomeIgnored
)

// SyncConnection drains the connection's feed from its stored cursor.
// Concurrent calls for the same connection share a single run. The run is
// detached from the caller's cancellation so joined callers still get a
// result; a cancelled caller stops waiting and gets ctx.Err().
func (r *Reconciler) SyncConnection(ctx context.Context, id int64) (*models.SyncRun, error) {
	runCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(strconv.FormatInt(id, 10), func() (any, error) {
		return r.syncConnection(runCtx, id)
	})
	select {
	case res := <-ch:
		if res.Shared {
			r.log.WithField("connection", id).Debug("Joined in-flight sync")
		}
		run, _ := res.Val.(*models.SyncRun)
		return run, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SyncOwned syncs a connection after checking it belongs to ownerID.
func (r *Reconciler) SyncOwned(ctx context.Context, ownerID, id int64) (*models.SyncRun, error) {
	if _, err := r.ownedConnection(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return r.SyncConnection(ctx, id)
}

func (r *Reconciler) syncConnection(ctx context.Context, id int64) (*models.SyncRun, error) {
	conn, err := r.repo.GetConnection(ctx, id)
	if err != nil {
		return nil, err
	}
	if conn.Status == models.FeedDisconnected {
		return nil, models.NewFieldError("connection", "connection %d is disconnected", id)
	}

	run := &models.SyncRun{ID: uuid.NewString(), ConnectionID: conn.ID, StartedAt: r.now()}
	log := r.log.WithFields(logrus.Fields{"connection": conn.ID, "owner": conn.OwnerID, "run": run.ID})

	token, err := r.box.Open(conn.AccessToken)
	if err != nil {
		return r.fail(ctx, conn, run, log, fmt.Errorf("failed to open access token: %w", err))
	}

	cursor := conn.Cursor
	hasMore := true
	for hasMore && run.Pages < r.maxPages {
		page, err := r.fetch(ctx, token, cursor)
		if err != nil {
			return r.fail(ctx, conn, run, log, err)
		}
		run.Pages++
		r.applyPage(ctx, conn, page, run, log)

		if page.NextCursor != "" {
			cursor = page.NextCursor
		}
		if err := r.repo.SaveCursor(ctx, conn.ID, cursor, r.now()); err != nil {
			return r.fail(ctx, conn, run, log, err)
		}
		hasMore = page.HasMore
	}
	if hasMore {
		log.Infof("Stopped after %d pages, the rest follows on the next sync", run.Pages)
	}

	if conn.Status == models.FeedError {
		if err := r.repo.SetConnectionStatus(ctx, conn.ID, models.FeedActive, ""); err != nil {
			log.Errorf("Failed to reactivate connection: %v", err)
		}
	}

	run.Status = models.SyncRunOK
	if len(run.Errors) > 0 {
		run.Status = models.SyncRunPartial
	}
	r.finish(ctx, run, log)
	log.WithFields(logrus.Fields{
		"added":    run.Added,
		"modified": run.Modified,
		"removed":  run.Removed,
		"skipped":  run.Skipped,
		"errors":   len(run.Errors),
	}).Info("Bank feed synced")
	return run, nil
}

// fetch calls the upstream with a deadline. A timeout is an ordinary fetch failure.
func (r *Reconciler) fetch(ctx context.Context, token, cursor string) (*models.FeedPage, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	page, err := r.client.FetchTransactions(fetchCtx, token, cursor)
	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("feed fetch timed out after %s: %w", r.timeout, err)
		}
		return nil, fmt.Errorf("feed fetch failed: %w", err)
	}
	return page, nil
}

// fail marks the connection errored without moving its cursor.
func (r *Reconciler) fail(ctx context.Context, conn *models.FeedConnection, run *models.SyncRun, log *logrus.Entry, cause error) (*models.SyncRun, error) {
	log.Errorf("Bank feed sync failed: %v", cause)
	if err := r.repo.SetConnectionStatus(ctx, conn.ID, models.FeedError, cause.Error()); err != nil {
		log.Errorf("Failed to mark connection errored: %v", err)
	}
	run.Status = models.SyncRunFailed
	run.Errors = append(run.Errors, cause.Error())
	r.finish(ctx, run, log)
	return run, cause
}

func (r *Reconciler) finish(ctx context.Context, run *models.SyncRun, log *logrus.Entry) {
	run.FinishedAt = r.now()
	if err := r.repo.CreateSyncRun(ctx, run); err != nil {
		log.Errorf("Failed to record sync run: %v", err)
	}
}

// applyPage merges every row independently. Row failures are recorded on
// the run and never stop the page.
func (r *Reconciler) applyPage(ctx context.Context, conn *models.FeedConnection, page *models.FeedPage, run *models.SyncRun, log *logrus.Entry) {
	rows := make([]models.ExternalTxn, 0, len(page.Added)+len(page.Modified))
	rows = append(rows, page.Added...)
	rows = append(rows, page.Modified...)

	for _, ext := range rows {
		result, err := r.importRow(ctx, conn, ext)
		if err != nil {
			msg := fmt.Sprintf("transaction %s: %v", ext.ID, err)
			run.Errors = append(run.Errors, msg)
			log.Warn(msg)
			continue
		}
		count(run, result)
	}
	for _, extID := range page.Removed {
		result, err := r.removeRow(ctx, conn, extID)
		if err != nil {
			msg := fmt.Sprintf("removed transaction %s: %v", extID, err)
			run.Errors = append(run.Errors, msg)
			log.Warn(msg)
			continue
		}
		count(run, result)
	}
}

func count(run *models.SyncRun, o outcome) {
	switch o {
	case outcomeAdded:
		run.Added++
	case outcomeModified:
		run.Modified++
	case outcomeRemoved:
		run.Removed++
	case outcomeSkipped:
		run.Skipped++
	}
}

func (r *Reconciler) importRow(ctx context.Context, conn *models.FeedConnection, ext models.ExternalTxn) (outcome, error) {
	if conn.ExternalAccountID != "" && ext.AccountID != conn.ExternalAccountID {
		return outcomeIgnored, nil
	}
	if ext.ID == "" {
		return 0, errors.New("missing transaction id")
	}
	date, err := models.ParseDate(ext.Date)
	if err != nil {
		return 0, fmt.Errorf("malformed date %q", ext.Date)
	}
	amount, err := decimal.NewFromString(ext.Amount)
	if err != nil {
		return 0, fmt.Errorf("malformed amount %q", ext.Amount)
	}

	var result outcome
	err = r.repo.WithTx(ctx, func(tx *repository.Repository) error {
		svc := r.svc.Using(tx)
		link, err := tx.GetLinkByExternalID(ctx, ext.ID)
		if err != nil {
			return err
		}
		if link == nil {
			result = outcomeAdded
			return r.createFromFeed(ctx, tx, svc, conn, ext, date, amount)
		}
		result, err = r.updateFromFeed(ctx, tx, svc, conn, link, ext, date, amount)
		return err
	})
	return result, err
}

// createFromFeed posts a new review transaction. A positive upstream amount
// is money leaving the linked account, so the category side is debited.
func (r *Reconciler) createFromFeed(ctx context.Context, tx *repository.Repository, svc *service.Service, conn *models.FeedConnection, ext models.ExternalTxn, date models.Date, amount decimal.Decimal) error {
	leaving := amount.IsPositive()
	category, err := svc.CategoryAccount(ctx, conn.OwnerID, mostSpecific(ext.Category), !leaving)
	if err != nil {
		return fmt.Errorf("failed to resolve category: %w", err)
	}

	in := service.NewTransaction{
		Date:     date,
		Amount:   amount.Abs().Round(2),
		Notes:    feedNotes(ext),
		Merchant: ext.MerchantName,
		Status:   models.StatusReview,
	}
	if leaving {
		in.DebitID, in.CreditID = category.ID, conn.AccountID
	} else {
		in.DebitID, in.CreditID = conn.AccountID, category.ID
	}
	t, err := svc.CreateTransaction(ctx, conn.OwnerID, in)
	if err != nil {
		return err
	}
	return tx.CreateLink(ctx, &models.FeedLink{ConnectionID: conn.ID, TransactionID: t.ID, ExternalID: ext.ID})
}

// updateFromFeed refreshes date, amount and notes of a linked transaction
// that is still in review. Reviewed transactions keep the user's edits.
func (r *Reconciler) updateFromFeed(ctx context.Context, tx *repository.Repository, svc *service.Service, conn *models.FeedConnection, link *models.FeedLink, ext models.ExternalTxn, date models.Date, amount decimal.Decimal) (outcome, error) {
	if link.ConnectionID != conn.ID {
		return outcomeIgnored, nil
	}
	t, err := tx.GetTransaction(ctx, link.TransactionID)
	if err != nil {
		return 0, err
	}
	if t.Status != models.StatusReview {
		return outcomeSkipped, nil
	}

	abs := amount.Abs().Round(2)
	patch := service.TransactionPatch{Date: &date, Amount: &abs}
	if ext.Name != "" {
		patch.Notes = &ext.Name
	}
	if _, err := svc.UpdateTransaction(ctx, conn.OwnerID, t.ID, patch); err != nil {
		return 0, err
	}
	return outcomeModified, nil
}

// removeRow deletes a transaction removed upstream, unless the user already
// moved it past review.
func (r *Reconciler) removeRow(ctx context.Context, conn *models.FeedConnection, extID string) (outcome, error) {
	result := outcomeIgnored
	err := r.repo.WithTx(ctx, func(tx *repository.Repository) error {
		link, err := tx.GetLinkByExternalID(ctx, extID)
		if err != nil || link == nil || link.ConnectionID != conn.ID {
			return err
		}
		t, err := tx.GetTransaction(ctx, link.TransactionID)
		if err != nil {
			return err
		}
		if t.Status != models.StatusReview {
			result = outcomeSkipped
			return nil
		}
		if err := r.svc.Using(tx).DeleteTransaction(ctx, conn.OwnerID, t.ID); err != nil {
			return err
		}
		result = outcomeRemoved
		return nil
	})
	return result, err
}

func mostSpecific(category []string) string {
	if len(category) == 0 {
		return ""
	}
	return category[len(category)-1]
}

func feedNotes(ext models.ExternalTxn) string {
	switch {
	case ext.Name != "":
		return ext.Name
	case ext.MerchantName != "":
		return ext.MerchantName
	}
	return "Bank feed transaction " + ext.ID
}
