package banksync

import (
	"context"
	"fmt"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/sirupsen/logrus"
)

// SweepResult summarizes a pass over many connections.
type SweepResult struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Added     int      `json:"added"`
	Modified  int      `json:"modified"`
	Removed   int      `json:"removed"`
	Errors    []string `json:"errors"`
}

func (s *SweepResult) record(conn models.FeedConnection, run *models.SyncRun, err error) {
	if run != nil {
		s.Added += run.Added
		s.Modified += run.Modified
		s.Removed += run.Removed
	}
	if err != nil {
		s.Failed++
		s.Errors = append(s.Errors, fmt.Sprintf("connection %d: %v", conn.ID, err))
		return
	}
	s.Succeeded++
}

// SyncAllActive syncs every active connection. A failing connection is
// marked errored and the sweep moves on.
func (r *Reconciler) SyncAllActive(ctx context.Context) (*SweepResult, error) {
	conns, err := r.repo.ListConnectionsByStatus(ctx, models.FeedActive)
	if err != nil {
		return nil, err
	}
	result := &SweepResult{Total: len(conns)}
	for _, conn := range conns {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		run, err := r.SyncConnection(ctx, conn.ID)
		result.record(conn, run, err)
	}
	r.log.WithFields(logrus.Fields{
		"total":     result.Total,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}).Info("Sync sweep finished")
	return result, nil
}

// RetryErrored reactivates each errored connection and syncs it once. A
// connection that fails again goes back to errored.
func (r *Reconciler) RetryErrored(ctx context.Context) (*SweepResult, error) {
	conns, err := r.repo.ListConnectionsByStatus(ctx, models.FeedError)
	if err != nil {
		return nil, err
	}
	result := &SweepResult{Total: len(conns)}
	for _, conn := range conns {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err := r.repo.SetConnectionStatus(ctx, conn.ID, models.FeedActive, ""); err != nil {
			result.record(conn, nil, err)
			continue
		}
		run, err := r.SyncConnection(ctx, conn.ID)
		result.record(conn, run, err)
	}
	r.log.WithFields(logrus.Fields{
		"total":       result.Total,
		"recovered":   result.Succeeded,
		"still_error": result.Failed,
	}).Info("Retry sweep finished")
	return result, nil
}

// ReportResult summarizes an error report pass.
type ReportResult struct {
	Errored  int `json:"errored"`
	Owners   int `json:"owners"`
	Notified int `json:"notified"`
}

// ReportErrored logs every errored connection and, when a notifier is set,
// emails each affected owner once.
func (r *Reconciler) ReportErrored(ctx context.Context) (*ReportResult, error) {
	conns, err := r.repo.ListConnectionsByStatus(ctx, models.FeedError)
	if err != nil {
		return nil, err
	}
	result := &ReportResult{Errored: len(conns)}

	byOwner := make(map[int64][]models.FeedConnection)
	var owners []int64
	for _, conn := range conns {
		r.log.WithFields(logrus.Fields{
			"connection":  conn.ID,
			"owner":       conn.OwnerID,
			"institution": conn.InstitutionName,
		}).Warnf("Bank feed in error state: %s", conn.ErrorMessage)
		if _, ok := byOwner[conn.OwnerID]; !ok {
			owners = append(owners, conn.OwnerID)
		}
		byOwner[conn.OwnerID] = append(byOwner[conn.OwnerID], conn)
	}
	result.Owners = len(owners)

	if r.notifier == nil {
		return result, nil
	}
	for _, ownerID := range owners {
		user, err := r.repo.GetUser(ctx, ownerID)
		if err != nil {
			r.log.Errorf("Failed to load owner %d for error report: %v", ownerID, err)
			continue
		}
		if err := r.notifier.SendFeedErrorReport(user.Email, user.Username, byOwner[ownerID]); err != nil {
			r.log.Errorf("Failed to send error report to owner %d: %v", ownerID, err)
			continue
		}
		result.Notified++
	}
	return result, nil
}
