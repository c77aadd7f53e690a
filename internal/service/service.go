package service

import (
	"context"
	"fmt"

	"github.com/Dan9191/ledger-service/internal/balance"
	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/Dan9191/ledger-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// Service handles business logic
type Service struct {
	repo   *repository.Repository
	engine *balance.Engine
	log    *logrus.Logger
}

// NewService initializes a new service
func NewService(repo *repository.Repository, engine *balance.Engine, log *logrus.Logger) *Service {
	return &Service{repo: repo, engine: engine, log: log}
}

// Using returns a copy of the service that runs against repo, typically a
// transaction-bound repository obtained from WithTx.
func (s *Service) Using(repo *repository.Repository) *Service {
	return &Service{repo: repo, engine: s.engine, log: s.log}
}

// WithTx runs fn with a service bound to a single database transaction.
// Every operation on tx joins that transaction.
func (s *Service) WithTx(ctx context.Context, fn func(tx *Service) error) error {
	return s.repo.WithTx(ctx, func(r *repository.Repository) error {
		return fn(s.Using(r))
	})
}

// ownedAccount loads an account and hides accounts of other owners.
func (s *Service) ownedAccount(ctx context.Context, ownerID, id int64) (*models.Account, error) {
	a, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.OwnerID != ownerID {
		return nil, models.ErrAccountNotFound
	}
	return a, nil
}

// ledgerAccount loads an account a transaction will reference. Unlike
// ownedAccount a foreign account is reported as an owner mismatch.
func (s *Service) ledgerAccount(ctx context.Context, ownerID, id int64, field string) (*models.Account, error) {
	a, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s account %d: %w", field, id, err)
	}
	if a.OwnerID != ownerID {
		return nil, fmt.Errorf("%s account %d: %w", field, id, models.ErrOwnerMismatch)
	}
	return a, nil
}

func (s *Service) ownedTransaction(ctx context.Context, ownerID, id int64) (*models.Transaction, error) {
	t, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, models.ErrTransactionNotFound
	}
	return t, nil
}
