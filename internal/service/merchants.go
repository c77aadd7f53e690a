package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Dan9191/ledger-service/internal/models"
)

// FindOrCreateMerchant returns the owner's merchant with this exact name,
// creating it on first use.
func (s *Service) FindOrCreateMerchant(ctx context.Context, ownerID int64, name string) (*models.Merchant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewFieldError("merchant", "name is required")
	}
	m, err := s.repo.FindMerchantByName(ctx, ownerID, name)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, models.ErrMerchantNotFound) {
		return nil, err
	}
	m = &models.Merchant{OwnerID: ownerID, Name: name}
	if err := s.repo.CreateMerchant(ctx, m); err != nil {
		return nil, err
	}
	s.log.Debugf("Merchant created: %s", name)
	return m, nil
}

// ListMerchants returns the owner's merchants
func (s *Service) ListMerchants(ctx context.Context, ownerID int64) ([]models.Merchant, error) {
	return s.repo.ListMerchants(ctx, ownerID)
}

func (s *Service) checkMerchant(ctx context.Context, ownerID, id int64) error {
	m, err := s.repo.GetMerchant(ctx, id)
	if err != nil {
		return err
	}
	if m.OwnerID != ownerID {
		return models.ErrOwnerMismatch
	}
	return nil
}
