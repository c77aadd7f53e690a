package service

import (
	"context"

	"github.com/Dan9191/ledger-service/internal/balance"
	"github.com/Dan9191/ledger-service/internal/repository"
)

// RecalculateAllBalances rebuilds every account's cached balances from the
// ledger, one database transaction per account. progress, when set, is called
// after each account. Running it twice changes nothing the second time.
func (s *Service) RecalculateAllBalances(ctx context.Context, progress func(i, total int, r balance.Recalculation)) ([]balance.Recalculation, error) {
	persist := func(ctx context.Context, accountID int64) (balance.Balances, error) {
		var b balance.Balances
		err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
			if err := tx.LockAccounts(ctx, []int64{accountID}); err != nil {
				return err
			}
			var err error
			b, err = s.engine.Persist(ctx, tx, accountID)
			return err
		})
		return b, err
	}
	return s.engine.RecomputeAll(ctx, s.repo, persist, progress)
}
