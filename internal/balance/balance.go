// Package balance derives cached account balances from the ledger.
package balance

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Store is the slice of the repository the engine needs. Callers pass a
// transaction-bound store so recomputation commits with the triggering write.
type Store interface {
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	LedgerSums(ctx context.Context, accountID int64) (models.LedgerSums, error)
	SetBalances(ctx context.Context, id int64, balance, reconciled decimal.Decimal) error
	LockAccounts(ctx context.Context, ids []int64) error
}

// Balances are the two cached values of one account.
type Balances struct {
	Balance    decimal.Decimal
	Reconciled decimal.Decimal
}

// Compute applies the sign convention of t to the debit and credit totals.
func Compute(t models.AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// FromSums computes both balances for an account of type t.
func FromSums(t models.AccountType, s models.LedgerSums) Balances {
	return Balances{
		Balance:    Compute(t, s.Debit, s.Credit),
		Reconciled: Compute(t, s.ReconciledDebit, s.ReconciledCredit),
	}
}

// Engine recomputes cached balances.
type Engine struct {
	log *logrus.Logger
}

// NewEngine creates a balance engine
func NewEngine(log *logrus.Logger) *Engine {
	return &Engine{log: log}
}

// Recompute computes both balances of one account from the ledger without
// persisting them.
func (e *Engine) Recompute(ctx context.Context, s Store, accountID int64) (*models.Account, Balances, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, Balances{}, err
	}
	sums, err := s.LedgerSums(ctx, accountID)
	if err != nil {
		return nil, Balances{}, err
	}
	return account, FromSums(account.Type, sums), nil
}

// Persist recomputes one account and writes both cached fields directly.
func (e *Engine) Persist(ctx context.Context, s Store, accountID int64) (Balances, error) {
	_, b, err := e.Recompute(ctx, s, accountID)
	if err != nil {
		return Balances{}, err
	}
	if err := s.SetBalances(ctx, accountID, b.Balance, b.Reconciled); err != nil {
		return Balances{}, err
	}
	return b, nil
}

// Apply recomputes every account touched by changes, each exactly once.
func (e *Engine) Apply(ctx context.Context, s Store, changes ...Change) error {
	ids := Affected(changes...)
	if len(ids) == 0 {
		return nil
	}
	if err := s.LockAccounts(ctx, ids); err != nil {
		return err
	}
	for _, id := range ids {
		b, err := e.Persist(ctx, s, id)
		if err != nil {
			return fmt.Errorf("failed to recompute account %d: %w", id, err)
		}
		e.log.WithFields(logrus.Fields{
			"account":    id,
			"balance":    b.Balance.StringFixed(2),
			"reconciled": b.Reconciled.StringFixed(2),
		}).Debug("Balance recomputed")
	}
	return nil
}

// Recalculation reports one account's balance before and after a full rebuild.
type Recalculation struct {
	AccountID int64
	Name      string
	Old       decimal.NullDecimal
	New       decimal.Decimal
}

// Changed reports whether the stored balance differed from the recomputed one.
func (r Recalculation) Changed() bool {
	return !r.Old.Valid || !r.Old.Decimal.Equal(r.New)
}

// Lister enumerates accounts for a full rebuild.
type Lister interface {
	ListAllAccounts(ctx context.Context) ([]models.Account, error)
}

// RecomputeAll rebuilds the cached balances of every account. Each account
// is persisted by persist, which lets the caller choose transaction scope.
// It is safe to run repeatedly.
func (e *Engine) RecomputeAll(ctx context.Context, l Lister, persist func(ctx context.Context, accountID int64) (Balances, error), progress func(i, total int, r Recalculation)) ([]Recalculation, error) {
	accounts, err := l.ListAllAccounts(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]Recalculation, 0, len(accounts))
	for i, a := range accounts {
		b, err := persist(ctx, a.ID)
		if errors.Is(err, models.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return results, fmt.Errorf("failed to recompute account %d: %w", a.ID, err)
		}
		r := Recalculation{AccountID: a.ID, Name: a.Name, Old: a.Balance, New: b.Balance}
		results = append(results, r)
		if progress != nil {
			progress(i+1, len(accounts), r)
		}
	}
	e.log.Infof("Recalculated balances for %d accounts", len(results))
	return results, nil
}

// Affected returns the distinct account ids named by changes, sorted.
func Affected(changes ...Change) []int64 {
	seen := make(map[int64]struct{})
	for _, c := range changes {
		for _, id := range c.Accounts {
			if id != 0 {
				seen[id] = struct{}{}
			}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
