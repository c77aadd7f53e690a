package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/ledger-service/internal/balance"
	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultFirstAccountNumber is handed out when an owner has no accounts yet.
	DefaultFirstAccountNumber = 1000

	expensePlaceholderBase = 80000
	incomePlaceholderBase  = 90000
)

// NewAccount is the input for CreateAccount. A zero Num picks the next
// available number.
type NewAccount struct {
	Name      string `json:"name"`
	Num       int    `json:"num"`
	Type      string `json:"type"`
	SubTypeID *int64 `json:"subType"`
	Icon      string `json:"icon"`
}

// AccountPatch holds the editable fields of an account.
type AccountPatch struct {
	Name         *string `json:"name"`
	SubTypeID    *int64  `json:"subType"`
	ClearSubType bool    `json:"clearSubType"`
	Icon         *string `json:"icon"`
}

// CreateAccount adds an account to the owner's chart of accounts
func (s *Service) CreateAccount(ctx context.Context, ownerID int64, in NewAccount) (*models.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewFieldError("name", "is required")
	}
	accountType, err := models.ParseAccountType(in.Type)
	if err != nil {
		return nil, err
	}
	if in.Num < 0 {
		return nil, models.NewFieldError("num", "must be positive")
	}
	icon := in.Icon
	if icon == "" {
		icon = models.DefaultAccountIcon
	}

	account := &models.Account{
		OwnerID:   ownerID,
		Name:      name,
		Num:       in.Num,
		Type:      accountType,
		SubTypeID: in.SubTypeID,
		Icon:      icon,
	}
	err = s.WithTx(ctx, func(tx *Service) error {
		if err := tx.checkSubType(ctx, accountType, in.SubTypeID); err != nil {
			return err
		}
		if account.Num == 0 {
			num, err := tx.NextAvailableNumber(ctx, ownerID, 0)
			if err != nil {
				return err
			}
			account.Num = num
		} else {
			taken, err := tx.repo.AccountNumberTaken(ctx, ownerID, account.Num)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: %d", models.ErrDuplicateAccountNumber, account.Num)
			}
		}
		return tx.repo.CreateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"owner": ownerID, "account": account.ID, "num": account.Num}).
		Infof("Account created: %s", account.Name)
	return account, nil
}

func (s *Service) checkSubType(ctx context.Context, t models.AccountType, id *int64) error {
	if id == nil {
		return nil
	}
	st, err := s.repo.GetSubAccountType(ctx, *id)
	if err != nil {
		return err
	}
	if st.AccountType != t {
		return models.NewFieldError("subType", "%q belongs to %s, not %s", st.Name, st.AccountType, t)
	}
	return nil
}

// GetAccount returns one of the owner's accounts
func (s *Service) GetAccount(ctx context.Context, ownerID, id int64) (*models.Account, error) {
	return s.ownedAccount(ctx, ownerID, id)
}

// ListAccounts returns the owner's chart of accounts
func (s *Service) ListAccounts(ctx context.Context, ownerID int64) ([]models.Account, error) {
	return s.repo.ListAccounts(ctx, ownerID)
}

// FindByName matches an account name case-insensitively.
func (s *Service) FindByName(ctx context.Context, ownerID int64, name string) (*models.Account, error) {
	return s.repo.FindAccountByName(ctx, ownerID, strings.TrimSpace(name))
}

// NextAvailableNumber suggests max(owner's numbers)+1, or DefaultFirstAccountNumber
// when the owner has none. A positive floor raises the suggestion to at least
// that value. Placeholder accounts in the reserved ranges are ignored, and a
// number already in use is skipped.
func (s *Service) NextAvailableNumber(ctx context.Context, ownerID int64, floor int) (int, error) {
	highest, ok, err := s.repo.MaxAccountNumber(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	next := DefaultFirstAccountNumber
	if ok {
		next = highest + 1
	}
	if floor > next {
		next = floor
	}
	return s.repo.FirstFreeNumber(ctx, ownerID, next)
}

// UpdateAccount edits name, sub type and icon. Classification and number
// stay as created.
func (s *Service) UpdateAccount(ctx context.Context, ownerID, id int64, patch AccountPatch) (*models.Account, error) {
	var account *models.Account
	err := s.WithTx(ctx, func(tx *Service) error {
		a, err := tx.ownedAccount(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return models.NewFieldError("name", "is required")
			}
			a.Name = name
		}
		if patch.ClearSubType {
			a.SubTypeID = nil
		} else if patch.SubTypeID != nil {
			if err := tx.checkSubType(ctx, a.Type, patch.SubTypeID); err != nil {
				return err
			}
			a.SubTypeID = patch.SubTypeID
		}
		if patch.Icon != nil {
			a.Icon = *patch.Icon
		}
		if err := tx.repo.UpdateAccount(ctx, a); err != nil {
			return err
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount removes an account no transaction references
func (s *Service) DeleteAccount(ctx context.Context, ownerID, id int64) error {
	err := s.WithTx(ctx, func(tx *Service) error {
		if _, err := tx.ownedAccount(ctx, ownerID, id); err != nil {
			return err
		}
		n, err := tx.repo.CountAccountTransactions(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d transactions", models.ErrAccountInUse, n)
		}
		return tx.repo.DeleteAccount(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"owner": ownerID, "account": id}).Info("Account deleted")
	return nil
}

// RecomputeAccount rebuilds the cached balances of one account.
func (s *Service) RecomputeAccount(ctx context.Context, ownerID, id int64) (*models.Account, error) {
	var account *models.Account
	err := s.WithTx(ctx, func(tx *Service) error {
		if _, err := tx.ownedAccount(ctx, ownerID, id); err != nil {
			return err
		}
		if err := tx.engine.Apply(ctx, tx.repo, balance.Change{Accounts: []int64{id}}); err != nil {
			return err
		}
		a, err := tx.repo.GetAccount(ctx, id)
		account = a
		return err
	})
	return account, err
}

// CategoryAccount resolves the account on the other side of an imported
// transaction. A name is matched case-insensitively and created as Income
// (positive) or Expense otherwise. An empty name yields the owner's
// placeholder account for that direction.
func (s *Service) CategoryAccount(ctx context.Context, ownerID int64, name string, positive bool) (*models.Account, error) {
	accountType := models.AccountTypeExpense
	if positive {
		accountType = models.AccountTypeIncome
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return s.placeholderAccount(ctx, ownerID, accountType)
	}

	a, err := s.repo.FindAccountByName(ctx, ownerID, name)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, models.ErrAccountNotFound) {
		return nil, err
	}

	num, err := s.NextAvailableNumber(ctx, ownerID, 0)
	if err != nil {
		return nil, err
	}
	a = &models.Account{
		OwnerID: ownerID,
		Name:    name,
		Num:     num,
		Type:    accountType,
		Icon:    models.DefaultAccountIcon,
	}
	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"owner": ownerID, "account": a.ID, "num": a.Num}).
		Infof("Category account created: %s (%s)", a.Name, a.Type)
	return a, nil
}

func (s *Service) placeholderAccount(ctx context.Context, ownerID int64, t models.AccountType) (*models.Account, error) {
	a, err := s.repo.FindSystemAccount(ctx, ownerID, t)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, models.ErrAccountNotFound) {
		return nil, err
	}

	base := expensePlaceholderBase
	if t == models.AccountTypeIncome {
		base = incomePlaceholderBase
	}
	num, err := s.repo.FirstFreeNumber(ctx, ownerID, base)
	if err != nil {
		return nil, err
	}
	a = &models.Account{
		OwnerID: ownerID,
		Name:    "Uncategorized " + string(t),
		Num:     num,
		Type:    t,
		Icon:    models.DefaultAccountIcon,
		System:  true,
	}
	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"owner": ownerID, "account": a.ID, "num": a.Num}).
		Info("Placeholder account created")
	return a, nil
}

// ListSubAccountTypes returns all sub types, seeding the defaults into an
// empty table first.
func (s *Service) ListSubAccountTypes(ctx context.Context) ([]models.SubAccountType, error) {
	types, err := s.repo.ListSubAccountTypes(ctx)
	if err != nil {
		return nil, err
	}
	if len(types) > 0 {
		return types, nil
	}
	if err := s.SeedDefaultSubTypes(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListSubAccountTypes(ctx)
}

// SeedDefaultSubTypes inserts the default sub types when none exist.
func (s *Service) SeedDefaultSubTypes(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *Service) error {
		existing, err := tx.repo.ListSubAccountTypes(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		for _, st := range models.DefaultSubAccountTypes {
			st := st
			if err := tx.repo.CreateSubAccountType(ctx, &st); err != nil {
				return err
			}
		}
		tx.log.Infof("Seeded %d default sub account types", len(models.DefaultSubAccountTypes))
		return nil
	})
}

// CreateSubAccountType adds a sub type under an account type.
func (s *Service) CreateSubAccountType(ctx context.Context, name, accountType string) (*models.SubAccountType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewFieldError("subType", "is required")
	}
	t, err := models.ParseAccountType(accountType)
	if err != nil {
		return nil, err
	}
	st := &models.SubAccountType{Name: name, AccountType: t}
	if err := s.repo.CreateSubAccountType(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
