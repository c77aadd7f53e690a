package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, owner_id, name, num, account_type, sub_type_id, in_bank_feed,
	is_system, icon, balance, reconciled_balance, created_at`

func scanAccount(s scanner) (*models.Account, error) {
	var (
		a          models.Account
		subType    sql.NullInt64
		balance    sql.NullInt64
		reconciled int64
	)
	err := s.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Num, &a.Type, &subType, &a.InBankFeed,
		&a.System, &a.Icon, &balance, &reconciled, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if subType.Valid {
		id := subType.Int64
		a.SubTypeID = &id
	}
	if balance.Valid {
		a.Balance.Decimal = models.FromMinor(balance.Int64)
		a.Balance.Valid = true
	}
	a.ReconciledBalance = models.FromMinor(reconciled)
	return &a, nil
}

func (r *Repository) queryAccounts(ctx context.Context, query string, args ...any) ([]models.Account, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// CreateAccount creates a new account in the database.
// The cached balance starts out NULL.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	account.CreatedAt = time.Now().UTC()
	query := `
		INSERT INTO accounts (owner_id, name, num, account_type, sub_type_id, in_bank_feed,
			is_system, icon, reconciled_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
		RETURNING id`
	err := r.queryRow(ctx, query, account.OwnerID, account.Name, account.Num, string(account.Type),
		account.SubTypeID, account.InBankFeed, account.System, account.Icon, account.CreatedAt).
		Scan(&account.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %d", models.ErrDuplicateAccountNumber, account.Num)
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	account.Balance.Valid = false
	return nil
}

// GetAccount retrieves an account by id
func (r *Repository) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	a, err := scanAccount(r.queryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// ListAccounts returns the owner's accounts ordered by number.
func (r *Repository) ListAccounts(ctx context.Context, ownerID int64) ([]models.Account, error) {
	return r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? ORDER BY num`, ownerID)
}

// ListAllAccounts returns every account in the store.
func (r *Repository) ListAllAccounts(ctx context.Context) ([]models.Account, error) {
	return r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY owner_id, num`)
}

// FindAccountByName matches name case-insensitively within one owner.
func (r *Repository) FindAccountByName(ctx context.Context, ownerID int64, name string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE owner_id = ? AND lower(name) = lower(?) ORDER BY is_system, id LIMIT 1`
	a, err := scanAccount(r.queryRow(ctx, query, ownerID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return a, nil
}

// FindSystemAccount returns the owner's placeholder account of the given type.
func (r *Repository) FindSystemAccount(ctx context.Context, ownerID int64, t models.AccountType) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE owner_id = ? AND account_type = ? AND is_system = ? ORDER BY id LIMIT 1`
	a, err := scanAccount(r.queryRow(ctx, query, ownerID, string(t), true))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find system account: %w", err)
	}
	return a, nil
}

// MaxAccountNumber returns the highest non-system account number of the owner.
// ok is false when the owner has none.
func (r *Repository) MaxAccountNumber(ctx context.Context, ownerID int64) (num int, ok bool, err error) {
	var n sql.NullInt64
	query := `SELECT MAX(num) FROM accounts WHERE owner_id = ? AND is_system = ?`
	if err := r.queryRow(ctx, query, ownerID, false).Scan(&n); err != nil {
		return 0, false, fmt.Errorf("failed to read account numbers: %w", err)
	}
	return int(n.Int64), n.Valid, nil
}

// AccountNumberTaken reports whether num is already used by the owner.
func (r *Repository) AccountNumberTaken(ctx context.Context, ownerID int64, num int) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM accounts WHERE owner_id = ? AND num = ?`
	if err := r.queryRow(ctx, query, ownerID, num).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check account number: %w", err)
	}
	return count > 0, nil
}

// FirstFreeNumber returns the lowest number >= base not used by the owner.
func (r *Repository) FirstFreeNumber(ctx context.Context, ownerID int64, base int) (int, error) {
	rows, err := r.query(ctx, `SELECT num FROM accounts WHERE owner_id = ? AND num >= ? ORDER BY num`, ownerID, base)
	if err != nil {
		return 0, fmt.Errorf("failed to read account numbers: %w", err)
	}
	defer rows.Close()

	next := base
	for rows.Next() {
		var num int
		if err := rows.Scan(&num); err != nil {
			return 0, fmt.Errorf("failed to scan account number: %w", err)
		}
		if num > next {
			break
		}
		if num == next {
			next++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate account numbers: %w", err)
	}
	return next, nil
}

// UpdateAccount writes the mutable descriptive fields of an account.
// Balances, type, number and owner are not touched.
func (r *Repository) UpdateAccount(ctx context.Context, account *models.Account) error {
	query := `UPDATE accounts SET name = ?, sub_type_id = ?, icon = ?, in_bank_feed = ? WHERE id = ?`
	res, err := r.exec(ctx, query, account.Name, account.SubTypeID, account.Icon, account.InBankFeed, account.ID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return expectOne(res, models.ErrAccountNotFound)
}

// SetBankFeed flags whether the account is fed by a bank connection.
func (r *Repository) SetBankFeed(ctx context.Context, id int64, enabled bool) error {
	res, err := r.exec(ctx, `UPDATE accounts SET in_bank_feed = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update bank feed flag: %w", err)
	}
	return expectOne(res, models.ErrAccountNotFound)
}

// SetBalances writes both cached balance fields, bypassing any other account logic.
func (r *Repository) SetBalances(ctx context.Context, id int64, balance, reconciled decimal.Decimal) error {
	query := `UPDATE accounts SET balance = ?, reconciled_balance = ? WHERE id = ?`
	res, err := r.exec(ctx, query, models.ToMinor(balance), models.ToMinor(reconciled), id)
	if err != nil {
		return fmt.Errorf("failed to persist balances: %w", err)
	}
	return expectOne(res, models.ErrAccountNotFound)
}

// LockAccounts takes row locks on the given accounts, in the order given.
// Callers pass ids sorted so concurrent writers lock in the same order.
// SQLite serializes writers on its own, so this is a no-op there.
func (r *Repository) LockAccounts(ctx context.Context, ids []int64) error {
	if r.dialect != Postgres || !r.inTx {
		return nil
	}
	for _, id := range ids {
		var got int64
		err := r.queryRow(ctx, `SELECT id FROM accounts WHERE id = ? FOR NO KEY UPDATE`, id).Scan(&got)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", models.ErrAccountNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to lock account %d: %w", id, err)
		}
	}
	return nil
}

// LedgerSums totals every transaction touching the account in one pass.
func (r *Repository) LedgerSums(ctx context.Context, accountID int64) (models.LedgerSums, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN debit_id = ? THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN credit_id = ? THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN debit_id = ? AND status = ? THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN credit_id = ? AND status = ? THEN amount ELSE 0 END), 0)
		FROM transactions
		WHERE debit_id = ? OR credit_id = ?`
	reconciled := string(models.StatusReconciled)
	var debit, credit, recDebit, recCredit int64
	err := r.queryRow(ctx, query,
		accountID, accountID,
		accountID, reconciled,
		accountID, reconciled,
		accountID, accountID,
	).Scan(&debit, &credit, &recDebit, &recCredit)
	if err != nil {
		return models.LedgerSums{}, fmt.Errorf("failed to sum ledger for account %d: %w", accountID, err)
	}
	return models.LedgerSums{
		Debit:            models.FromMinor(debit),
		Credit:           models.FromMinor(credit),
		ReconciledDebit:  models.FromMinor(recDebit),
		ReconciledCredit: models.FromMinor(recCredit),
	}, nil
}

// CountAccountTransactions counts transactions that debit or credit the account.
func (r *Repository) CountAccountTransactions(ctx context.Context, accountID int64) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM transactions WHERE debit_id = ? OR credit_id = ?`
	if err := r.queryRow(ctx, query, accountID, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count account transactions: %w", err)
	}
	return n, nil
}

// DeleteAccount removes an account that no transaction references.
func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if isForeignKeyViolation(err) {
		return models.ErrAccountInUse
	}
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectOne(res, models.ErrAccountNotFound)
}

func expectOne(res sql.Result, notFound error) error {
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
