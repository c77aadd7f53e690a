package repository

import (
	"context"
	"fmt"
)

// Amounts and balances are integer cents. A NULL accounts.balance means
// the balance has never been computed.

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    username TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sub_account_types (
    id BIGSERIAL PRIMARY KEY,
    sub_type TEXT NOT NULL,
    account_type TEXT NOT NULL,
    UNIQUE(sub_type, account_type)
);

CREATE TABLE IF NOT EXISTS accounts (
    id BIGSERIAL PRIMARY KEY,
    owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    num INTEGER NOT NULL,
    account_type TEXT NOT NULL,
    sub_type_id BIGINT REFERENCES sub_account_types(id) ON DELETE SET NULL,
    in_bank_feed BOOLEAN NOT NULL DEFAULT FALSE,
    is_system BOOLEAN NOT NULL DEFAULT FALSE,
    icon TEXT NOT NULL DEFAULT '',
    balance BIGINT,
    reconciled_balance BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE(owner_id, num)
);

CREATE INDEX IF NOT EXISTS idx_accounts_owner_name ON accounts(owner_id, lower(name));

CREATE TABLE IF NOT EXISTS merchants (
    id BIGSERIAL PRIMARY KEY,
    owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    UNIQUE(owner_id, name)
);

CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    txn_date DATE NOT NULL,
    amount BIGINT NOT NULL CHECK (amount >= 0),
    debit_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
    credit_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
    merchant_id BIGINT REFERENCES merchants(id) ON DELETE SET NULL,
    notes TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'review' CHECK (status IN ('review', 'categorized', 'reconciled')),
    is_reconciled BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_debit ON transactions(debit_id);
CREATE INDEX IF NOT EXISTS idx_transactions_credit ON transactions(credit_id);
CREATE INDEX IF NOT EXISTS idx_transactions_owner_date ON transactions(owner_id, txn_date);

CREATE TABLE IF NOT EXISTS feed_connections (
    id BIGSERIAL PRIMARY KEY,
    owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    item_id TEXT NOT NULL,
    access_token TEXT NOT NULL,
    external_account_id TEXT NOT NULL DEFAULT '',
    institution_name TEXT NOT NULL DEFAULT '',
    sync_cursor TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    error_message TEXT NOT NULL DEFAULT '',
    last_sync TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    UNIQUE(owner_id, account_id)
);

CREATE TABLE IF NOT EXISTS feed_links (
    id BIGSERIAL PRIMARY KEY,
    connection_id BIGINT NOT NULL REFERENCES feed_connections(id) ON DELETE CASCADE,
    transaction_id BIGINT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    external_id TEXT NOT NULL UNIQUE,
    imported_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_runs (
    id TEXT PRIMARY KEY,
    connection_id BIGINT NOT NULL REFERENCES feed_connections(id) ON DELETE CASCADE,
    started_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    added INTEGER NOT NULL DEFAULT 0,
    modified INTEGER NOT NULL DEFAULT 0,
    removed INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    pages INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    errors TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_connection ON sync_runs(connection_id, started_at);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sub_account_types (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sub_type TEXT NOT NULL,
    account_type TEXT NOT NULL,
    UNIQUE(sub_type, account_type)
);

CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    num INTEGER NOT NULL,
    account_type TEXT NOT NULL,
    sub_type_id INTEGER REFERENCES sub_account_types(id) ON DELETE SET NULL,
    in_bank_feed BOOLEAN NOT NULL DEFAULT 0,
    is_system BOOLEAN NOT NULL DEFAULT 0,
    icon TEXT NOT NULL DEFAULT '',
    balance INTEGER,
    reconciled_balance INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    UNIQUE(owner_id, num)
);

CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner_id);

CREATE TABLE IF NOT EXISTS merchants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    UNIQUE(owner_id, name)
);

CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    txn_date TEXT NOT NULL,            -- YYYY-MM-DD
    amount INTEGER NOT NULL CHECK (amount >= 0),
    debit_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
    credit_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
    merchant_id INTEGER REFERENCES merchants(id) ON DELETE SET NULL,
    notes TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'review' CHECK (status IN ('review', 'categorized', 'reconciled')),
    is_reconciled BOOLEAN NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_debit ON transactions(debit_id);
CREATE INDEX IF NOT EXISTS idx_transactions_credit ON transactions(credit_id);
CREATE INDEX IF NOT EXISTS idx_transactions_owner_date ON transactions(owner_id, txn_date);

CREATE TABLE IF NOT EXISTS feed_connections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    item_id TEXT NOT NULL,
    access_token TEXT NOT NULL,
    external_account_id TEXT NOT NULL DEFAULT '',
    institution_name TEXT NOT NULL DEFAULT '',
    sync_cursor TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    error_message TEXT NOT NULL DEFAULT '',
    last_sync TIMESTAMP,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE(owner_id, account_id)
);

CREATE TABLE IF NOT EXISTS feed_links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    connection_id INTEGER NOT NULL REFERENCES feed_connections(id) ON DELETE CASCADE,
    transaction_id INTEGER NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    external_id TEXT NOT NULL UNIQUE,
    imported_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_runs (
    id TEXT PRIMARY KEY,
    connection_id INTEGER NOT NULL REFERENCES feed_connections(id) ON DELETE CASCADE,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    added INTEGER NOT NULL DEFAULT 0,
    modified INTEGER NOT NULL DEFAULT 0,
    removed INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    pages INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    errors TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_connection ON sync_runs(connection_id, started_at);
`

// InitializeSchema creates all tables if they don't exist.
func (r *Repository) InitializeSchema(ctx context.Context) error {
	schema := postgresSchema
	if r.dialect == SQLite {
		schema = sqliteSchema
	}
	if _, err := r.ex.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
