package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Tally store (SQLite).
var Migrations = migrate.NewGroup("tally")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tally_accounts",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_accounts (
    id         TEXT PRIMARY KEY,
    owner_kind TEXT NOT NULL DEFAULT '',
    owner_id   TEXT NOT NULL DEFAULT '',
    number     TEXT NOT NULL DEFAULT '',
    name       TEXT NOT NULL DEFAULT '',
    type       TEXT NOT NULL DEFAULT '',
    currency   TEXT NOT NULL DEFAULT '',
    active     INTEGER NOT NULL DEFAULT 1,
    metadata   TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tally_accounts_owner ON tally_accounts (owner_kind, owner_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tally_accounts_owner_number ON tally_accounts (owner_kind, owner_id, number) WHERE number != '';
CREATE INDEX IF NOT EXISTS idx_tally_accounts_type ON tally_accounts (type);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tally_transactions",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_transactions (
    id           TEXT PRIMARY KEY,
    description  TEXT NOT NULL DEFAULT '',
    effective_at TEXT NOT NULL DEFAULT (datetime('now')),
    recorded_at  TEXT NOT NULL DEFAULT (datetime('now')),
    posted_at    TEXT,
    metadata     TEXT NOT NULL DEFAULT '{}',
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tally_txns_effective ON tally_transactions (effective_at);
CREATE INDEX IF NOT EXISTS idx_tally_txns_posted ON tally_transactions (posted_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_transactions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tally_entries",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_entries (
    id             TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL,
    account_id     TEXT NOT NULL,
    amount_ticks   INTEGER NOT NULL DEFAULT 0,
    side           TEXT NOT NULL DEFAULT '',
    description    TEXT NOT NULL DEFAULT '',
    effective_at   TEXT NOT NULL DEFAULT (datetime('now')),
    recorded_at    TEXT NOT NULL DEFAULT (datetime('now')),
    reverses       TEXT NOT NULL DEFAULT '',
    metadata       TEXT NOT NULL DEFAULT '{}',
    created_at     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tally_entries_txn ON tally_entries (transaction_id);
CREATE INDEX IF NOT EXISTS idx_tally_entries_account_effective ON tally_entries (account_id, effective_at, recorded_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tally_entries_reverses ON tally_entries (reverses) WHERE reverses != '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_entries`)
				return err
			},
		},
	)
}
