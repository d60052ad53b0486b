// Package plugin provides an extensible plugin system for Tally.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated is called when a new account is created.
type OnAccountCreated interface {
	Plugin
	OnAccountCreated(ctx context.Context, account interface{}) error
}

// OnAccountDeactivated is called when an account is deactivated.
type OnAccountDeactivated interface {
	Plugin
	OnAccountDeactivated(ctx context.Context, accountID string) error
}

// OnAccountReactivated is called when an inactive account is reactivated.
type OnAccountReactivated interface {
	Plugin
	OnAccountReactivated(ctx context.Context, accountID string) error
}

// ──────────────────────────────────────────────────
// Transaction lifecycle hooks
// ──────────────────────────────────────────────────

// OnTransactionPosted is called when a transaction is posted to the ledger.
type OnTransactionPosted interface {
	Plugin
	OnTransactionPosted(ctx context.Context, tx interface{}, entries []interface{}) error
}

// OnTransactionRejected is called when a posting attempt fails validation.
type OnTransactionRejected interface {
	Plugin
	OnTransactionRejected(ctx context.Context, description string, reason error) error
}

// OnDraftDiscarded is called when an unposted draft is deleted.
type OnDraftDiscarded interface {
	Plugin
	OnDraftDiscarded(ctx context.Context, transactionID string) error
}

// ──────────────────────────────────────────────────
// Reversal hooks
// ──────────────────────────────────────────────────

// OnEntryReversed is called when an entry is reversed. The reversal
// argument is the newly posted reversal transaction.
type OnEntryReversed interface {
	Plugin
	OnEntryReversed(ctx context.Context, entryID string, reversal interface{}) error
}

// ──────────────────────────────────────────────────
// Query hooks
// ──────────────────────────────────────────────────

// OnBalanceQueried is called after a balance aggregation completes.
type OnBalanceQueried interface {
	Plugin
	OnBalanceQueried(ctx context.Context, accountID string, balance interface{}) error
}
