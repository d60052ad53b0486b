package store

import (
	"context"
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

// Store is the unified storage interface for all Tally entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Mutating methods on transactions and entries apply to drafts only; every
// driver must refuse them with tally.ErrImmutableRecord once the owning
// transaction is posted. Balance and entry reads consider posted
// transactions only, so a partially written draft is never visible.
type Store interface {
	// Account methods
	CreateAccount(ctx context.Context, a *account.Account) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	FindAccounts(ctx context.Context, filter account.Filter) ([]*account.Account, error)
	UpdateAccountDisplay(ctx context.Context, a *account.Account) error
	SetAccountActive(ctx context.Context, accountID id.AccountID, active bool) error

	// Transaction methods. CreateTransaction persists the transaction and
	// its entries together; if tx.PostedAt is set the write is the atomic
	// commit point and the records are immutable from then on.
	CreateTransaction(ctx context.Context, tx *transaction.Transaction, entries []*transaction.Entry) error
	GetTransaction(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error
	DeleteTransaction(ctx context.Context, txID id.TransactionID) error
	PostTransaction(ctx context.Context, txID id.TransactionID, postedAt time.Time) error
	GetTransactionByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error)

	// Entry methods
	AppendEntries(ctx context.Context, txID id.TransactionID, entries []*transaction.Entry) error
	GetEntry(ctx context.Context, entryID id.EntryID) (*transaction.Entry, error)
	GetTransactionEntries(ctx context.Context, txID id.TransactionID) ([]*transaction.Entry, error)
	UpdateEntry(ctx context.Context, e *transaction.Entry) error
	DeleteEntry(ctx context.Context, entryID id.EntryID) error
	ListEntries(ctx context.Context, opts transaction.ListOpts) ([]*transaction.Entry, error)

	// SumEntries aggregates posted entry amounts for one account, split by
	// side. A zero asOf means no upper bound; otherwise only entries with
	// an effective time at or before asOf are counted.
	SumEntries(ctx context.Context, accountID id.AccountID, asOf time.Time) (debits, credits types.Amount, err error)

	// FindReversal returns the entry whose Reverses field points at
	// entryID, or tally.ErrNotFound when the entry is unreversed.
	FindReversal(ctx context.Context, entryID id.EntryID) (*transaction.Entry, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
