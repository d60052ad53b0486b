// Package tally provides an embeddable double-entry ledger engine for Go
// applications.
//
// Tally is designed as a library, not a service. Import it directly into
// your Go application and give it a store. It provides:
//
//   - Strict double-entry posting: every transaction balances to zero
//   - Append-only history: posted records are never modified or deleted
//   - Balances computed from entries, never stored or cached
//   - As-of balance queries over the effective-time axis
//   - Corrections by reversal transactions, linked to what they offset
//   - Pluggable storage (memory, SQLite, Postgres, MongoDB)
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/tally"
//	    "github.com/xraph/tally/store/memory"
//	)
//
//	// Create ledger
//	l := tally.New(memory.New())
//
//	// Start the ledger (runs migrations, initializes plugins)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// The sqlite, postgres, and mongo stores wrap a grove database instead:
//
//	store := postgres.New(db) // db is a *grove.DB
//
// # Core Concepts
//
// Accounts are named buckets of value with an owner, a type, and a
// currency:
//
//	cash := &account.Account{
//	    Owner:    account.OwnerRef{Kind: "org", ID: "acme"},
//	    Name:     "Operating Cash",
//	    Type:     account.TypeAsset,
//	    Currency: "USD",
//	}
//	err := l.CreateAccount(ctx, cash)
//
// Transactions move value between accounts. Debits must equal credits:
//
//	tx, err := l.RecordTransaction(ctx, transaction.Draft{
//	    Description: "Invoice #42 paid",
//	    Lines: []transaction.Line{
//	        {AccountID: cash.ID, Amount: types.MustAmount("150.00"), Side: transaction.Debit},
//	        {AccountID: revenue.ID, Amount: types.MustAmount("150.00"), Side: transaction.Credit},
//	    },
//	})
//
// Balances are always derived from posted entries:
//
//	balance, err := l.Balance(ctx, cash.ID)
//	opening, err := l.BalanceAsOf(ctx, cash.ID, startOfMonth)
//
// Mistakes are corrected by reversal, never by editing:
//
//	rev, err := l.ReverseEntry(ctx, entryID, "duplicate payment", time.Time{})
//
// # Amounts
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Amount type carries a fixed four decimal places,
// so 1.5 USD is 15000 ticks. Parsing and formatting go through
// shopspring/decimal at the boundary only.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	acct_01h2xcejqtf2nbrexx3vqjhp41  // Account ID
//	txn_01h2xcejqtf2nbrexx3vqjhp41   // Transaction ID
//	ent_01h455vb4pex5vsknk084sn02q   // Entry ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package tally
