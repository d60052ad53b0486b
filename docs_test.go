package tally_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize the ledger
		l := tally.New(store,
			tally.WithLogger(slog.Default()),
		)

		// Start the engine
		ctx := context.Background()
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer l.Stop()

		// Create accounts
		cash := &account.Account{
			Owner:    account.OwnerRef{Kind: "org", ID: "acme"},
			Name:     "Operating Cash",
			Type:     account.TypeAsset,
			Currency: "USD",
		}
		if err := l.CreateAccount(ctx, cash); err != nil {
			t.Fatal(err)
		}

		revenue := &account.Account{
			Owner:    account.OwnerRef{Kind: "org", ID: "acme"},
			Name:     "Sales Revenue",
			Type:     account.TypeRevenue,
			Currency: "USD",
		}
		if err := l.CreateAccount(ctx, revenue); err != nil {
			t.Fatal(err)
		}

		// Record a balanced transaction
		tx, err := l.RecordTransaction(ctx, transaction.Draft{
			Description: "Invoice #42 paid",
			Lines: []transaction.Line{
				{AccountID: cash.ID, Amount: types.MustAmount("150.00"), Side: transaction.Debit},
				{AccountID: revenue.ID, Amount: types.MustAmount("150.00"), Side: transaction.Credit},
			},
		})
		if err != nil {
			t.Fatal(err)
		}

		// Query the balance (always computed from entries)
		balance, err := l.Balance(ctx, cash.ID)
		if err != nil {
			t.Fatal(err)
		}
		if balance != types.MustAmount("150.00") {
			t.Fatalf("balance = %s, want 150.00", balance)
		}

		// List the account's history
		entries, err := l.Entries(ctx, cash.ID, transaction.EntryRange{})
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Fatalf("entries = %d, want 1", len(entries))
		}

		// Correct a mistake with a reversal
		rev, err := l.ReverseEntry(ctx, entries[0].ID, "duplicate payment", time.Time{})
		if err != nil {
			t.Fatal(err)
		}

		log.Printf("transaction %s reversed by %s\n", tx.ID, rev.ID)
	})

	// Test Amount type examples
	t.Run("AmountExamples", func(t *testing.T) {
		// Constructors
		_ = types.AmountFromMajor(49)        // 49.0000
		_ = types.MustAmount("99.99")        // 99.9900
		_ = types.AmountFromTicks(15000)     // 1.5000

		// Arithmetic
		a1 := types.MustAmount("1.00")
		a2 := types.MustAmount("2.00")
		_ = a1.Add(a2) // 3.0000
		_ = a2.Sub(a1) // 1.0000
		_ = a1.Neg()   // -1.0000

		// Comparison
		if a1.Cmp(a2) < 0 {
			// a1 is less than a2
		}

		// Formatting
		_ = a1.String() // "1"
		_ = a1.Fixed()  // "1.0000"
	})
}
