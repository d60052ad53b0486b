package tally_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

func TestReverseEntry(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	cash := newAccount(t, l, account.TypeAsset, "USD")
	revenue := newAccount(t, l, account.TypeRevenue, "USD")

	orig, err := l.RecordTransaction(ctx, simpleDraft(cash, revenue, "75.00"))
	if err != nil {
		t.Fatalf("RecordTransaction() = %v", err)
	}

	origEntries, err := l.GetTransactionEntries(ctx, orig.ID)
	if err != nil {
		t.Fatalf("GetTransactionEntries() = %v", err)
	}

	rev, err := l.ReverseEntry(ctx, origEntries[0].ID, "duplicate charge", time.Time{})
	if err != nil {
		t.Fatalf("ReverseEntry() = %v", err)
	}
	if !rev.IsPosted() {
		t.Fatal("reversal must post immediately")
	}
	if rev.Metadata[transaction.MetaReversalReason] != "duplicate charge" {
		t.Fatalf("reason = %q", rev.Metadata[transaction.MetaReversalReason])
	}
	if rev.Metadata[transaction.MetaReversesTransaction] != orig.ID.String() {
		t.Fatalf("reverses = %q, want %s", rev.Metadata[transaction.MetaReversesTransaction], orig.ID)
	}

	// Every entry of the original comes back mirrored on the opposite side.
	revEntries, err := l.GetTransactionEntries(ctx, rev.ID)
	if err != nil {
		t.Fatalf("GetTransactionEntries() = %v", err)
	}
	if len(revEntries) != len(origEntries) {
		t.Fatalf("reversal entries = %d, want %d", len(revEntries), len(origEntries))
	}
	bySource := make(map[id.EntryID]*transaction.Entry, len(revEntries))
	for _, e := range revEntries {
		if !e.IsReversal() {
			t.Fatalf("entry %s has no reverses link", e.ID)
		}
		bySource[e.Reverses] = e
	}
	for _, oe := range origEntries {
		mirror, ok := bySource[oe.ID]
		if !ok {
			t.Fatalf("no mirror for entry %s", oe.ID)
		}
		if mirror.Side != oe.Side.Opposite() {
			t.Fatalf("mirror side = %s, want %s", mirror.Side, oe.Side.Opposite())
		}
		if mirror.Amount != oe.Amount {
			t.Fatalf("mirror amount = %s, want %s", mirror.Amount, oe.Amount)
		}
		if mirror.AccountID != oe.AccountID {
			t.Fatalf("mirror account = %s, want %s", mirror.AccountID, oe.AccountID)
		}
	}

	// Original records are untouched; the pair nets to zero.
	kept, err := l.GetTransaction(ctx, orig.ID)
	if err != nil {
		t.Fatalf("GetTransaction() = %v", err)
	}
	if !kept.IsPosted() {
		t.Fatal("original must stay posted")
	}
	for _, acct := range []*account.Account{cash, revenue} {
		bal, err := l.Balance(ctx, acct.ID)
		if err != nil {
			t.Fatalf("Balance() = %v", err)
		}
		if !bal.IsZero() {
			t.Fatalf("%s balance after reversal = %s, want 0", acct.Type, bal)
		}
	}
}

func TestReverseEntryEffectiveAt(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	cash := newAccount(t, l, account.TypeAsset, "USD")
	revenue := newAccount(t, l, account.TypeRevenue, "USD")

	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	may := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	d := simpleDraft(cash, revenue, "60.00")
	d.EffectiveAt = jan
	orig, err := l.RecordTransaction(ctx, d)
	if err != nil {
		t.Fatalf("RecordTransaction() = %v", err)
	}

	entries, err := l.GetTransactionEntries(ctx, orig.ID)
	if err != nil {
		t.Fatalf("GetTransactionEntries() = %v", err)
	}

	// Reversing at a later effective date keeps the original period intact.
	if _, err := l.ReverseEntry(ctx, entries[0].ID, "period correction", may); err != nil {
		t.Fatalf("ReverseEntry() = %v", err)
	}

	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	bal, err := l.BalanceAsOf(ctx, cash.ID, feb)
	if err != nil {
		t.Fatalf("BalanceAsOf() = %v", err)
	}
	if bal != types.MustAmount("60.00") {
		t.Fatalf("february balance = %s, want 60.00", bal)
	}

	bal, err = l.Balance(ctx, cash.ID)
	if err != nil {
		t.Fatalf("Balance() = %v", err)
	}
	if !bal.IsZero() {
		t.Fatalf("current balance = %s, want 0", bal)
	}
}

func TestReverseEntryGuards(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	cash := newAccount(t, l, account.TypeAsset, "USD")
	revenue := newAccount(t, l, account.TypeRevenue, "USD")

	t.Run("unknown entry", func(t *testing.T) {
		_, err := l.ReverseEntry(ctx, id.NewEntryID(), "oops", time.Time{})
		if !errors.Is(err, tally.ErrEntryNotFound) {
			t.Fatalf("ReverseEntry() = %v, want %v", err, tally.ErrEntryNotFound)
		}
	})

	t.Run("unposted transaction", func(t *testing.T) {
		draft, err := l.CreateDraft(ctx, simpleDraft(cash, revenue, "10.00"))
		if err != nil {
			t.Fatalf("CreateDraft() = %v", err)
		}
		entries, err := l.GetTransactionEntries(ctx, draft.ID)
		if err != nil {
			t.Fatalf("GetTransactionEntries() = %v", err)
		}
		if _, err := l.ReverseEntry(ctx, entries[0].ID, "oops", time.Time{}); !errors.Is(err, tally.ErrCannotReverseUnposted) {
			t.Fatalf("ReverseEntry() = %v, want %v", err, tally.ErrCannotReverseUnposted)
		}
	})

	t.Run("double reversal", func(t *testing.T) {
		tx, err := l.RecordTransaction(ctx, simpleDraft(cash, revenue, "20.00"))
		if err != nil {
			t.Fatalf("RecordTransaction() = %v", err)
		}
		entries, err := l.GetTransactionEntries(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransactionEntries() = %v", err)
		}
		if _, err := l.ReverseEntry(ctx, entries[0].ID, "first", time.Time{}); err != nil {
			t.Fatalf("ReverseEntry() = %v", err)
		}
		if _, err := l.ReverseEntry(ctx, entries[0].ID, "second", time.Time{}); !errors.Is(err, tally.ErrAlreadyReversed) {
			t.Fatalf("second ReverseEntry() = %v, want %v", err, tally.ErrAlreadyReversed)
		}
	})

	t.Run("reversal of a reversal", func(t *testing.T) {
		tx, err := l.RecordTransaction(ctx, simpleDraft(cash, revenue, "35.00"))
		if err != nil {
			t.Fatalf("RecordTransaction() = %v", err)
		}
		entries, err := l.GetTransactionEntries(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransactionEntries() = %v", err)
		}
		rev, err := l.ReverseEntry(ctx, entries[0].ID, "mistake", time.Time{})
		if err != nil {
			t.Fatalf("ReverseEntry() = %v", err)
		}

		// A reversal is an ordinary posted transaction and can itself be
		// reversed, restoring the original effect.
		revEntries, err := l.GetTransactionEntries(ctx, rev.ID)
		if err != nil {
			t.Fatalf("GetTransactionEntries() = %v", err)
		}
		if _, err := l.ReverseEntry(ctx, revEntries[0].ID, "the reversal was the mistake", time.Time{}); err != nil {
			t.Fatalf("ReverseEntry() of reversal = %v", err)
		}

		bal, err := l.Balance(ctx, cash.ID)
		if err != nil {
			t.Fatalf("Balance() = %v", err)
		}
		if bal != types.MustAmount("35.00") {
			t.Fatalf("balance = %s, want 35.00", bal)
		}
	})
}
