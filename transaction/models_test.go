package transaction

import (
	"testing"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

func TestSide(t *testing.T) {
	if !Debit.Valid() || !Credit.Valid() {
		t.Fatal("debit and credit must be valid sides")
	}
	if Side("withdrawal").Valid() {
		t.Fatal("arbitrary strings are not valid sides")
	}
	if Debit.Opposite() != Credit || Credit.Opposite() != Debit {
		t.Fatal("Opposite() must flip the side")
	}
}

func TestDraftTotals(t *testing.T) {
	d := Draft{
		Lines: []Line{
			{Amount: types.MustAmount("70.00"), Side: Debit},
			{Amount: types.MustAmount("30.00"), Side: Debit},
			{Amount: types.MustAmount("100.00"), Side: Credit},
		},
	}

	debits, credits := d.Totals()
	if debits != types.MustAmount("100.00") {
		t.Fatalf("debits = %s, want 100.00", debits)
	}
	if credits != types.MustAmount("100.00") {
		t.Fatalf("credits = %s, want 100.00", credits)
	}
	if !d.Balanced() {
		t.Fatal("expected balanced draft")
	}

	d.Lines[0].Amount = types.MustAmount("70.01")
	if d.Balanced() {
		t.Fatal("expected unbalanced draft")
	}
}

func TestEntrySigned(t *testing.T) {
	amount := types.MustAmount("25.00")

	debit := &Entry{Amount: amount, Side: Debit}
	if debit.Signed() != amount {
		t.Fatalf("debit signed = %s, want %s", debit.Signed(), amount)
	}

	credit := &Entry{Amount: amount, Side: Credit}
	if credit.Signed() != amount.Neg() {
		t.Fatalf("credit signed = %s, want %s", credit.Signed(), amount.Neg())
	}
}

func TestEntryIsReversal(t *testing.T) {
	plain := &Entry{ID: id.NewEntryID()}
	if plain.IsReversal() {
		t.Fatal("entry without reverses link is not a reversal")
	}

	mirror := &Entry{ID: id.NewEntryID(), Reverses: plain.ID}
	if !mirror.IsReversal() {
		t.Fatal("entry with reverses link is a reversal")
	}
}

func TestEntryRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rng  EntryRange
		at   time.Time
		want bool
	}{
		{"unbounded", EntryRange{}, from, true},
		{"from is inclusive", EntryRange{From: from, To: to}, from, true},
		{"to is exclusive", EntryRange{From: from, To: to}, to, false},
		{"inside", EntryRange{From: from, To: to}, from.AddDate(0, 0, 15), true},
		{"before from", EntryRange{From: from}, from.Add(-time.Second), false},
		{"only upper bound", EntryRange{To: to}, from, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rng.Contains(tt.at); got != tt.want {
				t.Fatalf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}
