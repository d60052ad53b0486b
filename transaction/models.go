package transaction

import (
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Side is the direction of an entry. Direction is carried here, never by
// the sign of the amount; entry amounts are always positive.
type Side string

const (
	Debit  Side = "debit"
	Credit Side = "credit"
)

// Valid reports whether s is debit or credit.
func (s Side) Valid() bool {
	return s == Debit || s == Credit
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Debit {
		return Credit
	}

	return Debit
}

// Transaction is a named, dated group of balanced entries. A transaction
// with a nil PostedAt is a draft; once PostedAt is set the transaction and
// all its entries are permanently immutable.
type Transaction struct {
	types.Entity
	ID          id.TransactionID  `json:"id"`
	Description string            `json:"description"`
	EffectiveAt time.Time         `json:"effective_at"`
	RecordedAt  time.Time         `json:"recorded_at"`
	PostedAt    *time.Time        `json:"posted_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// IsPosted reports whether the transaction has been posted.
func (t *Transaction) IsPosted() bool {
	return t.PostedAt != nil
}

// Entry is one debit or credit movement against one account, part of
// exactly one transaction. Entries of posted transactions are immutable.
type Entry struct {
	ID            id.EntryID        `json:"id"`
	TransactionID id.TransactionID  `json:"transaction_id"`
	AccountID     id.AccountID      `json:"account_id"`
	Amount        types.Amount      `json:"amount"`
	Side          Side              `json:"side"`
	Description   string            `json:"description,omitempty"`
	EffectiveAt   time.Time         `json:"effective_at"`
	RecordedAt    time.Time         `json:"recorded_at"`
	// Reverses points at the entry this one offsets. Set only on entries
	// created by a reversal; Nil otherwise.
	Reverses id.EntryID        `json:"reverses,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IsReversal reports whether the entry was created to offset another.
func (e *Entry) IsReversal() bool {
	return !e.Reverses.IsNil()
}

// Signed returns the entry's contribution to a raw balance:
// positive for debits, negative for credits.
func (e *Entry) Signed() types.Amount {
	if e.Side == Debit {
		return e.Amount
	}

	return e.Amount.Neg()
}

// Line is one proposed movement inside a Draft.
type Line struct {
	AccountID   id.AccountID      `json:"account_id"`
	Amount      types.Amount      `json:"amount"`
	Side        Side              `json:"side"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Draft is a candidate transaction as supplied by a caller: a description
// plus proposed lines. A zero EffectiveAt means "now".
type Draft struct {
	Description string            `json:"description"`
	EffectiveAt time.Time         `json:"effective_at,omitzero"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Lines       []Line            `json:"lines"`
}

// Totals sums the draft's lines by side.
func (d Draft) Totals() (debits, credits types.Amount) {
	for _, l := range d.Lines {
		if l.Side == Debit {
			debits = debits.Add(l.Amount)
		} else {
			credits = credits.Add(l.Amount)
		}
	}

	return debits, credits
}

// Balanced reports whether the draft's debit and credit totals match.
func (d Draft) Balanced() bool {
	debits, credits := d.Totals()

	return debits == credits
}

// MetaIdempotencyKey is the metadata key callers use to tag a transaction
// for their own dedup loop. The ledger never deduplicates automatically;
// it only makes transactions findable by this key.
const MetaIdempotencyKey = "idempotency_key"

// MetaReversalReason is the metadata key carrying the human-readable
// reason on reversal transactions.
const MetaReversalReason = "reason"

// MetaReversesTransaction is the metadata key linking a reversal
// transaction back to the transaction it mirrors.
const MetaReversesTransaction = "reverses_transaction_id"
