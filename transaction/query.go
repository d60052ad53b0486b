package transaction

import (
	"time"

	"github.com/xraph/tally/id"
)

// EntryRange selects entries by effective time. Zero From or To means
// unbounded on that end; From is inclusive, To is exclusive.
type EntryRange struct {
	From time.Time `json:"from,omitzero"`
	To   time.Time `json:"to,omitzero"`
}

// Contains reports whether t falls inside the range.
func (r EntryRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}

	return true
}

// ListOpts narrows and pages an entry listing. Results are always ordered
// by effective time, then recorded time, so pagination is stable.
type ListOpts struct {
	AccountID id.AccountID `json:"account_id,omitempty"`
	Range     EntryRange   `json:"range,omitzero"`
	Limit     int          `json:"limit,omitempty"`
	Offset    int          `json:"offset,omitempty"`
}
