package account

import (
	"context"

	"github.com/xraph/tally/id"
)

type Store interface {
	Create(ctx context.Context, a *Account) error
	Get(ctx context.Context, accountID id.AccountID) (*Account, error)
	Find(ctx context.Context, f Filter) ([]*Account, error)
	// UpdateDisplay replaces the display metadata (name, number, metadata
	// bag) of an account. Owner, type and currency are immutable.
	UpdateDisplay(ctx context.Context, a *Account) error
	SetActive(ctx context.Context, accountID id.AccountID, active bool) error
}

// Filter narrows Find results. Zero-valued fields match everything.
type Filter struct {
	Owner      OwnerRef
	Type       Type
	Currency   string
	ActiveOnly bool
	Limit      int
	Offset     int
}
