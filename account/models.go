package account

import (
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Type is the closed enumeration of account categories. The category
// determines the sign convention used when presenting a balance; the core
// balance is always debits minus credits regardless of type.
type Type string

const (
	TypeAsset      Type = "asset"
	TypeReceivable Type = "receivable"
	TypeLiability  Type = "liability"
	TypePayable    Type = "payable"
	TypeEquity     Type = "equity"
	TypeRevenue    Type = "revenue"
	TypeExpense    Type = "expense"
)

// Valid reports whether t is a member of the closed enumeration.
func (t Type) Valid() bool {
	switch t {
	case TypeAsset, TypeReceivable, TypeLiability, TypePayable,
		TypeEquity, TypeRevenue, TypeExpense:
		return true
	default:
		return false
	}
}

// Side is the normal balance side of an account type.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// NormalSide returns the side on which accounts of this type normally
// carry their balance. Asset-like accounts are debit-normal; liability,
// equity and revenue accounts are credit-normal.
func (t Type) NormalSide() Side {
	switch t {
	case TypeAsset, TypeReceivable, TypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Normalize flips a raw debits-minus-credits balance into the account
// type's conventional sign, so a revenue account with credit activity
// presents positive. This is presentation only. The ledger itself stores
// and returns raw balances.
func (t Type) Normalize(balance types.Amount) types.Amount {
	if t.NormalSide() == SideCredit {
		return balance.Neg()
	}

	return balance
}

// OwnerRef is an opaque reference to the external entity that owns an
// account: a kind tag plus an identifier in the owner directory's own
// namespace. The ledger never dereferences it.
type OwnerRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// IsZero reports whether the reference is unset.
func (o OwnerRef) IsZero() bool {
	return o.Kind == "" && o.ID == ""
}

func (o OwnerRef) String() string {
	return o.Kind + "/" + o.ID
}

// Account is a named bucket of value with an owner, type, and currency.
// Accounts are created once and never deleted; Active may be flipped by
// convention, and Name/Metadata are the only other mutable fields.
type Account struct {
	types.Entity
	ID       id.AccountID      `json:"id"`
	Owner    OwnerRef          `json:"owner"`
	Number   string            `json:"number,omitempty"`
	Name     string            `json:"name,omitempty"`
	Type     Type              `json:"type"`
	Currency string            `json:"currency"`
	Active   bool              `json:"active"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Label returns a human-readable identifier for logs and statements.
func (a *Account) Label() string {
	name := a.Name
	if name == "" {
		name = string(a.Type)
	}
	if a.Number != "" {
		return a.Number + " - " + name + " (" + a.Currency + ")"
	}

	return name + " (" + a.Currency + ")"
}
