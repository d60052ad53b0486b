package tally

import "github.com/xraph/tally/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors
var (
	AmountFromMajor   = types.AmountFromMajor
	AmountFromTicks   = types.AmountFromTicks
	AmountFromDecimal = types.AmountFromDecimal
	ParseAmount       = types.ParseAmount
	MustAmount        = types.MustAmount
	SumAmounts        = types.SumAmounts
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
