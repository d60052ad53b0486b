package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places carried by every Amount.
// Four places cover all ISO-4217 currency exponents with room for
// interest-style fractional units.
const AmountScale = 4

// amountUnit is 10^AmountScale, the number of Amount ticks per major unit.
const amountUnit = 10_000

// Amount is a fixed-point monetary quantity at scale 4: one Amount tick is
// one ten-thousandth of a major currency unit. All arithmetic is
// integer-only; no floating point anywhere.
//
// Amount carries no currency; an entry's currency is the currency of the
// account it moves, and the posting path rejects mixed-currency
// transactions before anything is persisted.
//
// Examples:
//   - MustAmount("100.00")  = 1_000_000 ticks
//   - MustAmount("0.10")    = 1_000 ticks
//   - MustAmount("0.0001")  = 1 tick
type Amount int64

// ZeroAmount is the zero monetary quantity.
const ZeroAmount Amount = 0

// AmountFromMajor returns the Amount for a whole number of major units.
func AmountFromMajor(units int64) Amount {
	return Amount(units * amountUnit)
}

// AmountFromTicks returns the Amount for a raw tick count (scale-4 minor
// units). Use when rehydrating from storage.
func AmountFromTicks(ticks int64) Amount {
	return Amount(ticks)
}

// AmountFromDecimal converts an arbitrary-precision decimal to an Amount.
// Values with more than AmountScale fractional digits are rejected rather
// than silently rounded.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	scaled := d.Shift(AmountScale)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("types: amount %s exceeds scale %d", d.String(), AmountScale)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("types: amount %s overflows", d.String())
	}

	return Amount(scaled.IntPart()), nil
}

// ParseAmount parses a decimal string ("100.00", "0.0001", "-3.5") into an
// Amount.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("types: parse amount %q: %w", s, err)
	}

	return AmountFromDecimal(d)
}

// MustAmount is like ParseAmount but panics on error. Use for literals.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}

	return a
}

// SumAmounts returns the sum of the given amounts.
func SumAmounts(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total += a
	}

	return total
}

// Arithmetic operations

// Add returns a + other.
func (a Amount) Add(other Amount) Amount { return a + other }

// Sub returns a - other.
func (a Amount) Sub(other Amount) Amount { return a - other }

// Neg returns -a.
func (a Amount) Neg() Amount { return -a }

// Abs returns the absolute value.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}

	return a
}

// Comparison methods

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative reports whether the amount is less than zero.
func (a Amount) IsNegative() bool { return a < 0 }

// Cmp compares a to other: -1 if a < other, 0 if equal, +1 if a > other.
func (a Amount) Cmp(other Amount) int {
	switch {
	case a < other:
		return -1
	case a > other:
		return 1
	default:
		return 0
	}
}

// Conversion and formatting

// Ticks returns the raw scale-4 tick count for storage.
func (a Amount) Ticks() int64 { return int64(a) }

// Decimal returns the arbitrary-precision decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -AmountScale)
}

// String returns the decimal string with trailing zeros trimmed
// ("100", "0.1", "-3.5").
func (a Amount) String() string {
	return a.Decimal().String()
}

// Fixed returns the decimal string with exactly AmountScale fractional
// digits ("100.0000"), the canonical storage form.
func (a Amount) Fixed() string {
	return a.Decimal().StringFixed(AmountScale)
}

// MarshalJSON encodes the amount as a decimal string so that JSON consumers
// never see a binary float.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Fixed())
}

// UnmarshalJSON accepts either a decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Bare number: parse its literal text to avoid float rounding.
		s = string(data)
	}

	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

// Value implements driver.Valuer: amounts are stored as scale-4 integers.
func (a Amount) Value() (driver.Value, error) {
	return int64(a), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*a = Amount(v)

		return nil
	case []byte:
		parsed, err := ParseAmount(string(v))
		if err != nil {
			return err
		}

		*a = parsed

		return nil
	case string:
		parsed, err := ParseAmount(v)
		if err != nil {
			return err
		}

		*a = parsed

		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Amount", src)
	}
}
