package types

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ticks int64
	}{
		{"whole", "100", 1_000_000},
		{"two places", "100.00", 1_000_000},
		{"cents", "0.10", 1_000},
		{"full scale", "0.0001", 1},
		{"negative", "-3.5", -35_000},
		{"zero", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if err != nil {
				t.Fatalf("ParseAmount(%q): %v", tt.input, err)
			}
			if got.Ticks() != tt.ticks {
				t.Errorf("ParseAmount(%q): got %d ticks, want %d", tt.input, got.Ticks(), tt.ticks)
			}
		})
	}
}

func TestParseAmountErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not a number", "ten dollars"},
		{"empty", ""},
		{"too many places", "0.00001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAmount(tt.input); err == nil {
				t.Errorf("ParseAmount(%q): expected error, got nil", tt.input)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Amount
		expected Amount
	}{
		{"Add", func() Amount { return MustAmount("1.00").Add(MustAmount("2.00")) }, MustAmount("3.00")},
		{"Sub", func() Amount { return MustAmount("5.00").Sub(MustAmount("2.00")) }, MustAmount("3.00")},
		{"Neg", func() Amount { return MustAmount("1.00").Neg() }, MustAmount("-1.00")},
		{"Abs negative", func() Amount { return MustAmount("-1.00").Abs() }, MustAmount("1.00")},
		{"Abs positive", func() Amount { return MustAmount("1.00").Abs() }, MustAmount("1.00")},
		{"Sum", func() Amount { return SumAmounts(MustAmount("1.00"), MustAmount("2.00"), MustAmount("0.50")) }, MustAmount("3.50")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op(); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

// The classic binary-float trap: 0.10 + 0.20 must be exactly 0.30.
func TestAmountNoFloatDrift(t *testing.T) {
	sum := MustAmount("0.10").Add(MustAmount("0.20"))
	if sum != MustAmount("0.30") {
		t.Fatalf("0.10 + 0.20: got %s, want 0.30", sum)
	}
	if sum.Fixed() != "0.3000" {
		t.Errorf("Fixed: got %q, want %q", sum.Fixed(), "0.3000")
	}
}

func TestAmountComparison(t *testing.T) {
	small := MustAmount("1.00")
	big := MustAmount("2.00")

	if small.Cmp(big) != -1 || big.Cmp(small) != 1 || small.Cmp(small) != 0 {
		t.Error("Cmp ordering broken")
	}
	if !ZeroAmount.IsZero() || ZeroAmount.IsPositive() || ZeroAmount.IsNegative() {
		t.Error("zero classification broken")
	}
	if !small.IsPositive() || !small.Neg().IsNegative() {
		t.Error("sign classification broken")
	}
}

func TestAmountFormatting(t *testing.T) {
	tests := []struct {
		input string
		str   string
		fixed string
	}{
		{"100.00", "100", "100.0000"},
		{"0.10", "0.1", "0.1000"},
		{"-3.5", "-3.5", "-3.5000"},
		{"0", "0", "0.0000"},
	}

	for _, tt := range tests {
		a := MustAmount(tt.input)
		if a.String() != tt.str {
			t.Errorf("String(%q): got %q, want %q", tt.input, a.String(), tt.str)
		}
		if a.Fixed() != tt.fixed {
			t.Errorf("Fixed(%q): got %q, want %q", tt.input, a.Fixed(), tt.fixed)
		}
	}
}

func TestAmountJSONRoundTrip(t *testing.T) {
	original := MustAmount("19.99")

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"19.9900"` {
		t.Errorf("Marshal: got %s, want %q", data, `"19.9900"`)
	}

	var decoded Amount
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip: got %s, want %s", decoded, original)
	}

	// Bare JSON numbers parse from their literal text.
	var fromNumber Amount
	if err := json.Unmarshal([]byte(`0.30`), &fromNumber); err != nil {
		t.Fatalf("Unmarshal number: %v", err)
	}
	if fromNumber != MustAmount("0.30") {
		t.Errorf("Unmarshal number: got %s, want 0.30", fromNumber)
	}
}

func TestAmountScanValue(t *testing.T) {
	original := MustAmount("42.4242")

	v, err := original.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != int64(424242) {
		t.Errorf("Value: got %v, want 424242", v)
	}

	var scanned Amount
	if err := scanned.Scan(int64(424242)); err != nil {
		t.Fatalf("Scan int64: %v", err)
	}
	if scanned != original {
		t.Errorf("Scan int64: got %s, want %s", scanned, original)
	}

	if err := scanned.Scan(3.14); err == nil {
		t.Error("Scan float64: expected error, got nil")
	}
}
