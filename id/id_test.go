package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/tally/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"AccountID", id.NewAccountID, "acct_"},
		{"TransactionID", id.NewTransactionID, "txn_"},
		{"EntryID", id.NewEntryID, "ent_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixAccount)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixAccount {
		t.Errorf("expected prefix %q, got %q", id.PrefixAccount, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		newFn func() id.ID
	}{
		{"account", id.NewAccountID},
		{"transaction", id.NewTransactionID},
		{"entry", id.NewEntryID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := id.Parse(original.String())
			if err != nil {
				t.Fatalf("Parse(%q): %v", original.String(), err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round trip mismatch: got %q, want %q", parsed.String(), original.String())
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"garbage", "not a typeid"},
		{"missing suffix", "acct_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := id.Parse(tt.input); err == nil {
				t.Errorf("Parse(%q): expected error, got nil", tt.input)
			}
		})
	}
}

func TestParseWithPrefix(t *testing.T) {
	acct := id.NewAccountID()

	if _, err := id.ParseAccountID(acct.String()); err != nil {
		t.Fatalf("ParseAccountID: %v", err)
	}

	if _, err := id.ParseTransactionID(acct.String()); err == nil {
		t.Error("ParseTransactionID accepted an account ID")
	}
	if _, err := id.ParseEntryID(acct.String()); err == nil {
		t.Error("ParseEntryID accepted an account ID")
	}
}

func TestNilID(t *testing.T) {
	var zero id.ID

	if !zero.IsNil() {
		t.Error("zero value should be nil")
	}
	if zero.String() != "" {
		t.Errorf("nil ID String: got %q, want empty", zero.String())
	}
	if zero.Prefix() != "" {
		t.Errorf("nil ID Prefix: got %q, want empty", zero.Prefix())
	}

	v, err := zero.Value()
	if err != nil {
		t.Fatalf("nil ID Value: %v", err)
	}
	if v != nil {
		t.Errorf("nil ID Value: got %v, want nil", v)
	}
}

func TestTextMarshaling(t *testing.T) {
	original := id.NewEntryID()

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded id.ID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.String() != original.String() {
		t.Errorf("JSON round trip: got %q, want %q", decoded.String(), original.String())
	}
}

func TestScan(t *testing.T) {
	original := id.NewTransactionID()

	tests := []struct {
		name string
		src  any
		want string
	}{
		{"string", original.String(), original.String()},
		{"bytes", []byte(original.String()), original.String()},
		{"nil", nil, ""},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var scanned id.ID
			if err := scanned.Scan(tt.src); err != nil {
				t.Fatalf("Scan(%v): %v", tt.src, err)
			}
			if scanned.String() != tt.want {
				t.Errorf("Scan(%v): got %q, want %q", tt.src, scanned.String(), tt.want)
			}
		})
	}

	var scanned id.ID
	if err := scanned.Scan(42); err == nil {
		t.Error("Scan(int): expected error, got nil")
	}
}

func TestOrdering(t *testing.T) {
	// TypeIDs are K-sortable: IDs generated later compare greater.
	a := id.NewEntryID().String()
	b := id.NewEntryID().String()
	if !(a < b) && a != b {
		t.Errorf("expected %q <= %q (K-sortable)", a, b)
	}
}
