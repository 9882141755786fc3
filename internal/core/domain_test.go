package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateBefore(t *testing.T) {
	a := NewDate(2025, 1, 5)
	b := NewDate(2025, 1, 6)
	if !a.Before(b) {
		t.Fatalf("expected %s before %s", a, b)
	}
	if b.Before(a) {
		t.Fatalf("did not expect %s before %s", b, a)
	}
	if a.Before(a) {
		t.Fatalf("a date is not before itself")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2025 || d.Month() != 2 || d.Day() != 28 {
		t.Fatalf("parsed wrong date: %s", d)
	}
	for _, bad := range []string{"", "2025-13-01", "05/01/2025", "2025-1-5x"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2025, 7, 9)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-07-09"` {
		t.Fatalf("got %s, want %q", b, "2025-07-09")
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip changed date: %s != %s", back, d)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:     NewDate(2025, 1, 1),
		Category: "Groceries",
		Amount:   decimal.NewFromInt(10),
		Payer:    "alice",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	split := good
	split.SplitWith = "bob"
	if err := split.Validate(); err != nil {
		t.Fatalf("expected ok for split expense, got %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(e *Expense)
		wantErr error
	}{
		{"zero date", func(e *Expense) { e.Date = Date{} }, nil},
		{"empty category", func(e *Expense) { e.Category = "  " }, ErrEmptyCategory},
		{"zero amount", func(e *Expense) { e.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"empty payer", func(e *Expense) { e.Payer = "" }, ErrEmptyPayer},
		{"self split", func(e *Expense) { e.SplitWith = e.Payer }, ErrSelfSplit},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := good
			tc.mutate(&e)
			err := e.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestBudgetLineValidate(t *testing.T) {
	good := BudgetLine{Person: "alice", Category: "Groceries", Limit: decimal.NewFromInt(80)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zero := BudgetLine{Person: "alice", Category: "Misc", Limit: decimal.Zero}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero limit is allowed, got %v", err)
	}
	negative := BudgetLine{Person: "alice", Category: "Misc", Limit: decimal.NewFromInt(-1)}
	if err := negative.Validate(); !errors.Is(err, ErrNegativeLimit) {
		t.Fatalf("got %v, want %v", err, ErrNegativeLimit)
	}
}

func TestConfig(t *testing.T) {
	lines := []BudgetLine{
		{Person: "alice", Category: "Groceries", Limit: decimal.NewFromInt(80)},
		{Person: "alice", Category: "Transport", Limit: decimal.NewFromInt(40)},
		{Person: "bob", Category: "Groceries", Limit: decimal.NewFromInt(100)},
		{Person: "alice", Category: "Groceries", Limit: decimal.NewFromInt(90)}, // overwrite
	}
	cfg := Config(lines)
	if len(cfg) != 2 {
		t.Fatalf("expected 2 persons, got %d", len(cfg))
	}
	if !cfg["alice"]["Groceries"].Equal(decimal.NewFromInt(90)) {
		t.Fatalf("later line should win, got %s", cfg["alice"]["Groceries"])
	}
	if len(cfg["alice"]) != 2 || len(cfg["bob"]) != 1 {
		t.Fatalf("unexpected shape: %v", cfg)
	}
}
