package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Date is a calendar date. Time-of-day and timezone carry no meaning;
	// every Date is anchored at midnight UTC so equality and ordering are
	// purely calendar comparisons.
	Date struct {
		time.Time
	}

	// Expense is one recorded transaction. Records are immutable once
	// stored; an edit replaces the whole record.
	Expense struct {
		ID        string          `json:"id"`
		Household string          `json:"household"`
		Date      Date            `json:"date"`
		Category  string          `json:"category"`
		Amount    decimal.Decimal `json:"amount"`
		Payer     string          `json:"payer"`
		SplitWith string          `json:"split_with,omitempty"` // empty when the expense is not split
		Notes     string          `json:"notes,omitempty"`
	}

	// BudgetLine is one configured spending limit for a person and category
	// over the recurring period (conventionally a calendar month).
	BudgetLine struct {
		Person   string          `json:"person"`
		Category string          `json:"category"`
		Limit    decimal.Decimal `json:"limit"`
	}

	// BudgetConfig maps category names to one person's configured limits.
	// Categories without an entry have no budget set.
	BudgetConfig map[string]decimal.Decimal
)

var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrSelfSplit     = errors.New("expense cannot be split with its payer")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyPayer    = errors.New("empty payer")
	ErrNegativeLimit = errors.New("budget limit cannot be negative")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.UTC().Year(), int(t.UTC().Month()), t.UTC().Day())
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Before reports whether d falls on an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// Year returns the calendar year.
func (d Date) Year() int {
	return d.Time.Year()
}

// Month returns the calendar month as an int (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Split reports whether the expense is shared with a second member.
func (e Expense) Split() bool {
	return e.SplitWith != ""
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Payer) == "" {
		return ErrEmptyPayer
	}
	if e.SplitWith != "" && e.SplitWith == e.Payer {
		return ErrSelfSplit
	}
	if len(e.Notes) > 500 {
		return errors.New("notes too long (max 500 characters)")
	}
	return nil
}

func (b BudgetLine) Validate() error {
	if strings.TrimSpace(b.Person) == "" {
		return ErrEmptyPayer
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Limit.IsNegative() {
		return ErrNegativeLimit
	}
	return nil
}

// Config folds budget lines into per-person configurations. Later lines for
// the same person and category overwrite earlier ones.
func Config(lines []BudgetLine) map[string]BudgetConfig {
	out := make(map[string]BudgetConfig)
	for _, l := range lines {
		cfg, ok := out[l.Person]
		if !ok {
			cfg = make(BudgetConfig)
			out[l.Person] = cfg
		}
		cfg[l.Category] = l.Limit
	}
	return out
}
