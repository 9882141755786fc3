// Package books defines the persistence ports of the tracker. Stores keep
// expense records and budget lines per household; the accounting rules in
// internal/ledger never touch these interfaces and work on plain slices.
package books

import (
	"context"
	"errors"

	"housetab/internal/core"
)

var (
	// ErrNotFound is returned when a record does not exist in the store.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID is returned when appending a record whose id is
	// already taken. Ids are never reused, even after removal.
	ErrDuplicateID = errors.New("record id already exists")
)

// Ports for persistence adapters.
type (
	ExpenseWriter interface {
		Append(ctx context.Context, e core.Expense) error
	}

	ExpenseReader interface {
		Get(ctx context.Context, household, id string) (core.Expense, error)
	}

	// ExpenseLister returns a household's records with a transaction date
	// inside the half-open window [start, end).
	ExpenseLister interface {
		List(ctx context.Context, household string, start, end core.Date) ([]core.Expense, error)
	}

	ExpenseUpdater interface {
		Update(ctx context.Context, e core.Expense) error
	}

	ExpenseRemover interface {
		Remove(ctx context.Context, household, id string) error
	}

	// BudgetReader loads one person's monthly limits keyed by category.
	BudgetReader interface {
		Budgets(ctx context.Context, household, person string) (core.BudgetConfig, error)
	}

	// BudgetWriter upserts a single budget line.
	BudgetWriter interface {
		SetBudget(ctx context.Context, household string, line core.BudgetLine) error
	}

	BudgetLister interface {
		ListBudgets(ctx context.Context, household string) ([]core.BudgetLine, error)
	}

	// MemberLister returns the distinct people appearing in a household's
	// records or budgets, sorted.
	MemberLister interface {
		Members(ctx context.Context, household string) ([]string, error)
	}
)

// Store is the full persistence surface a backend provides.
type Store interface {
	ExpenseWriter
	ExpenseReader
	ExpenseLister
	ExpenseUpdater
	ExpenseRemover
	BudgetReader
	BudgetWriter
	BudgetLister
	MemberLister
}
