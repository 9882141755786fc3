package services

import (
	"context"
	"sync"
	"testing"

	"housetab/internal/amqp"
	"housetab/internal/books/memory"
	"housetab/internal/core"
)

// fakePublisher records published messages and can be told to fail.
type fakePublisher struct {
	mu       sync.Mutex
	recorded []*amqp.ExpenseRecordedMessage
	removed  []*amqp.ExpenseRemovedMessage
	changed  []*amqp.BudgetChangedMessage
	alerts   []*amqp.BudgetAlertMessage
	err      error
}

func (f *fakePublisher) PublishExpenseRecorded(_ context.Context, msg *amqp.ExpenseRecordedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, msg)
	return nil
}

func (f *fakePublisher) PublishExpenseRemoved(_ context.Context, msg *amqp.ExpenseRemovedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, msg)
	return nil
}

func (f *fakePublisher) PublishBudgetChanged(_ context.Context, msg *amqp.BudgetChangedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.changed = append(f.changed, msg)
	return nil
}

func (f *fakePublisher) PublishBudgetAlert(_ context.Context, msg *amqp.BudgetAlertMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, msg)
	return nil
}

// fakeInvalidator records which households had their reports dropped.
type fakeInvalidator struct {
	mu         sync.Mutex
	households []string
}

func (f *fakeInvalidator) InvalidateHousehold(household string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.households = append(f.households, household)
}

func expense(t *testing.T, id, date, category, amount, payer, splitWith string) core.Expense {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date %s: %v", date, err)
	}
	return core.Expense{
		ID:        id,
		Household: "casa",
		Date:      d,
		Category:  category,
		Amount:    core.MustAmount(amount),
		Payer:     payer,
		SplitWith: splitWith,
	}
}

// seededStore returns a memory store holding the canonical January books:
// alice paid 100 for groceries split with bob, bob paid 50 for groceries,
// and alice has an 80 groceries budget.
func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	if err := store.Append(ctx, expense(t, "e1", "2025-01-05", "groceries", "100", "alice", "bob")); err != nil {
		t.Fatalf("seed e1: %v", err)
	}
	if err := store.Append(ctx, expense(t, "e2", "2025-01-10", "groceries", "50", "bob", "")); err != nil {
		t.Fatalf("seed e2: %v", err)
	}
	if err := store.SetBudget(ctx, "casa", core.BudgetLine{
		Person:   "alice",
		Category: "groceries",
		Limit:    core.MustAmount("80"),
	}); err != nil {
		t.Fatalf("seed budget: %v", err)
	}

	return store
}
