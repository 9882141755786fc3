package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housetab/internal/books/memory"
	"housetab/internal/cache"
	"housetab/internal/core"
	"housetab/internal/ledger"
)

func january() ledger.Period {
	return ledger.MonthWindow(2025, 1)
}

func TestReportService_Person(t *testing.T) {
	ctx := context.Background()
	service := NewReportService(seededStore(t), nil)

	report, err := service.Person(ctx, "casa", "alice", january())

	require.NoError(t, err)
	assert.Equal(t, "alice", report.Person)
	assert.Equal(t, "casa", report.Household)

	// alice paid 100 split with bob, so her share is 50
	require.Contains(t, report.Categories, "groceries")
	groceries := report.Categories["groceries"]
	assert.True(t, groceries.Spent.Equal(core.MustAmount("50")), "spent = %s", groceries.Spent)
	assert.True(t, groceries.Budget.Equal(core.MustAmount("80")), "budget = %s", groceries.Budget)
	assert.True(t, groceries.Remaining.Equal(core.MustAmount("30")), "remaining = %s", groceries.Remaining)
	assert.True(t, groceries.Percentage.Equal(core.MustAmount("62.5")), "percentage = %s", groceries.Percentage)
	assert.Equal(t, ledger.StatusOK, groceries.Status)

	assert.True(t, report.Total.Equal(core.MustAmount("50")), "total = %s", report.Total)
}

func TestReportService_Household(t *testing.T) {
	ctx := context.Background()
	service := NewReportService(seededStore(t), nil)

	report, err := service.Household(ctx, "casa", january())

	require.NoError(t, err)
	require.Len(t, report.Members, 2)

	alice := report.Members["alice"]
	assert.True(t, alice.Total.Equal(core.MustAmount("50")), "alice total = %s", alice.Total)

	// bob carries his half of the split plus his own expense
	bob := report.Members["bob"]
	assert.True(t, bob.Total.Equal(core.MustAmount("100")), "bob total = %s", bob.Total)
	bobGroceries := bob.Categories["groceries"]
	assert.Equal(t, ledger.StatusOK, bobGroceries.Status)
	assert.True(t, bobGroceries.Budget.IsZero(), "bob has no budget")
	assert.True(t, bobGroceries.Percentage.IsZero())
}

func TestReportService_PersonUsesCache(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	reportCache := cache.NewLRUCache[PersonReport](16, time.Minute)
	service := NewReportService(store, reportCache)

	first, err := service.Person(ctx, "casa", "alice", january())
	require.NoError(t, err)

	// a write that bypasses the service is invisible until invalidation
	require.NoError(t, store.Append(ctx, expense(t, "e3", "2025-01-20", "groceries", "10", "alice", "")))

	cached, err := service.Person(ctx, "casa", "alice", january())
	require.NoError(t, err)
	assert.True(t, cached.Total.Equal(first.Total), "cached total = %s", cached.Total)

	service.InvalidateHousehold("casa")

	fresh, err := service.Person(ctx, "casa", "alice", january())
	require.NoError(t, err)
	assert.True(t, fresh.Total.Equal(core.MustAmount("60")), "fresh total = %s", fresh.Total)
}

func TestReportService_InvalidateOnlyDropsOwnHousehold(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	require.NoError(t, store.Append(ctx, core.Expense{
		ID:        "b1",
		Household: "baita",
		Date:      mustDate(t, "2025-01-05"),
		Category:  "heating",
		Amount:    core.MustAmount("30"),
		Payer:     "carol",
	}))

	reportCache := cache.NewLRUCache[PersonReport](16, time.Minute)
	service := NewReportService(store, reportCache)

	_, err := service.Person(ctx, "casa", "alice", january())
	require.NoError(t, err)
	_, err = service.Person(ctx, "baita", "carol", january())
	require.NoError(t, err)
	require.Equal(t, 2, reportCache.Size())

	service.InvalidateHousehold("casa")

	assert.Equal(t, 1, reportCache.Size())
}

func TestReportService_Trends(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for _, e := range []struct {
		id, date, amount string
	}{
		{"t1", "2025-04-10", "10"},
		{"t2", "2025-05-10", "20"},
		{"t3", "2025-06-10", "40"},
	} {
		require.NoError(t, store.Append(ctx, expense(t, e.id, e.date, "groceries", e.amount, "alice", "")))
	}

	service := NewReportService(store, nil)
	service.now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}

	summary, err := service.Trends(ctx, "casa", "alice", ledger.CadenceMonthly, 3)

	require.NoError(t, err)
	assert.Equal(t, ledger.TrendIncreasing, summary.Direction)
	require.Len(t, summary.Series, 3)
	assert.True(t, summary.Highest.Total.Equal(core.MustAmount("40")), "highest = %s", summary.Highest.Total)
	assert.Equal(t, ledger.MonthWindow(2025, 6), summary.Highest.Period)
	assert.True(t, summary.Lowest.Total.Equal(core.MustAmount("10")), "lowest = %s", summary.Lowest.Total)
}

func TestReportService_TrendsUnknownCadence(t *testing.T) {
	ctx := context.Background()
	service := NewReportService(memory.New(), nil)

	_, err := service.Trends(ctx, "casa", "alice", ledger.Cadence("hourly"), 3)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cadence")
}

func TestReportService_TrendsNeedTwoWindows(t *testing.T) {
	ctx := context.Background()
	service := NewReportService(memory.New(), nil)

	_, err := service.Trends(ctx, "casa", "alice", ledger.CadenceMonthly, 1)

	assert.ErrorIs(t, err, ledger.ErrNotEnoughPeriods)
}

func TestReportService_SpendingEmptyWindow(t *testing.T) {
	ctx := context.Background()
	service := NewReportService(seededStore(t), nil)

	inverted := ledger.Period{Start: mustDate(t, "2025-02-01"), End: mustDate(t, "2025-01-01")}
	spending, err := service.Spending(ctx, "casa", "alice", inverted)

	require.NoError(t, err)
	assert.NotNil(t, spending)
	assert.Empty(t, spending)
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %s: %v", s, err)
	}
	return d
}
