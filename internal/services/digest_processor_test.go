package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housetab/internal/cache"
	"housetab/internal/core"
	"housetab/internal/ledger"
)

func fixedJanuary() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	}
}

func TestDefaultDigestConfig(t *testing.T) {
	config := DefaultDigestConfig()

	assert.Equal(t, 24*time.Hour, config.Interval)
	assert.Equal(t, ledger.CadenceMonthly, config.Cadence)
	assert.Empty(t, config.Households)
}

func TestDigestProcessor_StartAndStop(t *testing.T) {
	ctx := context.Background()

	reportCache := cache.NewLRUCache[PersonReport](16, time.Minute)
	reports := NewReportService(seededStore(t), reportCache)
	reports.now = fixedJanuary()

	config := DefaultDigestConfig()
	config.Interval = 50 * time.Millisecond
	config.Households = []string{"casa"}

	processor := NewDigestProcessor(reports, nil, config)
	processor.now = fixedJanuary()

	require.NoError(t, processor.Start(ctx))
	assert.True(t, processor.IsRunning())

	// the startup digest builds every member's report through the cache
	require.Eventually(t, func() bool {
		return reportCache.Size() >= 2
	}, time.Second, 10*time.Millisecond)

	err := processor.Start(ctx)
	require.Error(t, err, "a second start must be rejected")

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, processor.Stop(stopCtx))
	assert.False(t, processor.IsRunning())
}

func TestDigestProcessor_StopWhenNotRunning(t *testing.T) {
	processor := NewDigestProcessor(nil, nil, DefaultDigestConfig())

	assert.NoError(t, processor.Stop(context.Background()))
}

func TestDigestProcessor_PublishesOverAlerts(t *testing.T) {
	ctx := context.Background()

	store := seededStore(t)
	require.NoError(t, store.SetBudget(ctx, "casa", core.BudgetLine{
		Person:   "bob",
		Category: "groceries",
		Limit:    core.MustAmount("90"),
	}))

	publisher := &fakePublisher{}
	reports := NewReportService(store, nil)
	reports.now = fixedJanuary()

	config := DefaultDigestConfig()
	config.Households = []string{"casa"}

	processor := NewDigestProcessor(reports, publisher, config)
	processor.now = fixedJanuary()

	processor.runDigest(ctx)

	// bob spent 100 of 90, alice stays inside her budget
	require.Len(t, publisher.alerts, 1)
	alert := publisher.alerts[0]
	assert.Equal(t, "casa", alert.Household)
	assert.Equal(t, "bob", alert.Person)
	assert.Equal(t, "groceries", alert.Category)
	assert.Equal(t, "over", alert.Status)
	assert.Equal(t, "100", alert.Spent)
	assert.Equal(t, "90", alert.Limit)
	assert.Equal(t, "2025-01-01", alert.PeriodStart)
	assert.Equal(t, "2025-02-01", alert.PeriodEnd)
}

func TestDigestProcessor_RunDigestBadCadence(t *testing.T) {
	ctx := context.Background()

	reportCache := cache.NewLRUCache[PersonReport](16, time.Minute)
	reports := NewReportService(seededStore(t), reportCache)

	config := DefaultDigestConfig()
	config.Cadence = ledger.Cadence("hourly")
	config.Households = []string{"casa"}

	processor := NewDigestProcessor(reports, nil, config)
	processor.now = fixedJanuary()

	processor.runDigest(ctx)

	assert.Equal(t, 0, reportCache.Size(), "an invalid cadence must not produce reports")
}
