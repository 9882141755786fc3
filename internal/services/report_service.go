package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"housetab/internal/books"
	"housetab/internal/cache"
	"housetab/internal/core"
	"housetab/internal/ledger"
	"housetab/internal/metrics"
)

// PersonReport is one person's effective spending for a period, evaluated
// against their budget limits.
type PersonReport struct {
	Household  string                             `json:"household"`
	Person     string                             `json:"person"`
	Period     ledger.Period                      `json:"period"`
	Categories map[string]ledger.CategorySpending `json:"categories"`
	Total      decimal.Decimal                    `json:"total"`
}

// HouseholdReport collects the person reports of every member for one
// period.
type HouseholdReport struct {
	Household string                  `json:"household"`
	Period    ledger.Period           `json:"period"`
	Members   map[string]PersonReport `json:"members"`
}

// ReportService computes spending reports on top of the books. Person
// reports are cached per household, person and period until the
// household's books change.
type ReportService struct {
	store books.Store
	cache cache.Cache[PersonReport]

	now func() time.Time
}

var _ ReportInvalidator = (*ReportService)(nil)

// NewReportService builds a report service. A nil cache disables caching,
// every report is then computed from the store.
func NewReportService(store books.Store, reportCache cache.Cache[PersonReport]) *ReportService {
	return &ReportService{
		store: store,
		cache: reportCache,
		now:   time.Now,
	}
}

// Spending returns the person's effective spending by category inside the
// period.
func (s *ReportService) Spending(ctx context.Context, household, person string, p ledger.Period) (map[string]decimal.Decimal, error) {
	records, err := s.store.List(ctx, household, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return ledger.EffectiveSpending(records, person, p.Start, p.End)
}

// Person evaluates the person's spending against their budget limits.
func (s *ReportService) Person(ctx context.Context, household, person string, p ledger.Period) (PersonReport, error) {
	key := reportKey(household, person, p)
	if s.cache != nil {
		if report, ok := s.cache.Get(key); ok {
			metrics.ReportCacheEvents.WithLabelValues("hit").Inc()
			return report, nil
		}
		metrics.ReportCacheEvents.WithLabelValues("miss").Inc()
	}

	spending, err := s.Spending(ctx, household, person, p)
	if err != nil {
		return PersonReport{}, err
	}

	budgets, err := s.store.Budgets(ctx, household, person)
	if err != nil {
		return PersonReport{}, fmt.Errorf("load budgets: %w", err)
	}

	report := PersonReport{
		Household:  household,
		Person:     person,
		Period:     p,
		Categories: ledger.EvaluateBudgets(spending, budgets),
		Total:      ledger.TotalSpending(spending),
	}

	if s.cache != nil {
		s.cache.Set(key, report)
	}

	return report, nil
}

// Household builds the person reports of every member concurrently.
func (s *ReportService) Household(ctx context.Context, household string, p ledger.Period) (HouseholdReport, error) {
	members, err := s.store.Members(ctx, household)
	if err != nil {
		return HouseholdReport{}, fmt.Errorf("list members: %w", err)
	}

	reports := make([]PersonReport, len(members))
	g, gctx := errgroup.WithContext(ctx)
	for i, member := range members {
		g.Go(func() error {
			report, err := s.Person(gctx, household, member, p)
			if err != nil {
				return fmt.Errorf("report for %s: %w", member, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return HouseholdReport{}, err
	}

	out := HouseholdReport{
		Household: household,
		Period:    p,
		Members:   make(map[string]PersonReport, len(members)),
	}
	for _, report := range reports {
		out.Members[report.Person] = report
	}

	return out, nil
}

// Trends classifies the person's spending direction over the last n windows
// of the cadence, ending at the current one.
func (s *ReportService) Trends(ctx context.Context, household, person string, cadence ledger.Cadence, n int) (ledger.TrendSummary, error) {
	windower, err := ledger.GetWindower(cadence)
	if err != nil {
		return ledger.TrendSummary{}, err
	}

	ref := dateOf(s.now())
	windows := ledger.LastWindows(windower, ref, n)
	if len(windows) < 2 {
		return ledger.TrendSummary{}, ledger.ErrNotEnoughPeriods
	}

	span := ledger.Period{Start: windows[0].Start, End: windows[len(windows)-1].End}
	records, err := s.store.List(ctx, household, span.Start, span.End)
	if err != nil {
		return ledger.TrendSummary{}, fmt.Errorf("list expenses: %w", err)
	}

	return ledger.SpendingTrend(records, person, windows)
}

// InvalidateHousehold drops every cached report of the household.
func (s *ReportService) InvalidateHousehold(household string) {
	if s.cache == nil {
		return
	}
	if n := s.cache.DeletePrefix(household + "|"); n > 0 {
		slog.Debug("Dropped cached reports", "household", household, "count", n)
	}
}

func reportKey(household, person string, p ledger.Period) string {
	return household + "|" + person + "|" + p.String()
}

func dateOf(t time.Time) core.Date {
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}
