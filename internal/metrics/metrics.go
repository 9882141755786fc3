// Package metrics holds the process-wide Prometheus collectors. They are
// registered on the default registry and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExpensesRecorded counts expenses appended to the books, by household.
	ExpensesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "housetab_expenses_recorded_total",
		Help: "Number of expenses appended to the books.",
	}, []string{"household"})

	// BudgetAlerts counts published budget alerts by status band.
	BudgetAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "housetab_budget_alerts_total",
		Help: "Number of published budget alerts by status.",
	}, []string{"status"})

	// ReportCacheEvents counts report cache lookups by outcome.
	ReportCacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "housetab_report_cache_events_total",
		Help: "Report cache lookups by outcome (hit or miss).",
	}, []string{"outcome"})

	// HTTPRequestDuration observes request latency by method, route and
	// status code.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "housetab_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
