// Package http exposes the expense books over a JSON API. Handlers stay
// thin: they parse and sanitize input, call a service, and translate the
// outcome to a status code. Domain rules live below the services.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"housetab/internal/log"
	"housetab/internal/middleware/httpmetrics"
	"housetab/internal/middleware/ratelimit"
	"housetab/internal/middleware/security"
	"housetab/internal/middleware/trace"
	"housetab/internal/services"
)

type Server struct {
	http.Server

	expenses *services.ExpenseService
	budgets  *services.BudgetService
	reports  *services.ReportService

	structured *log.StructuredLogger
	detector   *security.Detector
	limiter    *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, logger *log.Logger, expenses *services.ExpenseService, budgets *services.BudgetService, reports *services.ReportService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		expenses:   expenses,
		budgets:    budgets,
		reports:    reports,
		structured: log.NewStructuredLogger(logger),
		detector:   security.NewDetector(),
		limiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	mux.HandleFunc("POST /api/expenses", s.handleRecordExpense)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleRemoveExpense)

	mux.HandleFunc("PUT /api/budgets", s.handleSetBudget)
	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)

	mux.HandleFunc("GET /api/reports/spending", s.handleSpendingReport)
	mux.HandleFunc("GET /api/reports/household", s.handleHouseholdReport)
	mux.HandleFunc("GET /api/reports/trends", s.handleTrendReport)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("/", handleNotFound)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	// Innermost wraps the mux so the matched pattern is readable; the
	// tracer sits outside everything to time the full chain.
	var handler http.Handler = httpmetrics.Middleware(mux)
	handler = s.withRateLimit(handler)
	handler = s.flagSuspicious(handler)
	handler = headers.Middleware(handler)
	handler = log.Middleware(logger)(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// withRateLimit applies the per-client budget to mutating requests only.
// Health probes and metric scrapes poll on fixed schedules and must not
// consume it.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
		"client_ip", s.detector.ExtractClientIP(r),
		"method", r.Method,
		"path", r.URL.Path)
	w.Header().Set("Retry-After", "60")
	writeJSON(ctx, w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
}

// flagSuspicious marks scan-looking requests in the log. They are served
// normally; blocking on pattern guesses would lock out odd but legitimate
// clients.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			ctx := r.Context()
			log.FromContext(ctx).WarnContext(ctx, "Suspicious request pattern",
				"client_ip", s.detector.ExtractClientIP(r),
				"method", r.Method,
				"path", r.URL.Path,
				"user_agent", r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the HTTP listener and the background goroutines the
// server owns.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusNotFound, errorBody{Error: "not found"})
}

