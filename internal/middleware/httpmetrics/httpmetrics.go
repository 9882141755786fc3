// Package httpmetrics records request durations into the Prometheus
// histogram, labeled by method, matched route, and status code.
package httpmetrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"housetab/internal/metrics"
)

// Middleware wraps next and observes every request. It should wrap the
// mux directly: the matched route pattern only becomes readable on the
// request once the mux has routed it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, routeLabel(r), strconv.Itoa(rw.status)).
			Observe(time.Since(start).Seconds())
	})
}

// routeLabel returns the matched mux pattern without its method prefix,
// keeping label cardinality bounded by the route table. Unrouted requests
// collapse into a single bucket.
func routeLabel(r *http.Request) string {
	route := r.Pattern
	if route == "" {
		return "unmatched"
	}
	if i := strings.IndexByte(route, ' '); i >= 0 {
		route = route[i+1:]
	}
	return route
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
