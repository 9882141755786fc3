package http

import (
	"fmt"
	"net/http"

	"housetab/internal/ledger"
)

func (s *Server) handleSpendingReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	household, err := requireQuery(q, "household")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	person, err := requireQuery(q, "person")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	period, err := parsePeriod(q)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	report, err := s.reports.Person(ctx, household, person, period)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, report)
}

func (s *Server) handleHouseholdReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	household, err := requireQuery(q, "household")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	period, err := parsePeriod(q)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	report, err := s.reports.Household(ctx, household, period)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, report)
}

type trendResponse struct {
	Household string              `json:"household"`
	Person    string              `json:"person"`
	Cadence   ledger.Cadence      `json:"cadence"`
	Trend     ledger.TrendSummary `json:"trend"`
}

func (s *Server) handleTrendReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	household, err := requireQuery(q, "household")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	person, err := requireQuery(q, "person")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	cadence := ledger.CadenceMonthly
	if c := q.Get("cadence"); c != "" {
		cadence = ledger.Cadence(c)
		if _, err := ledger.GetWindower(cadence); err != nil {
			writeError(ctx, w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}

	months, err := intQuery(q, "months", 3)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if months > 36 {
		writeError(ctx, w, fmt.Errorf("%w: at most 36 periods per trend", errBadRequest))
		return
	}

	trend, err := s.reports.Trends(ctx, household, person, cadence, months)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, trendResponse{
		Household: household,
		Person:    person,
		Cadence:   cadence,
		Trend:     trend,
	})
}
