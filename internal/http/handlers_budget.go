package http

import (
	"net/http"

	"housetab/internal/core"
)

type budgetRequest struct {
	Household string `json:"household"`
	core.BudgetLine
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	req.Household = sanitizeInput(req.Household)
	req.Person = sanitizeInput(req.Person)
	req.Category = sanitizeInput(req.Category)

	if req.Household == "" {
		writeError(ctx, w, missingHousehold())
		return
	}
	if err := req.BudgetLine.Validate(); err != nil {
		writeJSON(ctx, w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}

	if err := s.budgets.SetBudget(ctx, req.Household, req.BudgetLine); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, req)
}

type budgetListResponse struct {
	Household string            `json:"household"`
	Budgets   []core.BudgetLine `json:"budgets"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	household, err := requireQuery(q, "household")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	lines, err := s.budgets.ListBudgets(ctx, household)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if person := sanitizeInput(q.Get("person")); person != "" {
		filtered := make([]core.BudgetLine, 0, len(lines))
		for _, l := range lines {
			if l.Person == person {
				filtered = append(filtered, l)
			}
		}
		lines = filtered
	}
	if lines == nil {
		lines = []core.BudgetLine{}
	}

	writeJSON(ctx, w, http.StatusOK, budgetListResponse{
		Household: household,
		Budgets:   lines,
	})
}
