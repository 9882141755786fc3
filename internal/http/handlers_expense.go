package http

import (
	"net/http"

	"housetab/internal/core"
	"housetab/internal/ledger"
)

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var e core.Expense
	if err := decodeJSON(w, r, &e); err != nil {
		writeError(ctx, w, err)
		return
	}
	sanitizeExpense(&e)

	if e.Household == "" {
		writeError(ctx, w, missingHousehold())
		return
	}
	if err := e.Validate(); err != nil {
		writeJSON(ctx, w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}

	stored, err := s.expenses.Record(ctx, e)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	s.structured.LogExpenseRecorded(ctx, stored.ID, stored.Household, stored.Category, stored.Amount.String())
	writeJSON(ctx, w, http.StatusCreated, stored)
}

type expenseListResponse struct {
	Household string         `json:"household"`
	Period    ledger.Period  `json:"period"`
	Expenses  []core.Expense `json:"expenses"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
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

	items, err := s.expenses.List(ctx, household, period)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if items == nil {
		items = []core.Expense{}
	}

	writeJSON(ctx, w, http.StatusOK, expenseListResponse{
		Household: household,
		Period:    period,
		Expenses:  items,
	})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	household, err := requireQuery(r.URL.Query(), "household")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	e, err := s.expenses.Get(ctx, household, r.PathValue("id"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var e core.Expense
	if err := decodeJSON(w, r, &e); err != nil {
		writeError(ctx, w, err)
		return
	}
	sanitizeExpense(&e)
	// The path names the record; an id in the body is ignored.
	e.ID = r.PathValue("id")

	if e.Household == "" {
		writeError(ctx, w, missingHousehold())
		return
	}
	if err := e.Validate(); err != nil {
		writeJSON(ctx, w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}

	if err := s.expenses.Update(ctx, e); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, e)
}

func (s *Server) handleRemoveExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	household, err := requireQuery(r.URL.Query(), "household")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := s.expenses.Remove(ctx, household, r.PathValue("id")); err != nil {
		writeError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func sanitizeExpense(e *core.Expense) {
	e.ID = sanitizeInput(e.ID)
	e.Household = sanitizeInput(e.Household)
	e.Category = sanitizeInput(e.Category)
	e.Payer = sanitizeInput(e.Payer)
	e.SplitWith = sanitizeInput(e.SplitWith)
	e.Notes = sanitizeInput(e.Notes)
}
