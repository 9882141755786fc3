package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"housetab/internal/books"
	"housetab/internal/core"
	"housetab/internal/ledger"
	"housetab/internal/log"
)

// errBadRequest marks client mistakes outside the domain rules: missing
// parameters, malformed dates, unparseable bodies.
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to encode response", "error", err)
	}
}

// writeError translates an error into a status code and a JSON body.
// Client errors carry their message; server errors are logged and answer
// with a generic body.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		log.FromContext(ctx).ErrorContext(ctx, "Request failed", "error", err)
		writeJSON(ctx, w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(ctx, w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrSelfSplit),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyPayer),
		errors.Is(err, core.ErrNegativeLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, books.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, books.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, ledger.ErrNotEnoughPeriods):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a request body into v, capping the body size so a
// hostile client cannot stream an unbounded document.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
