package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"housetab/internal/core"
	"housetab/internal/ledger"
)

// requireQuery returns the named query parameter or a bad-request error
// when it is absent or blank.
func requireQuery(q url.Values, name string) (string, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return "", fmt.Errorf("%w: missing %q parameter", errBadRequest, name)
	}
	return v, nil
}

func missingHousehold() error {
	return fmt.Errorf("%w: missing %q field", errBadRequest, "household")
}

// parsePeriod resolves the reporting window from query parameters.
//
// An explicit window wins: start and end as YYYY-MM-DD, end exclusive.
// Otherwise year, month and day anchor a cadence window (monthly when no
// cadence is given), defaulting to today so a bare request reads as "the
// current month".
func parsePeriod(q url.Values) (ledger.Period, error) {
	if s := strings.TrimSpace(q.Get("start")); s != "" {
		start, err := core.ParseDate(s)
		if err != nil {
			return ledger.Period{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		e, err := requireQuery(q, "end")
		if err != nil {
			return ledger.Period{}, err
		}
		end, err := core.ParseDate(e)
		if err != nil {
			return ledger.Period{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return ledger.Period{Start: start, End: end}, nil
	}

	now := time.Now()
	year, err := intQuery(q, "year", now.Year())
	if err != nil {
		return ledger.Period{}, err
	}
	month, err := intQuery(q, "month", int(now.Month()))
	if err != nil {
		return ledger.Period{}, err
	}
	if month < 1 || month > 12 {
		return ledger.Period{}, fmt.Errorf("%w: month %d out of range", errBadRequest, month)
	}

	if c := strings.TrimSpace(q.Get("cadence")); c != "" {
		w, err := ledger.GetWindower(ledger.Cadence(c))
		if err != nil {
			return ledger.Period{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		day, err := intQuery(q, "day", 1)
		if err != nil {
			return ledger.Period{}, err
		}
		return w.Window(core.NewDate(year, month, day)), nil
	}

	return ledger.MonthWindow(year, month), nil
}

// intQuery parses an optional integer parameter, falling back to def.
func intQuery(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a valid %s", errBadRequest, v, name)
	}
	return n, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
