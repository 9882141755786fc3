// Period windows and the cadence registry. Reports conventionally run on
// calendar months, but any half-open window works; cadences exist so the
// report layer can resolve "the window containing this date" without
// hardcoding month arithmetic everywhere.

package ledger

import (
	"fmt"

	"housetab/internal/core"
)

// Period is a half-open date window: Start is included, End is not.
type Period struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

// Contains reports whether d falls inside the window.
func (p Period) Contains(d core.Date) bool {
	return !d.Before(p.Start) && d.Before(p.End)
}

// Empty reports whether the window covers no days at all.
func (p Period) Empty() bool {
	return !p.Start.Before(p.End)
}

func (p Period) String() string {
	return p.Start.String() + ".." + p.End.String()
}

// MonthWindow returns the calendar month window [first of month, first of
// next month).
func MonthWindow(year, month int) Period {
	start := core.NewDate(year, month, 1)
	return Period{Start: start, End: core.Date{Time: start.AddDate(0, 1, 0)}}
}

// Cadence names a recurring period length.
type Cadence string

const (
	CadenceMonthly   Cadence = "monthly"
	CadenceWeekly    Cadence = "weekly"
	CadenceQuarterly Cadence = "quarterly"
)

// Windower is the strategy interface for one cadence: it resolves the window
// containing a reference date and steps windows backwards for trend series.
type Windower interface {
	// Window returns the period containing ref.
	Window(ref core.Date) Period

	// Previous returns the period immediately before p.
	Previous(p Period) Period
}

type monthlyWindower struct{}

func (monthlyWindower) Window(ref core.Date) Period {
	return MonthWindow(ref.Year(), ref.Month())
}

func (monthlyWindower) Previous(p Period) Period {
	start := core.Date{Time: p.Start.AddDate(0, -1, 0)}
	return Period{Start: start, End: p.Start}
}

type weeklyWindower struct{}

// Window returns the Monday-to-Monday week containing ref.
func (weeklyWindower) Window(ref core.Date) Period {
	offset := (int(ref.Weekday()) + 6) % 7 // days since Monday
	start := core.Date{Time: ref.AddDate(0, 0, -offset)}
	return Period{Start: start, End: core.Date{Time: start.AddDate(0, 0, 7)}}
}

func (weeklyWindower) Previous(p Period) Period {
	return Period{Start: core.Date{Time: p.Start.AddDate(0, 0, -7)}, End: p.Start}
}

type quarterlyWindower struct{}

func (quarterlyWindower) Window(ref core.Date) Period {
	startMonth := ((ref.Month()-1)/3)*3 + 1
	start := core.NewDate(ref.Year(), startMonth, 1)
	return Period{Start: start, End: core.Date{Time: start.AddDate(0, 3, 0)}}
}

func (quarterlyWindower) Previous(p Period) Period {
	return Period{Start: core.Date{Time: p.Start.AddDate(0, -3, 0)}, End: p.Start}
}

// windowers maps cadences to their window strategies.
var windowers = map[Cadence]Windower{
	CadenceMonthly:   monthlyWindower{},
	CadenceWeekly:    weeklyWindower{},
	CadenceQuarterly: quarterlyWindower{},
}

// GetWindower returns the window strategy for a cadence, or an error for an
// unknown one.
func GetWindower(c Cadence) (Windower, error) {
	w, ok := windowers[c]
	if !ok {
		return nil, fmt.Errorf("unknown cadence: %s", c)
	}
	return w, nil
}

// RegisterWindower registers a custom cadence strategy.
func RegisterWindower(c Cadence, w Windower) {
	windowers[c] = w
}

// LastWindows returns the n consecutive windows ending with the one
// containing ref, oldest first.
func LastWindows(w Windower, ref core.Date, n int) []Period {
	if n <= 0 {
		return nil
	}
	out := make([]Period, n)
	current := w.Window(ref)
	for i := n - 1; i >= 0; i-- {
		out[i] = current
		current = w.Previous(current)
	}
	return out
}
