package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"housetab/internal/core"
)

// ErrNotEnoughPeriods is returned when a trend is requested over fewer than
// two periods.
var ErrNotEnoughPeriods = errors.New("trend requires at least two periods")

// TrendDirection classifies how effective spending moves across periods.
type TrendDirection int

const (
	TrendStable TrendDirection = iota
	TrendIncreasing
	TrendDecreasing
)

var trendNames = map[TrendDirection]string{
	TrendStable:     "stable",
	TrendIncreasing: "increasing",
	TrendDecreasing: "decreasing",
}

func (d TrendDirection) String() string {
	if name, ok := trendNames[d]; ok {
		return name
	}
	return fmt.Sprintf("TrendDirection(%d)", int(d))
}

func (d TrendDirection) MarshalJSON() ([]byte, error) {
	name, ok := trendNames[d]
	if !ok {
		return nil, fmt.Errorf("unknown trend direction: %d", int(d))
	}
	return []byte(`"` + name + `"`), nil
}

// UnmarshalJSON decodes a lowercase direction name.
func (d *TrendDirection) UnmarshalJSON(b []byte) error {
	name := string(b)
	for v, n := range trendNames {
		if `"`+n+`"` == name {
			*d = v
			return nil
		}
	}
	return fmt.Errorf("unknown trend direction: %s", name)
}

type (
	// PeriodSpend is one period's total effective spending for a person.
	PeriodSpend struct {
		Period Period          `json:"period"`
		Total  decimal.Decimal `json:"total"`
	}

	// TrendSummary describes how spending evolved over a series of periods.
	TrendSummary struct {
		Direction TrendDirection  `json:"direction"`
		Average   decimal.Decimal `json:"average"`
		Highest   PeriodSpend     `json:"highest"`
		Lowest    PeriodSpend     `json:"lowest"`
		Series    []PeriodSpend   `json:"series"`
	}
)

// Direction thresholds: the second half of the series must move more than
// ten percent against the first half to count as a trend.
var (
	bandHigh = decimal.New(11, -1)
	bandLow  = decimal.New(9, -1)
)

// SpendingTrend computes per-period effective totals for person across the
// given windows and classifies the overall direction. The mean of the later
// half of the series is compared against the mean of the earlier half; moves
// within ten percent either way count as stable. Ties on highest and lowest
// go to the earliest period.
func SpendingTrend(records []core.Expense, person string, windows []Period) (TrendSummary, error) {
	if len(windows) < 2 {
		return TrendSummary{}, ErrNotEnoughPeriods
	}

	series := make([]PeriodSpend, 0, len(windows))
	sum := decimal.Zero
	for _, w := range windows {
		spending, err := EffectiveSpending(records, person, w.Start, w.End)
		if err != nil {
			return TrendSummary{}, err
		}
		total := TotalSpending(spending)
		series = append(series, PeriodSpend{Period: w, Total: total})
		sum = sum.Add(total)
	}

	highest, lowest := series[0], series[0]
	for _, ps := range series[1:] {
		if ps.Total.GreaterThan(highest.Total) {
			highest = ps
		}
		if ps.Total.LessThan(lowest.Total) {
			lowest = ps
		}
	}

	half := len(series) / 2
	earlier := meanTotal(series[:half])
	later := meanTotal(series[half:])

	direction := TrendStable
	switch {
	case later.GreaterThan(earlier.Mul(bandHigh)):
		direction = TrendIncreasing
	case later.LessThan(earlier.Mul(bandLow)):
		direction = TrendDecreasing
	}

	return TrendSummary{
		Direction: direction,
		Average:   sum.Div(decimal.NewFromInt(int64(len(series)))),
		Highest:   highest,
		Lowest:    lowest,
		Series:    series,
	}, nil
}

func meanTotal(series []PeriodSpend) decimal.Decimal {
	if len(series) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, ps := range series {
		sum = sum.Add(ps.Total)
	}
	return sum.Div(decimal.NewFromInt(int64(len(series))))
}
