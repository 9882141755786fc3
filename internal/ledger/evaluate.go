package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"housetab/internal/core"
)

// Status classifies one category's spending against its budget.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusOver
)

var statusNames = map[Status]string{
	StatusOK:      "ok",
	StatusWarning: "warning",
	StatusOver:    "over",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalJSON encodes the status as its lowercase name.
func (s Status) MarshalJSON() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(`"` + name + `"`), nil
}

// UnmarshalJSON decodes a lowercase status name.
func (s *Status) UnmarshalJSON(b []byte) error {
	name := string(b)
	for v, n := range statusNames {
		if `"`+n+`"` == name {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown status %s", name)
}

// CategorySpending is the evaluation result for one category: how much was
// effectively spent, the configured limit, and the derived standing.
type CategorySpending struct {
	Spent      decimal.Decimal `json:"spent"`
	Budget     decimal.Decimal `json:"budget"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
	Status     Status          `json:"status"`
}

var (
	warnRatio = decimal.New(8, -1) // 0.8
	hundred   = decimal.NewFromInt(100)
)

// EvaluateBudgets reconciles effective per-category spending against one
// person's budget configuration. The result covers the union of both key
// sets: a category with spending but no configured budget is reported with a
// zero budget, and a budgeted category with no spending is reported with zero
// spent.
//
// remaining is clamped at zero. percentage is spent/budget*100 when a budget
// is set, else zero. Classification is first match wins: over the budget,
// then past 80% of it; a zero budget never warns regardless of spending,
// because an unset limit is not a limit of zero.
//
// Every input combination yields a defined result; there are no failure
// modes. The function is pure and safe for concurrent use.
func EvaluateBudgets(spending map[string]decimal.Decimal, budgets core.BudgetConfig) map[string]CategorySpending {
	out := make(map[string]CategorySpending, len(spending)+len(budgets))
	for category, spent := range spending {
		out[category] = evaluateCategory(spent, budgets[category])
	}
	for category, budget := range budgets {
		if _, seen := out[category]; seen {
			continue
		}
		out[category] = evaluateCategory(decimal.Zero, budget)
	}
	return out
}

func evaluateCategory(spent, budget decimal.Decimal) CategorySpending {
	remaining := budget.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	percentage := decimal.Zero
	if budget.IsPositive() {
		percentage = spent.Div(budget).Mul(hundred)
	}

	status := StatusOK
	switch {
	case budget.IsPositive() && spent.GreaterThan(budget):
		status = StatusOver
	case budget.IsPositive() && spent.GreaterThan(budget.Mul(warnRatio)):
		status = StatusWarning
	}

	return CategorySpending{
		Spent:      spent,
		Budget:     budget,
		Remaining:  remaining,
		Percentage: percentage,
		Status:     status,
	}
}
