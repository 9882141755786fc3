// Package ledger implements the accounting rules of the tracker: turning a
// snapshot of expense records into one person's effective spending per
// category, reconciling that spending against configured budgets, and
// deriving period windows and multi-period trends.
//
// Everything in this package is a pure function over immutable inputs. No
// I/O, no shared state, no logging; calls are safe to run concurrently and
// return identical results for identical inputs. Amounts stay exact decimals
// throughout; splits halve without rounding.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"housetab/internal/core"
)

var two = decimal.NewFromInt(2)

// EffectiveSpending computes the portion of each expense attributable to
// person within the half-open window [periodStart, periodEnd), grouped by
// category.
//
// A record the person paid contributes its full amount, or half when split
// with someone else. A record someone else paid but split with the person
// contributes half. Both rules accumulate additively, so a person appearing
// as payer on one record and split partner on another in the same category
// sums both shares.
//
// Categories with no contributing records are absent from the result; callers
// treat absent as zero. An empty or inverted window returns an empty map.
//
// The only failures are invariant violations in the input records:
// core.ErrInvalidAmount for a non-positive amount and core.ErrSelfSplit for a
// record split with its own payer. Both wrap the record id and propagate
// unchanged; corrupt records are never silently repaired.
func EffectiveSpending(records []core.Expense, person string, periodStart, periodEnd core.Date) (map[string]decimal.Decimal, error) {
	totals := make(map[string]decimal.Decimal)
	if !periodStart.Before(periodEnd) {
		return totals, nil
	}
	for _, rec := range records {
		// Half-open window: start inclusive, end exclusive.
		if rec.Date.Before(periodStart) || !rec.Date.Before(periodEnd) {
			continue
		}
		if !rec.Amount.IsPositive() {
			return nil, fmt.Errorf("expense %s: %w", rec.ID, core.ErrInvalidAmount)
		}
		if rec.SplitWith != "" && rec.SplitWith == rec.Payer {
			return nil, fmt.Errorf("expense %s: %w", rec.ID, core.ErrSelfSplit)
		}

		var share decimal.Decimal
		switch {
		case rec.Payer == person && rec.Split():
			share = rec.Amount.Div(two)
		case rec.Payer == person:
			share = rec.Amount
		case rec.SplitWith == person:
			share = rec.Amount.Div(two)
		default:
			continue
		}
		totals[rec.Category] = totals[rec.Category].Add(share)
	}
	return totals, nil
}

// TotalSpending sums a per-category spending map into a single amount.
func TotalSpending(spending map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range spending {
		total = total.Add(amount)
	}
	return total
}
