package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"financas/internal/core"
)

// Reconciler joins planned budget rows against aggregated actuals and
// computes the signed balance for every (month, category) key present on
// either side.
type Reconciler struct {
	polarity PolarityConfig
}

func NewReconciler(polarity PolarityConfig) *Reconciler {
	return &Reconciler{polarity: polarity}
}

type joinKey struct {
	month    core.MonthID
	category string
}

// Reconcile performs a full outer join of planned and actual rows on
// (month, category). A key missing on one side contributes zero to the
// balance formula but still produces a row. The balance is rounded to two
// decimal places after the subtraction.
//
// Duplicate planned entries for one key abort the pass with
// core.ErrAmbiguousKey: silently picking or summing one of them would
// corrupt every balance derived from it.
func (r *Reconciler) Reconcile(planned []core.BudgetEntry, actuals []core.AggregatedActual) ([]core.ReconciledRow, error) {
	plannedByKey := make(map[joinKey]core.BudgetEntry, len(planned))
	for _, p := range planned {
		k := joinKey{month: p.Month, category: p.Category}
		if _, dup := plannedByKey[k]; dup {
			return nil, fmt.Errorf("%w: duplicate planned budget for month %s category %q",
				core.ErrAmbiguousKey, p.Month, p.Category)
		}
		plannedByKey[k] = p
	}

	actualByKey := make(map[joinKey]core.AggregatedActual, len(actuals))
	keys := make([]joinKey, 0, len(planned)+len(actuals))
	seen := make(map[joinKey]struct{}, len(planned)+len(actuals))
	for _, a := range actuals {
		k := joinKey{month: a.Month, category: a.Category}
		actualByKey[k] = a
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for _, p := range planned {
		k := joinKey{month: p.Month, category: p.Category}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].month != keys[j].month {
			return keys[i].month.Before(keys[j].month)
		}
		return keys[i].category < keys[j].category
	})

	warned := make(map[string]struct{})
	rows := make([]core.ReconciledRow, 0, len(keys))
	for _, k := range keys {
		row := core.ReconciledRow{Month: k.month, Category: k.category}
		if p, ok := plannedByKey[k]; ok {
			row.Planned = p.Planned
			row.HasPlanned = true
		}
		if a, ok := actualByKey[k]; ok {
			row.Actual = a.Total
			row.HasActual = true
		}

		polarity, known := r.polarity.Classify(k.category)
		if !known {
			if _, done := warned[k.category]; !done {
				warned[k.category] = struct{}{}
				slog.Warn("Category has no configured polarity, treating as expense-like",
					"category", k.category)
			}
		}
		row.Balance = RuleFor(polarity).Balance(row.Planned, row.Actual).Round(2)
		rows = append(rows, row)
	}
	return rows, nil
}
