package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Aggregate groups raw transactions by (month, category), summing amounts
// exactly. The result contains one row per observed key, ordered by month
// then category so repeated passes over the same input are byte-identical.
// Pure function of its input.
func Aggregate(records []core.TransactionRecord) []core.AggregatedActual {
	type key struct {
		month    core.MonthID
		category string
	}
	sums := make(map[key]decimal.Decimal)
	for _, r := range records {
		k := key{month: r.Month, category: r.Category}
		sums[k] = sums[k].Add(r.Amount)
	}

	rows := make([]core.AggregatedActual, 0, len(sums))
	for k, total := range sums {
		rows = append(rows, core.AggregatedActual{
			Month:    k.month,
			Category: k.category,
			Total:    total,
		})
	}
	sortAggregates(rows)
	return rows
}

// WithTotals appends one synthetic "Total" row per category, summing that
// category's totals across all real months. The input rows are returned
// unchanged, with the Total rows after them.
func WithTotals(rows []core.AggregatedActual) []core.AggregatedActual {
	totals := make(map[string]decimal.Decimal)
	order := make([]string, 0)
	for _, r := range rows {
		if r.Month.IsTotal() {
			continue
		}
		if _, seen := totals[r.Category]; !seen {
			order = append(order, r.Category)
		}
		totals[r.Category] = totals[r.Category].Add(r.Total)
	}
	sort.Strings(order)

	out := make([]core.AggregatedActual, 0, len(rows)+len(order))
	out = append(out, rows...)
	for _, category := range order {
		out = append(out, core.AggregatedActual{
			Month:    core.TotalMonth,
			Category: category,
			Total:    totals[category],
		})
	}
	return out
}

func sortAggregates(rows []core.AggregatedActual) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Month != rows[j].Month {
			return rows[i].Month.Before(rows[j].Month)
		}
		return rows[i].Category < rows[j].Category
	})
}
