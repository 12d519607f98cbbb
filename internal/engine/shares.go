package engine

import (
	"github.com/shopspring/decimal"

	"financas/internal/core"
)

var hundred = decimal.NewFromInt(100)

// contextShare computes round(100 * part / total, 2), defined as zero when
// the context total is zero so a quiet month never produces NaN downstream.
func contextShare(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(total).Round(2)
}

// ApplyShares fills in each row's percentage of its grouping context's total
// actual amount. A context is one real month, or the synthetic "Total"
// month, which is its own context. The rows are returned in input order.
func ApplyShares(rows []core.ReconciledRow) []core.ReconciledRow {
	totals := make(map[core.MonthID]decimal.Decimal)
	for _, r := range rows {
		totals[r.Month] = totals[r.Month].Add(r.Actual)
	}
	out := make([]core.ReconciledRow, len(rows))
	for i, r := range rows {
		r.Percentage = contextShare(r.Actual, totals[r.Month])
		out[i] = r
	}
	return out
}

// ActualShare is an aggregated row paired with its percentage of the
// grouping context, ready for tabular or chart rendering.
type ActualShare struct {
	Month      core.MonthID
	Category   string
	Total      decimal.Decimal
	Percentage decimal.Decimal
}

// SharesOf computes percentage-of-context for aggregated actuals, one
// context per month identifier present in the input.
func SharesOf(rows []core.AggregatedActual) []ActualShare {
	totals := make(map[core.MonthID]decimal.Decimal)
	for _, r := range rows {
		totals[r.Month] = totals[r.Month].Add(r.Total)
	}
	out := make([]ActualShare, len(rows))
	for i, r := range rows {
		out[i] = ActualShare{
			Month:      r.Month,
			Category:   r.Category,
			Total:      r.Total,
			Percentage: contextShare(r.Total, totals[r.Month]),
		}
	}
	return out
}
