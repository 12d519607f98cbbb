package engine

import (
	"sort"

	"financas/internal/core"
)

// CategoryOrder is the fixed display ordering for categories. Categories not
// in the list sort after every listed one, keeping their relative input
// order among themselves; no row is ever dropped for being unlisted.
type CategoryOrder struct {
	rank     map[string]int
	unlisted int
}

// NewCategoryOrder builds an order from the configured category names.
func NewCategoryOrder(names []string) CategoryOrder {
	rank := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := rank[n]; !dup {
			rank[n] = i
		}
	}
	return CategoryOrder{rank: rank, unlisted: len(rank)}
}

func (o CategoryOrder) rankOf(category string) int {
	if r, ok := o.rank[category]; ok {
		return r
	}
	return o.unlisted
}

// Sort orders reconciled rows by month (chronological, "Total" last) and
// then by category rank. The sort is stable and total.
func (o CategoryOrder) Sort(rows []core.ReconciledRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Month != rows[j].Month {
			return rows[i].Month.Before(rows[j].Month)
		}
		return o.rankOf(rows[i].Category) < o.rankOf(rows[j].Category)
	})
}

// SortShares applies the same ordering to aggregated share rows.
func (o CategoryOrder) SortShares(rows []ActualShare) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Month != rows[j].Month {
			return rows[i].Month.Before(rows[j].Month)
		}
		return o.rankOf(rows[i].Category) < o.rankOf(rows[j].Category)
	})
}
