package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"financas/internal/core"
	"financas/internal/records"
)

// Engine runs the full reconciliation pass: fetch, aggregate, join, share,
// order. It holds no mutable state between runs; two runs over the same
// store contents produce identical results.
type Engine struct {
	store      records.Store
	reconciler *Reconciler
	order      CategoryOrder
	logger     *slog.Logger
}

func New(store records.Store, polarity PolarityConfig, order CategoryOrder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      store,
		reconciler: NewReconciler(polarity),
		order:      order,
		logger:     logger,
	}
}

// Reconciliation is the complete output of one pass: every (month, category)
// row with balance and percentage filled in, in display order, plus the
// distinct months present.
type Reconciliation struct {
	Rows   []core.ReconciledRow
	Months []core.MonthID
}

// Run fetches the planned budget and every transaction source concurrently,
// then reconciles them. A store failure on any fetch aborts the pass with
// the store's error unchanged.
func (e *Engine) Run(ctx context.Context) (*Reconciliation, error) {
	g, gctx := errgroup.WithContext(ctx)

	var planned []core.BudgetEntry
	g.Go(func() error {
		rows, err := e.store.FetchPlannedBudget(gctx)
		if err != nil {
			return fmt.Errorf("fetch planned budget: %w", err)
		}
		planned = rows
		return nil
	})

	sources := core.Sources()
	bySource := make([][]core.TransactionRecord, len(sources))
	for i, src := range sources {
		g.Go(func() error {
			rows, err := e.store.FetchTransactions(gctx, src)
			if err != nil {
				return fmt.Errorf("fetch %s transactions: %w", src, err)
			}
			bySource[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []core.TransactionRecord
	for _, rows := range bySource {
		all = append(all, rows...)
	}

	actuals := WithTotals(Aggregate(all))
	rows, err := e.reconciler.Reconcile(withPlannedTotals(planned), actuals)
	if err != nil {
		return nil, err
	}
	rows = ApplyShares(rows)
	e.order.Sort(rows)

	e.logger.Debug("Reconciliation pass complete",
		"planned_rows", len(planned),
		"transactions", len(all),
		"result_rows", len(rows))

	return &Reconciliation{Rows: rows, Months: distinctMonths(rows)}, nil
}

// SourceBreakdown aggregates a single transaction source with per-month
// percentage shares, for the per-source detail views.
func (e *Engine) SourceBreakdown(ctx context.Context, src core.Source) ([]ActualShare, error) {
	if !src.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownSource, string(src))
	}
	rows, err := e.store.FetchTransactions(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch %s transactions: %w", src, err)
	}
	shares := SharesOf(WithTotals(Aggregate(rows)))
	e.order.SortShares(shares)
	return shares, nil
}

// withPlannedTotals appends one synthetic "Total" planned row per category,
// so cross-month aggregate rows reconcile against the summed plan instead
// of appearing unplanned.
func withPlannedTotals(planned []core.BudgetEntry) []core.BudgetEntry {
	totals := make(map[string]decimal.Decimal)
	order := make([]string, 0)
	for _, p := range planned {
		if p.Month.IsTotal() {
			continue
		}
		if _, seen := totals[p.Category]; !seen {
			order = append(order, p.Category)
		}
		totals[p.Category] = totals[p.Category].Add(p.Planned)
	}

	out := make([]core.BudgetEntry, 0, len(planned)+len(order))
	out = append(out, planned...)
	for _, category := range order {
		out = append(out, core.BudgetEntry{
			Month:    core.TotalMonth,
			Category: category,
			Planned:  totals[category],
		})
	}
	return out
}

func distinctMonths(rows []core.ReconciledRow) []core.MonthID {
	seen := make(map[core.MonthID]struct{})
	months := make([]core.MonthID, 0)
	for _, r := range rows {
		if _, ok := seen[r.Month]; ok {
			continue
		}
		seen[r.Month] = struct{}{}
		months = append(months, r.Month)
	}
	return months
}
