package records

import (
	"context"

	"financas/internal/core"
)

// Ports for the Record Store. The reconciliation engine consumes the read
// side; data-entry handlers consume the write side.
type (
	BudgetReader interface {
		// FetchPlannedBudget returns every planned budget row. A failing
		// backend must surface core.ErrStoreUnavailable, never empty data.
		FetchPlannedBudget(ctx context.Context) ([]core.BudgetEntry, error)
	}

	TransactionReader interface {
		// FetchTransactions returns all recorded transactions for one source.
		FetchTransactions(ctx context.Context, src core.Source) ([]core.TransactionRecord, error)
	}

	// Store is the read view a reconciliation pass needs.
	Store interface {
		BudgetReader
		TransactionReader
	}

	TransactionWriter interface {
		AppendTransaction(ctx context.Context, t core.TransactionRecord) (rowRef string, err error)
	}

	BudgetWriter interface {
		AppendBudgetEntry(ctx context.Context, b core.BudgetEntry) (rowRef string, err error)
	}
)
