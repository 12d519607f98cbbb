package sheets

import (
	"context"

	"financas/internal/core"
)

// Ports for the append-log ledger. The worker mirrors every stored
// transaction here; the ledger is never the system of record.
type (
	LedgerWriter interface {
		AppendTransaction(ctx context.Context, t core.TransactionRecord) (rowRef string, err error)
		AppendBudgetEntry(ctx context.Context, b core.BudgetEntry) (rowRef string, err error)
	}

	// LedgerReader reads rows back from a source's worksheet, for audits
	// against the relational store.
	LedgerReader interface {
		ReadTransactions(ctx context.Context, src core.Source) ([]core.TransactionRecord, error)
	}
)
