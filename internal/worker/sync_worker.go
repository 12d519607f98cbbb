package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/sheets"
	"financas/internal/storage"
)

// SyncWorker mirrors stored transactions to the Google Sheets ledger.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	ledger    sheets.LedgerWriter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, ledger sheets.LedgerWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"source", msg.Source)

	txn, err := w.storage.GetTransaction(ctx, msg.ID)
	if errors.Is(err, storage.ErrTransactionNotFound) {
		// The row was deleted after the message was published. Requeueing
		// would spin forever, so drop the message.
		slog.WarnContext(ctx, "Dropping sync message for missing transaction",
			"id", msg.ID,
			"source", msg.Source)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.syncToLedger(ctx, msg.ID, txn); err != nil {
		return fmt.Errorf("sync transaction to ledger: %w", err)
	}

	return nil
}

func (w *SyncWorker) syncToLedger(ctx context.Context, id int64, txn core.TransactionRecord) error {
	rowRef, err := w.ledger.AppendTransaction(ctx, txn)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction mirrored to ledger",
		"id", id,
		"source", txn.Source,
		"row_ref", rowRef)

	return nil
}

// ProcessPending mirrors transactions that never got a sync message. This is
// a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		txn, err := w.storage.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.syncToLedger(ctx, p.ID, txn); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains the pending backlog once at worker startup, to
// recover from missed messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, p := range pending {
		txn, err := w.storage.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction for startup sync",
				"id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.syncToLedger(ctx, p.ID, txn); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction on startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync check complete",
		"synced", successCount,
		"errors", errorCount)

	return nil
}

// LedgerDrift is one (month, category) pair whose summed amount in the
// ledger disagrees with the relational store.
type LedgerDrift struct {
	Source      core.Source
	Month       core.MonthID
	Category    string
	StoreTotal  decimal.Decimal
	LedgerTotal decimal.Decimal
}

// AuditLedger compares the mirrored ledger against the store for one source.
// Totals are compared per (month, category); a pair present on only one side
// counts as drift with a zero total on the other. Only rows the store has
// marked as synced participate, so a fresh unmirrored write is not drift.
func (w *SyncWorker) AuditLedger(ctx context.Context, reader sheets.LedgerReader, src core.Source) ([]LedgerDrift, error) {
	stored, err := w.storage.FetchSyncedTransactions(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch synced %s transactions: %w", src, err)
	}
	mirrored, err := reader.ReadTransactions(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("read %s ledger rows: %w", src, err)
	}

	type key struct {
		month    core.MonthID
		category string
	}
	storeTotals := make(map[key]decimal.Decimal)
	for _, t := range stored {
		k := key{t.Month, t.Category}
		storeTotals[k] = storeTotals[k].Add(t.Amount)
	}
	ledgerTotals := make(map[key]decimal.Decimal)
	for _, t := range mirrored {
		k := key{t.Month, t.Category}
		ledgerTotals[k] = ledgerTotals[k].Add(t.Amount)
	}

	seen := make(map[key]struct{}, len(storeTotals))
	keys := make([]key, 0, len(storeTotals))
	for k := range storeTotals {
		keys = append(keys, k)
		seen[k] = struct{}{}
	}
	for k := range ledgerTotals {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].month != keys[j].month {
			return keys[i].month.Before(keys[j].month)
		}
		return keys[i].category < keys[j].category
	})

	var drift []LedgerDrift
	for _, k := range keys {
		storeTotal := storeTotals[k]
		ledgerTotal := ledgerTotals[k]
		if storeTotal.Equal(ledgerTotal) {
			continue
		}
		drift = append(drift, LedgerDrift{
			Source:      src,
			Month:       k.month,
			Category:    k.category,
			StoreTotal:  storeTotal,
			LedgerTotal: ledgerTotal,
		})
		slog.WarnContext(ctx, "Ledger total disagrees with store",
			"source", src,
			"month", k.month,
			"category", k.category,
			"store_total", core.FormatAmount(storeTotal),
			"ledger_total", core.FormatAmount(ledgerTotal))
	}

	slog.InfoContext(ctx, "Ledger audit complete",
		"source", src,
		"drift_pairs", len(drift))

	return drift, nil
}

// RunPeriodic runs ProcessPending on a fixed interval until the context ends.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic pending sync failed", "error", err)
			}
		}
	}
}
