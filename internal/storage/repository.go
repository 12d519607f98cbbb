package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"financas/internal/core"

	_ "modernc.org/sqlite"
)

// ErrTransactionNotFound is returned by GetTransaction when no row exists
// for the requested ID.
var ErrTransactionNotFound = errors.New("transaction not found")

// SQLiteRepository is the system of record. Amounts are stored as exact
// decimal strings and parsed on the way out; a row with a malformed amount
// is a data error surfaced to the caller, never silently zeroed.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w: %v", core.ErrStoreUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w: %v", core.ErrStoreUnavailable, err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FetchPlannedBudget implements records.BudgetReader
func (r *SQLiteRepository) FetchPlannedBudget(ctx context.Context) ([]core.BudgetEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month_id, category, amount FROM planned_budget ORDER BY month_id, category`)
	if err != nil {
		return nil, fmt.Errorf("query planned budget: %w: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var entries []core.BudgetEntry
	for rows.Next() {
		var month, category, amount string
		if err := rows.Scan(&month, &category, &amount); err != nil {
			return nil, fmt.Errorf("scan planned budget row: %w: %v", core.ErrStoreUnavailable, err)
		}
		planned, err := core.ParseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("planned budget (%s, %q): %w", month, category, err)
		}
		entries = append(entries, core.BudgetEntry{
			Month:    core.MonthID(month),
			Category: category,
			Planned:  planned,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate planned budget: %w: %v", core.ErrStoreUnavailable, err)
	}

	return entries, nil
}

// FetchTransactions implements records.TransactionReader
func (r *SQLiteRepository) FetchTransactions(ctx context.Context, src core.Source) ([]core.TransactionRecord, error) {
	return r.queryTransactions(ctx, src,
		`SELECT month_id, category, amount, entry_date, description, extra
		 FROM transactions WHERE source = ? ORDER BY id`)
}

// FetchSyncedTransactions returns only the rows already mirrored to the
// ledger, for auditing the mirror against the store.
func (r *SQLiteRepository) FetchSyncedTransactions(ctx context.Context, src core.Source) ([]core.TransactionRecord, error) {
	return r.queryTransactions(ctx, src,
		`SELECT month_id, category, amount, entry_date, description, extra
		 FROM transactions WHERE source = ? AND synced = 1 ORDER BY id`)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, src core.Source, query string) ([]core.TransactionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, string(src))
	if err != nil {
		return nil, fmt.Errorf("query %s transactions: %w: %v", src, core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var records []core.TransactionRecord
	for rows.Next() {
		var month, category, amount, date, description, extra string
		if err := rows.Scan(&month, &category, &amount, &date, &description, &extra); err != nil {
			return nil, fmt.Errorf("scan %s transaction row: %w: %v", src, core.ErrStoreUnavailable, err)
		}
		parsed, err := core.ParseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("%s transaction (%s, %q): %w", src, month, category, err)
		}
		records = append(records, core.TransactionRecord{
			Month:       core.MonthID(month),
			Source:      src,
			Category:    category,
			Amount:      parsed,
			Date:        date,
			Description: description,
			Extra:       extra,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s transactions: %w: %v", src, core.ErrStoreUnavailable, err)
	}

	return records, nil
}

// AppendTransaction implements records.TransactionWriter
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.TransactionRecord) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (month_id, source, category, amount, entry_date, description, extra)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(t.Month), string(t.Source), t.Category, core.FormatAmount(t.Amount),
		t.Date, t.Description, t.Extra)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w: %v", core.ErrStoreUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("read transaction id: %w: %v", core.ErrStoreUnavailable, err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"source", t.Source,
		"month", t.Month,
		"category", t.Category,
		"amount", core.FormatAmount(t.Amount))

	return strconv.FormatInt(id, 10), nil
}

// AppendBudgetEntry implements records.BudgetWriter. A second planned amount
// for the same (month, category) is rejected with core.ErrAmbiguousKey.
func (r *SQLiteRepository) AppendBudgetEntry(ctx context.Context, b core.BudgetEntry) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO planned_budget (month_id, category, amount) VALUES (?, ?, ?)`,
		string(b.Month), b.Category, core.FormatAmount(b.Planned))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", fmt.Errorf("%w: planned budget for month %s category %q already exists",
				core.ErrAmbiguousKey, b.Month, b.Category)
		}
		return "", fmt.Errorf("insert planned budget: %w: %v", core.ErrStoreUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("read planned budget id: %w: %v", core.ErrStoreUnavailable, err)
	}

	slog.InfoContext(ctx, "Planned budget saved to SQLite",
		"id", id,
		"month", b.Month,
		"category", b.Category,
		"amount", core.FormatAmount(b.Planned))

	return strconv.FormatInt(id, 10), nil
}

// GetTransaction retrieves a single transaction by ID for sync processing.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.TransactionRecord, error) {
	var (
		t      core.TransactionRecord
		month  string
		source string
		amount string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT month_id, source, category, amount, entry_date, description, extra
		 FROM transactions WHERE id = ?`, id).
		Scan(&month, &source, &t.Category, &amount, &t.Date, &t.Description, &t.Extra)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TransactionRecord{}, fmt.Errorf("%w: id %d", ErrTransactionNotFound, id)
	}
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	t.Month = core.MonthID(month)
	t.Source = core.Source(source)
	t.Amount, err = core.ParseAmount(amount)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("transaction %d: %w", id, err)
	}
	return t, nil
}

// PendingSyncTransaction carries the minimal fields a sync queue message needs.
type PendingSyncTransaction struct {
	ID        int64
	Source    core.Source
	CreatedAt time.Time
}

// GetPendingSync returns transactions not yet mirrored to the ledger,
// oldest first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source, created_at FROM transactions
		 WHERE synced = 0 AND sync_error = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending sync: %w: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var pending []PendingSyncTransaction
	for rows.Next() {
		var (
			p       PendingSyncTransaction
			source  string
			created time.Time
		)
		if err := rows.Scan(&p.ID, &source, &created); err != nil {
			return nil, fmt.Errorf("scan pending sync row: %w: %v", core.ErrStoreUnavailable, err)
		}
		p.Source = core.Source(source)
		p.CreatedAt = created
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending sync: %w: %v", core.ErrStoreUnavailable, err)
	}

	return pending, nil
}

// MarkSynced marks a transaction as mirrored to the ledger.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET synced = 1, sync_error = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a transaction as having failed ledger sync.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}
