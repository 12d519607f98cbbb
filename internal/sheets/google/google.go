package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"financas/internal/core"
	ports "financas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client appends transaction and budget rows to one spreadsheet, one
// worksheet per source. Row layout per worksheet: month, category, amount,
// date, description, extra.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sourceSheets  map[core.Source]string
	budgetSheet   string
}

// Ensure interface conformance
var (
	_ ports.LedgerWriter = (*Client)(nil)
	_ ports.LedgerReader = (*Client)(nil)
)

var defaultSourceSheets = map[core.Source]string{
	core.Debit:      "Débito",
	core.Credit:     "Crédito",
	core.Voucher:    "Vale",
	core.Fixed:      "Fixos",
	core.Income:     "Renda",
	core.Investment: "Investimentos",
	core.Loan:       "Empréstimos",
}

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional worksheet overrides: GOOGLE_SHEET_<SOURCE> (e.g. GOOGLE_SHEET_DEBIT)
// and GOOGLE_BUDGET_SHEET_NAME (default "Orçamento").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheets := make(map[core.Source]string, len(defaultSourceSheets))
	for src, name := range defaultSourceSheets {
		envKey := "GOOGLE_SHEET_" + strings.ToUpper(string(src))
		if override := strings.TrimSpace(os.Getenv(envKey)); override != "" {
			name = override
		}
		sheets[src] = name
	}

	budgetSheet := strings.TrimSpace(os.Getenv("GOOGLE_BUDGET_SHEET_NAME"))
	if budgetSheet == "" {
		budgetSheet = "Orçamento"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sourceSheets:  sheets,
		budgetSheet:   budgetSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

func (c *Client) sheetFor(src core.Source) (string, error) {
	name, ok := c.sourceSheets[src]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnknownSource, string(src))
	}
	return name, nil
}

// AppendTransaction implements ports.LedgerWriter
func (c *Client) AppendTransaction(ctx context.Context, t core.TransactionRecord) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet, err := c.sheetFor(t.Source)
	if err != nil {
		return "", err
	}

	row := []any{string(t.Month), t.Category, core.FormatAmount(t.Amount), t.Date, t.Description, t.Extra}
	return c.appendRow(ctx, sheet, row, "F")
}

// AppendBudgetEntry implements ports.LedgerWriter
func (c *Client) AppendBudgetEntry(ctx context.Context, b core.BudgetEntry) (string, error) {
	if err := b.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row := []any{string(b.Month), b.Category, core.FormatAmount(b.Planned)}
	return c.appendRow(ctx, c.budgetSheet, row, "C")
}

// appendRow finds the next empty row from the sheet dimensions and writes
// the values there.
func (c *Client) appendRow(ctx context.Context, sheet string, values []any, lastCol string) (string, error) {
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", sheet, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:%s%d", sheet, nextRow, lastCol, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	return dataRange, nil
}

// ReadTransactions implements ports.LedgerReader. Rows with a malformed
// amount are skipped with a warning: the ledger is a mirror and may carry
// hand-edited cells.
func (c *Client) ReadTransactions(ctx context.Context, src core.Source) ([]core.TransactionRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	sheet, err := c.sheetFor(src)
	if err != nil {
		return nil, err
	}

	rng := fmt.Sprintf("%s!A2:F", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	return recordsFromValues(ctx, sheet, src, resp.Values), nil
}

func recordsFromValues(ctx context.Context, sheet string, src core.Source, values [][]interface{}) []core.TransactionRecord {
	var records []core.TransactionRecord
	for i, row := range values {
		if len(row) < 3 {
			continue
		}
		cell := func(idx int) string {
			if idx < len(row) {
				return strings.TrimSpace(fmt.Sprint(row[idx]))
			}
			return ""
		}

		month, err := core.ParseMonthID(cell(0))
		if err != nil || month.IsTotal() {
			slog.WarnContext(ctx, "Skipping ledger row with bad month",
				"sheet", sheet, "row", i+2, "value", cell(0))
			continue
		}
		amount, err := core.ParseAmount(cell(2))
		if err != nil {
			slog.WarnContext(ctx, "Skipping ledger row with bad amount",
				"sheet", sheet, "row", i+2, "value", cell(2))
			continue
		}

		records = append(records, core.TransactionRecord{
			Month:       month,
			Source:      src,
			Category:    cell(1),
			Amount:      amount,
			Date:        cell(3),
			Description: cell(4),
			Extra:       cell(5),
		})
	}

	return records
}
