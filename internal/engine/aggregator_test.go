package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func txn(t *testing.T, month, category, amount string) core.TransactionRecord {
	t.Helper()
	return core.TransactionRecord{
		Month:    core.MonthID(month),
		Source:   core.Debit,
		Category: category,
		Amount:   dec(t, amount),
	}
}

func TestAggregateGroupsByMonthAndCategory(t *testing.T) {
	records := []core.TransactionRecord{
		txn(t, "01_2024", "Comida", "10.50"),
		txn(t, "01_2024", "Comida", "4.50"),
		txn(t, "01_2024", "Outros", "3.00"),
		txn(t, "02_2024", "Comida", "20.00"),
	}

	got := Aggregate(records)
	want := []core.AggregatedActual{
		{Month: "01_2024", Category: "Comida", Total: dec(t, "15.00")},
		{Month: "01_2024", Category: "Outros", Total: dec(t, "3.00")},
		{Month: "02_2024", Category: "Comida", Total: dec(t, "20.00")},
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Month != want[i].Month || got[i].Category != want[i].Category {
			t.Errorf("row %d: got key (%s, %s), want (%s, %s)",
				i, got[i].Month, got[i].Category, want[i].Month, want[i].Category)
		}
		if !got[i].Total.Equal(want[i].Total) {
			t.Errorf("row %d: got total %s, want %s", i, got[i].Total, want[i].Total)
		}
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	if got := Aggregate(nil); len(got) != 0 {
		t.Fatalf("expected no rows, got %d", len(got))
	}
}

func TestAggregateSumsExactly(t *testing.T) {
	records := make([]core.TransactionRecord, 0, 1000)
	for i := 0; i < 1000; i++ {
		records = append(records, txn(t, "01_2024", "Comida", "0.10"))
	}
	got := Aggregate(records)
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].Total.String() != "100" {
		t.Fatalf("expected exact total 100, got %s", got[0].Total)
	}
}

func TestWithTotalsSumsAcrossMonths(t *testing.T) {
	rows := []core.AggregatedActual{
		{Month: "01_2024", Category: "Comida", Total: dec(t, "15.00")},
		{Month: "02_2024", Category: "Comida", Total: dec(t, "20.00")},
		{Month: "01_2024", Category: "Outros", Total: dec(t, "3.00")},
	}

	got := WithTotals(rows)
	if len(got) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(got))
	}

	totals := map[string]decimal.Decimal{}
	for _, r := range got {
		if r.Month.IsTotal() {
			totals[r.Category] = r.Total
		}
	}
	if !totals["Comida"].Equal(dec(t, "35.00")) {
		t.Errorf("Comida total: got %s, want 35.00", totals["Comida"])
	}
	if !totals["Outros"].Equal(dec(t, "3.00")) {
		t.Errorf("Outros total: got %s, want 3.00", totals["Outros"])
	}
}

func TestWithTotalsIgnoresExistingTotalRows(t *testing.T) {
	rows := []core.AggregatedActual{
		{Month: "01_2024", Category: "Comida", Total: dec(t, "15.00")},
		{Month: core.TotalMonth, Category: "Comida", Total: dec(t, "999.00")},
	}

	got := WithTotals(rows)
	count := 0
	for _, r := range got {
		if r.Month.IsTotal() && r.Category == "Comida" && r.Total.Equal(dec(t, "15.00")) {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one freshly computed Total row, got %d", count)
	}
}
