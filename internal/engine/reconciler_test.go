package engine

import (
	"errors"
	"testing"

	"financas/internal/core"
)

func testPolarity() PolarityConfig {
	return NewPolarityConfig(
		[]string{"Renda", "Juntar"},
		[]string{"Necessidade", "Comida", "Outros"},
	)
}

func findRow(t *testing.T, rows []core.ReconciledRow, month, category string) core.ReconciledRow {
	t.Helper()
	for _, r := range rows {
		if r.Month == core.MonthID(month) && r.Category == category {
			return r
		}
	}
	t.Fatalf("no row for (%s, %s)", month, category)
	return core.ReconciledRow{}
}

func TestReconcileBalancePolarity(t *testing.T) {
	r := NewReconciler(testPolarity())

	planned := []core.BudgetEntry{
		{Month: "01_2024", Category: "Necessidade", Planned: dec(t, "100.00")},
		{Month: "01_2024", Category: "Renda", Planned: dec(t, "100.00")},
	}
	actuals := []core.AggregatedActual{
		{Month: "01_2024", Category: "Necessidade", Total: dec(t, "80.00")},
		{Month: "01_2024", Category: "Renda", Total: dec(t, "80.00")},
	}

	rows, err := r.Reconcile(planned, actuals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expense := findRow(t, rows, "01_2024", "Necessidade")
	if !expense.Balance.Equal(dec(t, "20.00")) {
		t.Errorf("expense-like balance: got %s, want 20.00", expense.Balance)
	}
	income := findRow(t, rows, "01_2024", "Renda")
	if !income.Balance.Equal(dec(t, "-20.00")) {
		t.Errorf("income-like balance: got %s, want -20.00", income.Balance)
	}
}

func TestReconcileOuterJoin(t *testing.T) {
	r := NewReconciler(testPolarity())

	planned := []core.BudgetEntry{
		{Month: "01_2024", Category: "Casa", Planned: dec(t, "500.00")},
	}
	actuals := []core.AggregatedActual{
		{Month: "01_2024", Category: "Comida", Total: dec(t, "42.00")},
	}

	rows, err := r.Reconcile(planned, actuals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	plannedOnly := findRow(t, rows, "01_2024", "Casa")
	if !plannedOnly.HasPlanned || plannedOnly.HasActual {
		t.Errorf("Casa: got HasPlanned=%v HasActual=%v", plannedOnly.HasPlanned, plannedOnly.HasActual)
	}
	if !plannedOnly.Balance.Equal(dec(t, "500.00")) {
		t.Errorf("Casa balance: got %s, want 500.00", plannedOnly.Balance)
	}

	actualOnly := findRow(t, rows, "01_2024", "Comida")
	if actualOnly.HasPlanned || !actualOnly.HasActual {
		t.Errorf("Comida: got HasPlanned=%v HasActual=%v", actualOnly.HasPlanned, actualOnly.HasActual)
	}
	if !actualOnly.Balance.Equal(dec(t, "-42.00")) {
		t.Errorf("Comida balance: got %s, want -42.00", actualOnly.Balance)
	}
}

func TestReconcileDuplicatePlannedKey(t *testing.T) {
	r := NewReconciler(testPolarity())

	planned := []core.BudgetEntry{
		{Month: "01_2024", Category: "Comida", Planned: dec(t, "100.00")},
		{Month: "01_2024", Category: "Comida", Planned: dec(t, "200.00")},
	}

	_, err := r.Reconcile(planned, nil)
	if !errors.Is(err, core.ErrAmbiguousKey) {
		t.Fatalf("expected ErrAmbiguousKey, got %v", err)
	}
}

func TestReconcileUnknownCategoryDefaultsToExpense(t *testing.T) {
	r := NewReconciler(testPolarity())

	planned := []core.BudgetEntry{
		{Month: "01_2024", Category: "Imprevisto", Planned: dec(t, "50.00")},
	}
	actuals := []core.AggregatedActual{
		{Month: "01_2024", Category: "Imprevisto", Total: dec(t, "70.00")},
	}

	rows, err := r.Reconcile(planned, actuals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := findRow(t, rows, "01_2024", "Imprevisto")
	if !row.Balance.Equal(dec(t, "-20.00")) {
		t.Errorf("got balance %s, want -20.00", row.Balance)
	}
}

func TestReconcileRoundsBalance(t *testing.T) {
	r := NewReconciler(testPolarity())

	planned := []core.BudgetEntry{
		{Month: "01_2024", Category: "Comida", Planned: dec(t, "100.005")},
	}
	actuals := []core.AggregatedActual{
		{Month: "01_2024", Category: "Comida", Total: dec(t, "50.001")},
	}

	rows, err := r.Reconcile(planned, actuals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := findRow(t, rows, "01_2024", "Comida")
	if row.Balance.String() != "50" {
		t.Errorf("got balance %s, want 50", row.Balance)
	}
}

func TestReconcileDeterministicOrder(t *testing.T) {
	r := NewReconciler(testPolarity())

	planned := []core.BudgetEntry{
		{Month: "02_2024", Category: "Comida", Planned: dec(t, "1.00")},
		{Month: "01_2024", Category: "Outros", Planned: dec(t, "1.00")},
		{Month: "01_2024", Category: "Comida", Planned: dec(t, "1.00")},
	}

	first, err := r.Reconcile(planned, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Reconcile(planned, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first {
		if first[i].Month != second[i].Month || first[i].Category != second[i].Category {
			t.Fatalf("row %d differs between passes: (%s, %s) vs (%s, %s)",
				i, first[i].Month, first[i].Category, second[i].Month, second[i].Category)
		}
	}
	if first[0].Month != "01_2024" || first[0].Category != "Comida" {
		t.Errorf("expected (01_2024, Comida) first, got (%s, %s)", first[0].Month, first[0].Category)
	}
}
