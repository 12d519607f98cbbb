package engine

import (
	"testing"

	"financas/internal/core"
)

func TestCategoryOrderSort(t *testing.T) {
	order := NewCategoryOrder([]string{"Necessidade", "Comida", "Outros"})

	rows := []core.ReconciledRow{
		{Month: "01_2024", Category: "Outros"},
		{Month: "01_2024", Category: "Necessidade"},
		{Month: "01_2024", Category: "Comida"},
	}
	order.Sort(rows)

	want := []string{"Necessidade", "Comida", "Outros"}
	for i, category := range want {
		if rows[i].Category != category {
			t.Errorf("position %d: got %q, want %q", i, rows[i].Category, category)
		}
	}
}

func TestCategoryOrderMonthsBeforeCategories(t *testing.T) {
	order := NewCategoryOrder([]string{"Necessidade", "Comida"})

	rows := []core.ReconciledRow{
		{Month: core.TotalMonth, Category: "Necessidade"},
		{Month: "02_2024", Category: "Necessidade"},
		{Month: "01_2024", Category: "Comida"},
		{Month: "01_2024", Category: "Necessidade"},
	}
	order.Sort(rows)

	type key struct {
		month    core.MonthID
		category string
	}
	want := []key{
		{"01_2024", "Necessidade"},
		{"01_2024", "Comida"},
		{"02_2024", "Necessidade"},
		{core.TotalMonth, "Necessidade"},
	}
	for i, w := range want {
		if rows[i].Month != w.month || rows[i].Category != w.category {
			t.Errorf("position %d: got (%s, %s), want (%s, %s)",
				i, rows[i].Month, rows[i].Category, w.month, w.category)
		}
	}
}

func TestCategoryOrderUnlistedAfterListedStable(t *testing.T) {
	order := NewCategoryOrder([]string{"Necessidade"})

	rows := []core.ReconciledRow{
		{Month: "01_2024", Category: "Zebra"},
		{Month: "01_2024", Category: "Alfa"},
		{Month: "01_2024", Category: "Necessidade"},
	}
	order.Sort(rows)

	want := []string{"Necessidade", "Zebra", "Alfa"}
	for i, category := range want {
		if rows[i].Category != category {
			t.Errorf("position %d: got %q, want %q", i, rows[i].Category, category)
		}
	}
}

func TestCategoryOrderSortShares(t *testing.T) {
	order := NewCategoryOrder([]string{"Comida", "Outros"})

	rows := []ActualShare{
		{Month: core.TotalMonth, Category: "Comida"},
		{Month: "01_2024", Category: "Outros"},
		{Month: "01_2024", Category: "Comida"},
	}
	order.SortShares(rows)

	if rows[0].Category != "Comida" || rows[0].Month != "01_2024" {
		t.Errorf("first row: got (%s, %s)", rows[0].Month, rows[0].Category)
	}
	if !rows[2].Month.IsTotal() {
		t.Errorf("last row should be Total, got %s", rows[2].Month)
	}
}
