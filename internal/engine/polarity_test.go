package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRuleForBalanceDirection(t *testing.T) {
	planned := decimal.NewFromInt(100)
	actual := decimal.NewFromInt(80)

	if got := RuleFor(IncomeLike).Balance(planned, actual); got.String() != "-20" {
		t.Errorf("income-like: got %s, want -20", got)
	}
	if got := RuleFor(ExpenseLike).Balance(planned, actual); got.String() != "20" {
		t.Errorf("expense-like: got %s, want 20", got)
	}
}

func TestRuleForUnknownPolarityFallsBack(t *testing.T) {
	planned := decimal.NewFromInt(10)
	actual := decimal.NewFromInt(4)

	got := RuleFor(Polarity("sideways")).Balance(planned, actual)
	if got.String() != "6" {
		t.Errorf("got %s, want expense-like 6", got)
	}
}

func TestPolarityConfigClassify(t *testing.T) {
	cfg := NewPolarityConfig([]string{"Renda"}, []string{"Comida"})

	tests := []struct {
		category  string
		want      Polarity
		wantKnown bool
	}{
		{"Renda", IncomeLike, true},
		{"Comida", ExpenseLike, true},
		{"Imprevisto", ExpenseLike, false},
	}
	for _, tt := range tests {
		got, known := cfg.Classify(tt.category)
		if got != tt.want || known != tt.wantKnown {
			t.Errorf("Classify(%q): got (%s, %v), want (%s, %v)",
				tt.category, got, known, tt.want, tt.wantKnown)
		}
	}
}
