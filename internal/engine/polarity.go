// Package engine implements the budget reconciliation and aggregation pass:
// grouping raw transactions, joining them against the planned budget,
// computing signed balances and percentage shares, and ordering the result
// for presentation.
//
// This file implements the balance polarity rules. Each polarity has its own
// rule that encapsulates which direction of variance counts as favorable.
package engine

import (
	"github.com/shopspring/decimal"
)

// Polarity classifies how a category's balance is signed.
type Polarity string

const (
	// IncomeLike categories (income, savings targets) treat exceeding the
	// plan as favorable: balance = actual - planned.
	IncomeLike Polarity = "income_like"
	// ExpenseLike categories treat exceeding the plan as unfavorable:
	// balance = planned - actual.
	ExpenseLike Polarity = "expense_like"
)

// BalanceRule computes the signed variance between a planned and an actual
// amount. Implementations must not round; the caller rounds the final value.
type BalanceRule interface {
	Balance(planned, actual decimal.Decimal) decimal.Decimal
}

type incomeRule struct{}

func (incomeRule) Balance(planned, actual decimal.Decimal) decimal.Decimal {
	return actual.Sub(planned)
}

type expenseRule struct{}

func (expenseRule) Balance(planned, actual decimal.Decimal) decimal.Decimal {
	return planned.Sub(actual)
}

// balanceRules maps polarities to their rules.
var balanceRules = map[Polarity]BalanceRule{
	IncomeLike:  incomeRule{},
	ExpenseLike: expenseRule{},
}

// RuleFor returns the balance rule for a polarity. Any unrecognized polarity
// falls back to the expense-like rule.
func RuleFor(p Polarity) BalanceRule {
	if rule, ok := balanceRules[p]; ok {
		return rule
	}
	return balanceRules[ExpenseLike]
}

// PolarityConfig is the fixed category-to-polarity mapping, supplied once at
// engine construction and immutable afterwards. Categories absent from both
// sets default to expense-like.
type PolarityConfig struct {
	incomeLike  map[string]struct{}
	expenseLike map[string]struct{}
}

// NewPolarityConfig builds a config from the explicitly classified category
// names for each polarity.
func NewPolarityConfig(incomeCategories, expenseCategories []string) PolarityConfig {
	cfg := PolarityConfig{
		incomeLike:  make(map[string]struct{}, len(incomeCategories)),
		expenseLike: make(map[string]struct{}, len(expenseCategories)),
	}
	for _, c := range incomeCategories {
		cfg.incomeLike[c] = struct{}{}
	}
	for _, c := range expenseCategories {
		cfg.expenseLike[c] = struct{}{}
	}
	return cfg
}

// Classify returns the polarity for a category and whether the category was
// explicitly configured. Unconfigured categories default to expense-like;
// the caller is expected to make that fallback observable.
func (c PolarityConfig) Classify(category string) (Polarity, bool) {
	if _, ok := c.incomeLike[category]; ok {
		return IncomeLike, true
	}
	if _, ok := c.expenseLike[category]; ok {
		return ExpenseLike, true
	}
	return ExpenseLike, false
}
