// Package core holds the domain types shared by every layer: months,
// sources, budget and transaction records, and their amounts.
//
// Monetary amounts are exact decimals end to end (shopspring/decimal): many
// small transactions are summed during aggregation and binary floating point
// would drift. A malformed amount is always a hard error; reconciliation
// never substitutes defaults for missing values.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a raw amount string to an exact decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Empty or non-numeric input returns ErrInvalidAmount; callers are expected
// to surface the offending record rather than coerce or drop it.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// ParsePositiveAmount is ParseAmount restricted to values greater than zero.
// Data-entry forms use it; stored records may legitimately carry any sign.
func ParsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q is not positive", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatAmount renders a decimal with exactly two fractional digits, the
// form used for storage and API output.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
