package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Debit      Source = "debit"
	Credit     Source = "credit"
	Voucher    Source = "voucher"
	Fixed      Source = "fixed"
	Income     Source = "income"
	Investment Source = "investment"
	Loan       Source = "loan"
)

// TotalMonth is the synthetic month identifier for cross-month aggregates.
const TotalMonth MonthID = "Total"

type (
	// Source identifies where a transaction was recorded.
	Source string

	// MonthID is a month identifier in MM_YYYY form (e.g. "01_2024"),
	// or the synthetic literal "Total".
	MonthID string

	// BudgetEntry is one planned amount for a (month, category) pair.
	BudgetEntry struct {
		Month    MonthID
		Category string
		Planned  decimal.Decimal
	}

	// TransactionRecord is a single recorded transaction. Date, Description
	// and Extra carry source-specific detail and do not affect aggregation.
	TransactionRecord struct {
		Month       MonthID
		Source      Source
		Category    string
		Amount      decimal.Decimal
		Date        string
		Description string
		Extra       string // card for credit, recipient for loans, place for voucher
	}

	// AggregatedActual is the summed actual spending for one (month, category).
	AggregatedActual struct {
		Month    MonthID
		Category string
		Total    decimal.Decimal
	}

	// ReconciledRow joins a planned amount with aggregated actuals for one
	// (month, category) key. HasPlanned/HasActual record which sides of the
	// outer join were present; a missing side contributes zero to Balance.
	ReconciledRow struct {
		Month      MonthID
		Category   string
		Planned    decimal.Decimal
		Actual     decimal.Decimal
		Balance    decimal.Decimal
		Percentage decimal.Decimal
		HasPlanned bool
		HasActual  bool
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidMonth     = errors.New("invalid month identifier")
	ErrUnknownSource    = errors.New("unknown transaction source")
	ErrAmbiguousKey     = errors.New("ambiguous planned budget key")
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrEmptyCategory    = errors.New("empty category")
)

// Sources lists every transaction source in a fixed order.
func Sources() []Source {
	return []Source{Debit, Credit, Voucher, Fixed, Income, Investment, Loan}
}

// ParseSource validates a raw source name.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	if !src.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
	return src, nil
}

func (s Source) IsValid() bool {
	switch s {
	case Debit, Credit, Voucher, Fixed, Income, Investment, Loan:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer
func (s Source) String() string {
	return string(s)
}

// ParseMonthID validates a raw month identifier. The only accepted forms are
// MM_YYYY and the literal "Total".
func ParseMonthID(s string) (MonthID, error) {
	m := MonthID(strings.TrimSpace(s))
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

func (m MonthID) Validate() error {
	if m == TotalMonth {
		return nil
	}
	if len(m) != 7 || m[2] != '_' {
		return fmt.Errorf("%w: %q", ErrInvalidMonth, string(m))
	}
	if _, err := time.Parse("01_2006", string(m)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMonth, string(m))
	}
	return nil
}

// IsTotal reports whether this is the synthetic cross-month identifier.
func (m MonthID) IsTotal() bool {
	return m == TotalMonth
}

// Time returns the first day of the month. The zero time is returned for the
// synthetic "Total" identifier, which never enters chronology directly.
func (m MonthID) Time() time.Time {
	t, err := time.Parse("01_2006", string(m))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Before orders months chronologically with "Total" after every real month.
func (m MonthID) Before(other MonthID) bool {
	if m.IsTotal() {
		return false
	}
	if other.IsTotal() {
		return true
	}
	return m.Time().Before(other.Time())
}

// Next returns the identifier of the following calendar month. Used when
// splitting a credit purchase into installments.
func (m MonthID) Next() MonthID {
	t := m.Time()
	if t.IsZero() {
		return m
	}
	return MonthID(t.AddDate(0, 1, 0).Format("01_2006"))
}

func (b BudgetEntry) Validate() error {
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if b.Month.IsTotal() {
		return fmt.Errorf("%w: planned budget cannot target %q", ErrInvalidMonth, TotalMonth)
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (t TransactionRecord) Validate() error {
	if err := t.Month.Validate(); err != nil {
		return err
	}
	if t.Month.IsTotal() {
		return fmt.Errorf("%w: transaction cannot target %q", ErrInvalidMonth, TotalMonth)
	}
	if !t.Source.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownSource, string(t.Source))
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
