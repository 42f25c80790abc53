package core

import (
	"strings"
	"time"
)

const (
	SourceManual TransactionSource = "manual"
	SourceImport TransactionSource = "import"
)

const dateLayout = "2006-01-02"

type (
	TransactionSource string

	// Date is a calendar day. Only year, month and day are meaningful.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Category struct {
		ID       string
		Name     string
		ColorHex string // "#rrggbb", empty when unset
	}

	Transaction struct {
		ID          string
		Date        Date
		Amount      Money // positive income, negative expense
		Description string
		CategoryID  string // empty when uncategorized
		Source      TransactionSource
		CreatedAt   time.Time
	}

	Budget struct {
		ID         string
		Year       int
		Month      int // 1-12
		CategoryID string
		Limit      Money
	}

	// BudgetWithCategory is a budget row with its category joined.
	BudgetWithCategory struct {
		Budget
		CategoryName  string
		CategoryColor string
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO calendar day (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// YearMonth returns the month the date falls in.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: int(d.Month())}
}

// Before reports whether d is an earlier day than o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is a later day than o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

func (m Money) IsIncome() bool  { return m.Cents > 0 }
func (m Money) IsExpense() bool { return m.Cents < 0 }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// Major returns the amount in major currency units for display purposes.
// Use cents for calculations.
func (m Money) Major() float64 {
	return float64(m.Cents) / 100.0
}

// Key returns the aggregation bucket of the transaction.
func (t Transaction) Key() CategoryKey {
	return CategoryKeyOf(t.CategoryID)
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	if t.Amount.Cents == 0 {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if len(t.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Err: ErrDescriptionTooLong}
	}
	switch t.Source {
	case SourceManual, SourceImport:
	default:
		return &ValidationError{Field: "source", Err: ErrInvalidSource}
	}
	return nil
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return &ValidationError{Field: "name", Err: ErrEmptyName}
	}
	if len(name) > MaxNameLength {
		return &ValidationError{Field: "name", Err: ErrNameTooLong}
	}
	if c.ColorHex != "" && !IsColorHex(c.ColorHex) {
		return &ValidationError{Field: "colorHex", Err: ErrInvalidColor}
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Month < 1 || b.Month > 12 {
		return &ValidationError{Field: "month", Err: ErrInvalidMonth}
	}
	if b.Year < 1 {
		return &ValidationError{Field: "year", Err: ErrInvalidYear}
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return &ValidationError{Field: "categoryId", Err: ErrEmptyCategory}
	}
	if b.Limit.Cents < 0 {
		return &ValidationError{Field: "limit", Err: ErrNegativeLimit}
	}
	return nil
}

// YearMonth returns the budget key of b.
func (b Budget) YearMonth() YearMonth {
	return YearMonth{Year: b.Year, Month: b.Month}
}

// IsColorHex reports whether s is a #rgb or #rrggbb colour.
func IsColorHex(s string) bool {
	if len(s) != 4 && len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
