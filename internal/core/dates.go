package core

import (
	"fmt"
	"strings"
	"time"
)

// YearMonth is the budget key of a calendar month.
type YearMonth struct {
	Year  int
	Month int // 1-12
}

// StartOfMonth returns 00:00:00.000 of the first day of ref's month, in ref's location.
func StartOfMonth(ref time.Time) time.Time {
	y, m, _ := ref.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, ref.Location())
}

// EndOfMonth returns 23:59:59.999 of the last day of ref's month, in ref's location.
func EndOfMonth(ref time.Time) time.Time {
	y, m, _ := ref.Date()
	// day 0 of the next month normalizes to the last day of this one
	return time.Date(y, m+1, 0, 23, 59, 59, int(999*time.Millisecond), ref.Location())
}

func CurrentYearMonth(ref time.Time) YearMonth {
	y, m, _ := ref.Date()
	return YearMonth{Year: y, Month: int(m)}
}

// ParseYearMonth accepts "2006-01".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, ErrInvalidMonth
	}
	return CurrentYearMonth(t), nil
}

func (ym YearMonth) Valid() bool {
	return ym.Year > 0 && ym.Month >= 1 && ym.Month <= 12
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// Time returns the first instant of the month in loc.
func (ym YearMonth) Time(loc *time.Location) time.Time {
	return time.Date(ym.Year, time.Month(ym.Month), 1, 0, 0, 0, 0, loc)
}

// Range returns the first and last calendar day of the month, inclusive.
func (ym YearMonth) Range() (from, to Date) {
	start := ym.Time(time.UTC)
	return DateOf(StartOfMonth(start)), DateOf(EndOfMonth(start))
}

func (ym YearMonth) Prev() YearMonth {
	return CurrentYearMonth(ym.Time(time.UTC).AddDate(0, -1, 0))
}

func (ym YearMonth) Next() YearMonth {
	return CurrentYearMonth(ym.Time(time.UTC).AddDate(0, 1, 0))
}
