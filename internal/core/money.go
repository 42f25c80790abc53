// Package core provides money parsing and handling utilities.
//
// Amounts live as integer cents everywhere. Conversion to and from major
// units happens only at the input and display boundaries.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MaxMajorAmount bounds a single amount at one trillion major units, so
// month and ledger sums stay well inside int64 cents.
var MaxMajorAmount = decimal.New(1, 12)

// ParseAmount converts a signed major-unit string to cents.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. The
// value is rounded to the cent half away from zero:
//
//	ParseAmount("12.345")  -> 1235
//	ParseAmount("-12.345") -> -1235
//	ParseAmount("12.344")  -> 1234
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.Abs().GreaterThan(MaxMajorAmount) {
		return Money{}, ErrInvalidAmount
	}
	// decimal.Round rounds half away from zero; RoundBank would be half-even.
	return Money{Cents: d.Shift(2).Round(0).IntPart()}, nil
}

// ParseLimit is ParseAmount restricted to non-negative values.
func ParseLimit(s string) (Money, error) {
	m, err := ParseAmount(s)
	if err != nil {
		return Money{}, err
	}
	if m.Cents < 0 {
		return Money{}, ErrNegativeLimit
	}
	return m, nil
}

// Languages that write the symbol after the amount, separated by a no-break space.
var suffixLanguages = map[string]bool{
	"fr": true, "de": true, "es": true, "it": true, "pt": true,
	"nl": true, "sv": true, "fi": true, "pl": true, "cs": true,
}

// MoneyFormatter renders cents in one currency and locale.
type MoneyFormatter struct {
	printer *message.Printer
	scale   int
	symbol  string
	suffix  bool
}

func NewMoneyFormatter(currencyCode, locale string) (*MoneyFormatter, error) {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, err
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, err
	}
	scale, _ := currency.Standard.Rounding(unit)
	printer := message.NewPrinter(tag)
	base, _ := tag.Base()
	return &MoneyFormatter{
		printer: printer,
		scale:   scale,
		symbol:  printer.Sprint(currency.NarrowSymbol(unit)),
		suffix:  suffixLanguages[base.String()],
	}, nil
}

// Format divides by 100 and renders the value with the locale's grouping and
// decimal separator. The sign is never dropped.
func (f *MoneyFormatter) Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
	}
	major := Money{Cents: cents}.Abs().Major()
	digits := f.printer.Sprint(number.Decimal(major, number.Scale(f.scale)))
	if f.suffix {
		return sign + digits + "\u00a0" + f.symbol
	}
	return sign + f.symbol + digits
}

// FormatCents is a one-shot Format. Unknown currencies or locales fall back
// to a plain two-decimal rendering with the given currency code.
func FormatCents(cents int64, currencyCode, locale string) string {
	f, err := NewMoneyFormatter(currencyCode, locale)
	if err != nil {
		f = &MoneyFormatter{
			printer: message.NewPrinter(language.English),
			scale:   2,
			symbol:  strings.ToUpper(currencyCode) + " ",
		}
	}
	return f.Format(cents)
}
