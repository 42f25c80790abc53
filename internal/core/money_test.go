package core

import (
	"errors"
	"strings"
	"testing"
)

// Rounding to the cent is half away from zero.
func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true},
		{"1.004", 100, true},
		{"-1.005", -101, true},
		{"-12.345", -1235, true},
		{"0.005", 1, true},
		{"-0.005", -1, true},
		{" 2.50 ", 250, true},
		{"-65", -6500, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseLimit(t *testing.T) {
	got, err := ParseLimit("600")
	if err != nil || got.Cents != 60000 {
		t.Fatalf("expected 60000, got %d (err=%v)", got.Cents, err)
	}
	if _, err := ParseLimit("-1"); !errors.Is(err, ErrNegativeLimit) {
		t.Fatalf("expected ErrNegativeLimit, got %v", err)
	}
}

func TestParseAmountBounds(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"1000000000000", 100000000000000, true},
		{"-1000000000000", -100000000000000, true},
		{"1000000000000.01", 0, false},
		{"5000000000000000", 0, false},
		{"10000000000000000", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok != (err == nil) || got.Cents != tc.cents {
			t.Fatalf("%q expected %d (ok=%v), got %d (err=%v)", tc.in, tc.cents, tc.ok, got.Cents, err)
		}
	}
	if _, err := ParseLimit("10000000000000000"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected oversized limit to be rejected, got %v", err)
	}
}

func TestFormatCentsEnglish(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{123450, "$1,234.50"},
		{-1234, "-$12.34"},
		{0, "$0.00"},
		{5, "$0.05"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.cents, "USD", "en-US"); got != tc.want {
			t.Fatalf("%d expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}

func TestFormatCentsFrench(t *testing.T) {
	got := FormatCents(-1234, "CAD", "fr-CA")
	if !strings.HasPrefix(got, "-") {
		t.Fatalf("negative amount lost its sign: %q", got)
	}
	if !strings.Contains(got, "12,34") {
		t.Fatalf("expected comma decimal separator, got %q", got)
	}
	if !strings.HasSuffix(got, " $") {
		t.Fatalf("expected trailing symbol, got %q", got)
	}
}

func TestFormatCentsUsesLocaleSymbol(t *testing.T) {
	got := FormatCents(-123456, "SEK", "sv-SE")
	if !strings.HasPrefix(got, "-") || !strings.HasSuffix(got, "\u00a0kr") {
		t.Fatalf("expected a trailing kr symbol, got %q", got)
	}
	if strings.Contains(got, "SEK") {
		t.Fatalf("ISO code leaked into %q", got)
	}
	if got := FormatCents(-500, "EUR", "fr-FR"); !strings.HasSuffix(got, "\u00a0€") {
		t.Fatalf("expected a trailing euro sign, got %q", got)
	}
}

func TestNewMoneyFormatterRejectsUnknown(t *testing.T) {
	if _, err := NewMoneyFormatter("XXXX", "en"); err == nil {
		t.Fatal("expected error for invalid currency")
	}
	if got := FormatCents(100, "XXXX", "en"); !strings.Contains(got, "1.00") {
		t.Fatalf("fallback should still render the amount, got %q", got)
	}
}
