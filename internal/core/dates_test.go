package core

import (
	"testing"
	"time"
)

func TestMonthBounds(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	cases := []struct {
		name      string
		ref       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "mid month",
			ref:       time.Date(2024, 3, 15, 13, 45, 0, 0, loc),
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 3, 31, 23, 59, 59, 999000000, loc),
		},
		{
			name:      "leap february",
			ref:       time.Date(2024, 2, 10, 0, 0, 0, 0, loc),
			wantStart: time.Date(2024, 2, 1, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 2, 29, 23, 59, 59, 999000000, loc),
		},
		{
			name:      "non leap february",
			ref:       time.Date(2023, 2, 28, 23, 59, 59, 0, loc),
			wantStart: time.Date(2023, 2, 1, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2023, 2, 28, 23, 59, 59, 999000000, loc),
		},
		{
			name:      "december rolls year",
			ref:       time.Date(2024, 12, 31, 22, 0, 0, 0, loc),
			wantStart: time.Date(2024, 12, 1, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 12, 31, 23, 59, 59, 999000000, loc),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StartOfMonth(tc.ref); !got.Equal(tc.wantStart) || got.Location() != loc {
				t.Errorf("StartOfMonth = %v, want %v", got, tc.wantStart)
			}
			if got := EndOfMonth(tc.ref); !got.Equal(tc.wantEnd) || got.Location() != loc {
				t.Errorf("EndOfMonth = %v, want %v", got, tc.wantEnd)
			}
		})
	}
}

func TestCurrentYearMonth(t *testing.T) {
	got := CurrentYearMonth(time.Date(2024, 1, 31, 23, 0, 0, 0, time.Local))
	if got.Year != 2024 || got.Month != 1 {
		t.Fatalf("expected 2024-01, got %v", got)
	}
}

func TestYearMonthNavigation(t *testing.T) {
	ym := YearMonth{Year: 2024, Month: 1}
	if p := ym.Prev(); p != (YearMonth{Year: 2023, Month: 12}) {
		t.Fatalf("Prev = %v", p)
	}
	if n := (YearMonth{Year: 2024, Month: 12}).Next(); n != (YearMonth{Year: 2025, Month: 1}) {
		t.Fatalf("Next = %v", n)
	}
	from, to := YearMonth{Year: 2024, Month: 2}.Range()
	if from.String() != "2024-02-01" || to.String() != "2024-02-29" {
		t.Fatalf("Range = %s..%s", from, to)
	}
	if ym.String() != "2024-01" {
		t.Fatalf("String = %s", ym)
	}
}

func TestParseYearMonth(t *testing.T) {
	ym, err := ParseYearMonth("2024-03")
	if err != nil || ym != (YearMonth{Year: 2024, Month: 3}) {
		t.Fatalf("expected 2024-03, got %v (err=%v)", ym, err)
	}
	for _, in := range []string{"", "2024-3", "2024-13", "march"} {
		if _, err := ParseYearMonth(in); err == nil {
			t.Fatalf("%q expected error", in)
		}
	}
}
