package validator

import (
	"errors"
	"testing"

	"expensetracker/internal/core"
)

type sample struct {
	Month    string `form:"month" validate:"required,yearmonth"`
	Name     string `form:"name" validate:"required,notblank,max=10"`
	ColorHex string `form:"colorHex" validate:"omitempty,colorhex"`
	Other    string `validate:"omitempty,len=3"`
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		in        sample
		wantField string
		wantErr   error
	}{
		{"valid", sample{Month: "2024-03", Name: "Food", ColorHex: "#aabbcc"}, "", nil},
		{"bad month", sample{Month: "2024-13", Name: "Food"}, "month", core.ErrInvalidMonth},
		{"blank name", sample{Month: "2024-03", Name: "   "}, "name", core.ErrEmptyName},
		{"long name", sample{Month: "2024-03", Name: "a very long name"}, "name", core.ErrNameTooLong},
		{"bad colour", sample{Month: "2024-03", Name: "Food", ColorHex: "red"}, "colorHex", core.ErrInvalidColor},
		{"short colour", sample{Month: "2024-03", Name: "Food", ColorHex: "#abc"}, "", nil},
		{"untagged field", sample{Month: "2024-03", Name: "Food", Other: "ab"}, "Other", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.in)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("field = %s, want %s", verr.Field, tt.wantField)
			}
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("error must match ErrValidation: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
