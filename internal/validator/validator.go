// Package validator checks form input before it reaches the ledger commands.
package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"expensetracker/internal/core"
)

var Validate *validator.Validate

var nonBlank = regexp.MustCompile(`\S`)

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their form name so messages match the page inputs.
	Validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// "2024-12"
	_ = Validate.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01", fl.Field().String())
		return err == nil
	})

	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonBlank.MatchString(fl.Field().String())
	})

	// "#rgb" or "#rrggbb"
	_ = Validate.RegisterValidation("colorhex", func(fl validator.FieldLevel) bool {
		return core.IsColorHex(fl.Field().String())
	})
}

// fieldReasons maps a form field to the sentinel reported when it fails.
var fieldReasons = map[string]error{
	"date":        core.ErrInvalidDate,
	"amount":      core.ErrInvalidAmount,
	"limit":       core.ErrInvalidAmount,
	"description": core.ErrDescriptionTooLong,
	"categoryId":  core.ErrUnknownCategory,
	"source":      core.ErrInvalidSource,
	"name":        core.ErrNameTooLong,
	"colorHex":    core.ErrInvalidColor,
	"month":       core.ErrInvalidMonth,
}

// Check validates v and returns the first failure as a *core.ValidationError.
func Check(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return toValidationError(verrs[0])
}

func toValidationError(e validator.FieldError) *core.ValidationError {
	field := e.Field()
	switch {
	case field == "name" && (e.Tag() == "required" || e.Tag() == "notblank"):
		return &core.ValidationError{Field: field, Err: core.ErrEmptyName}
	case field == "categoryId" && e.Tag() == "required":
		return &core.ValidationError{Field: field, Err: core.ErrEmptyCategory}
	}
	if reason, ok := fieldReasons[field]; ok {
		return &core.ValidationError{Field: field, Err: reason}
	}
	return &core.ValidationError{Field: field, Err: errors.New("failed " + e.Tag() + " check")}
}
