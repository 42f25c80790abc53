package core

import (
	"errors"
	"fmt"
)

const (
	MaxDescriptionLength = 200
	MaxNameLength        = 60
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrNotFound          = errors.New("not found")
	ErrCategoryInUse     = errors.New("category is referenced by transactions")
	ErrDuplicateCategory = errors.New("category name already exists")
	ErrUnknownCategory   = errors.New("unknown category")

	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidYear        = errors.New("invalid year")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeLimit      = errors.New("limit cannot be negative")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyName          = errors.New("empty name")
	ErrNameTooLong        = errors.New("name too long (max 60 characters)")
	ErrInvalidColor       = errors.New("invalid colour, expected #rrggbb")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidSource      = errors.New("invalid source")
)

// ValidationError reports which input field was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}
