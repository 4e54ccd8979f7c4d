package model

import (
	"fmt"
	"strings"
)

// Validation constraints for a logged event.
const (
	MinRating = 1
	MaxRating = 5
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// FieldErrors aggregates per-field validation failures into one error value.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidateEvent checks the caller-supplied event values. The type code
// is only checked against the fixed enumeration here; the store always
// re-verifies it against the live reference table on insert.
func ValidateEvent(typeCode string, minutes, rating int) FieldErrors {
	var errs FieldErrors

	if !IsKnownType(typeCode) {
		errs = append(errs, FieldError{"type", "must be one of: " + strings.Join(KnownTypes(), ", ")})
	}
	if minutes <= 0 {
		errs = append(errs, FieldError{"minutes", "must be a positive integer"})
	}
	if rating < MinRating || rating > MaxRating {
		errs = append(errs, FieldError{"rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating)})
	}

	return errs
}
