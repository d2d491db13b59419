package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNoAvailability = errors.New("no rental unit availability")
	ErrLocked         = errors.New("resource is locked")
)

// Reasons returned in ValidationError maps.
const (
	ReasonNotAllowed       = "not_allowed"
	ReasonExceededAmount   = "exceeded_amount"
	ReasonInvalidAmount    = "invalid_amount"
	ReasonAgeRangeMismatch = "age_range_mismatch"
	ReasonInvalidDates     = "invalid_dates"
	ReasonInvalidValue     = "invalid_value"
	ReasonUnknownProduct   = "unknown_product"
)

// ValidationError maps field names to rejection reasons.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func NewValidationError(field, reason string) ValidationError {
	return ValidationError{field: reason}
}

func AsValidationError(err error) (ValidationError, bool) {
	var v ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
