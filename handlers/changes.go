package handlers

import (
	"strings"
	"time"
	"unicode/utf8"
)

// checkLength verifies that a value has between min and max characters.
func checkLength(field, value string, minLength, maxLength int) error {
	length := utf8.RuneCountInString(strings.TrimSpace(value))
	if length < minLength || length > maxLength {
		return NewValidationError("%s must be between %d and %d characters long", field, minLength, maxLength)
	}
	return nil
}

// checkChoice verifies that a value is one of the allowed choices.
func checkChoice(field, value string, choices []string) error {
	for _, choice := range choices {
		if value == choice {
			return nil
		}
	}
	return NewValidationError("%s must be one of: %s", field, strings.Join(choices, ", "))
}

// checkDevelopers verifies that at least one developer is assigned and that no developer is listed twice.
func checkDevelopers(ids []int64) error {
	if len(ids) == 0 {
		return NewValidationError("at least one developer must be assigned")
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return NewValidationError("developer %d is assigned more than once", id)
		}
		seen[id] = true
	}
	return nil
}

// checkDeadline verifies that a deadline was supplied.
func checkDeadline(deadline time.Time) error {
	if deadline.IsZero() {
		return NewValidationError("a deadline is required")
	}
	return nil
}

// firstError returns the first non-nil error.
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
