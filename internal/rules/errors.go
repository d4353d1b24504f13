package rules

import (
	"errors"
	"strings"
)

// Sentinel errors for the rules package.
var (
	// ErrNotFound is returned when a rule record does not exist.
	ErrNotFound = errors.New("rule not found")
)

// ValidationError aggregates the problems found in a submitted rule.
// Malformed rules are rejected whole, never silently coerced.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid rule:\n  - " + strings.Join(e.Problems, "\n  - ")
}
