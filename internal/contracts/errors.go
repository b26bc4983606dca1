package contracts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingInput marks an unavailable factor input or price.
// Callers exclude the affected term; it is never replaced by zero.
var ErrMissingInput = errors.New("missing input")

// ErrNotFound is returned by stores when a run or record does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateRun is returned when a ledger entry for the run already exists
var ErrDuplicateRun = errors.New("duplicate run")

// InfeasibilityError is returned when rounding or sector-cap repair
// cannot satisfy the constraints with the available candidates.
type InfeasibilityError struct {
	Stage      string // "rounder", "sector_cap", ...
	Constraint string // "min_percent", "max_percent", "sector_cap", "sum", "iterations"
	Detail     string
	Shortfall  float64 // percentage points that could not be placed
}

func (e *InfeasibilityError) Error() string {
	msg := fmt.Sprintf("infeasible allocation (%s/%s): %s", e.Stage, e.Constraint, e.Detail)
	if e.Shortfall != 0 {
		msg += fmt.Sprintf(" [shortfall %.2f pts]", e.Shortfall)
	}
	return msg
}

// IsInfeasible reports whether err wraps an InfeasibilityError
func IsInfeasible(err error) bool {
	var ie *InfeasibilityError
	return errors.As(err, &ie)
}

// Violation is one failed allocation invariant
type Violation struct {
	Constraint string `json:"constraint"`
	Detail     string `json:"detail"`
}

// ValidationError aggregates every violated invariant of an allocation
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Constraint, v.Detail)
	}
	return fmt.Sprintf("allocation validation failed (%d violations): %s", len(e.Violations), strings.Join(parts, "; "))
}

// Add appends a violation
func (e *ValidationError) Add(constraint, format string, args ...interface{}) {
	e.Violations = append(e.Violations, Violation{Constraint: constraint, Detail: fmt.Sprintf(format, args...)})
}

// HasViolations reports whether any violation was recorded
func (e *ValidationError) HasViolations() bool {
	return len(e.Violations) > 0
}
