package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxSteps is the default instruction quota for one top-level call.
const DefaultMaxSteps = 1 << 20

// QuotaEnforcer counts executed instructions against a limit.
//
// A lifecycle procedure is loop-bounded by construction, but the machine
// also runs hand-built modules in tests; the quota guarantees termination for
// those.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates it against the limit.
func (q *QuotaEnforcer) Check(function string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			Function: function,
			Steps:    q.current,
			Limit:    q.maxSteps,
		}
	}
	return nil
}

// Reset sets the step counter back to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when execution exceeds the step quota.
type StepsExceededError struct {
	Function string // function executing when the quota ran out
	Steps    int
	Limit    int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("%s exceeded step quota: %d steps > %d limit",
		e.Function, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
