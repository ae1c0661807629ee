package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while executing a module.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Function is the function executing when the error occurred.
	Function string

	// Block is the basic block executing when the error occurred.
	Block string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUndefinedFunction indicates a call to a name the module lacks.
	ErrCodeUndefinedFunction RuntimeErrorCode = "UNDEFINED_FUNCTION"

	// ErrCodeUninitializedLoad indicates a load from a location never stored.
	ErrCodeUninitializedLoad RuntimeErrorCode = "UNINITIALIZED_LOAD"

	// ErrCodeBadOperand indicates an operand of the wrong kind or one that
	// was never computed.
	ErrCodeBadOperand RuntimeErrorCode = "BAD_OPERAND"

	// ErrCodeQuotaExceeded indicates the step quota ran out.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Function != "" && e.Block != "" {
		return fmt.Sprintf("%s: %s (function=%s, block=%s)", e.Code, e.Message, e.Function, e.Block)
	}
	if e.Function != "" {
		return fmt.Sprintf("%s: %s (function=%s)", e.Code, e.Message, e.Function)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRuntimeError reports whether err wraps a RuntimeError with the given code.
func IsRuntimeError(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
func IsQuotaError(err error) bool {
	if IsRuntimeError(err, ErrCodeQuotaExceeded) {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}
