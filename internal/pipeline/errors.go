package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/maxim/internal/compiler"
)

// ValidationFailedError carries every structural error found before
// extraction. No pass runs on an invalid graph.
type ValidationFailedError struct {
	Errors []compiler.ValidationError
}

func (e *ValidationFailedError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("graph validation failed with %d error(s):\n  %s", len(e.Errors), strings.Join(msgs, "\n  "))
}

// IsValidationFailed reports whether err is (or wraps) a ValidationFailedError.
func IsValidationFailed(err error) bool {
	var vf *ValidationFailedError
	return errors.As(err, &vf)
}
