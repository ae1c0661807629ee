package codegen

import (
	"errors"
	"fmt"

	"github.com/roach88/maxim/internal/mir"
)

// InternalErrorCode categorizes code generator failures.
type InternalErrorCode string

const (
	// ErrCodeUndefinedSurface indicates a Group/ExtractGroup references a
	// surface missing from the mir context.
	ErrCodeUndefinedSurface InternalErrorCode = "UNDEFINED_SURFACE"

	// ErrCodeUndefinedBlock indicates a Custom node references an unknown block.
	ErrCodeUndefinedBlock InternalErrorCode = "UNDEFINED_BLOCK"

	// ErrCodeLayoutMiss indicates the layout provider has no entry for a node.
	ErrCodeLayoutMiss InternalErrorCode = "LAYOUT_MISS"

	// ErrCodeSocketRange indicates a source/dest socket index is out of range.
	ErrCodeSocketRange InternalErrorCode = "SOCKET_RANGE"

	// ErrCodeBadTarget indicates invalid target properties.
	ErrCodeBadTarget InternalErrorCode = "BAD_TARGET"
)

// InternalError signals a compiler bug: an index that should be valid by
// construction was not. It aborts the current surface's compilation only.
type InternalError struct {
	Code    InternalErrorCode
	Message string
	Surface mir.SurfaceID
	// Node is -1 when not applicable.
	Node int
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	if e.Node >= 0 {
		return fmt.Sprintf("internal compiler error: %s: %s (surface=%s, node=%d)", e.Code, e.Message, e.Surface, e.Node)
	}
	if e.Surface.DebugName != "" {
		return fmt.Sprintf("internal compiler error: %s: %s (surface=%s)", e.Code, e.Message, e.Surface)
	}
	return fmt.Sprintf("internal compiler error: %s: %s", e.Code, e.Message)
}

// IsInternalError reports whether err is (or wraps) an InternalError.
func IsInternalError(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}
