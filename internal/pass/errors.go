package pass

import (
	"errors"
	"fmt"

	"github.com/roach88/maxim/internal/mir"
)

// ErrorCode categorizes structural errors detected by a pass.
type ErrorCode string

const (
	// ErrCodeInvalidGroupRef indicates a socket references a group index that
	// does not exist in the surface.
	ErrCodeInvalidGroupRef ErrorCode = "INVALID_GROUP_REF"

	// ErrCodeNodeOrder indicates an extract group's node list is not strictly
	// increasing after sorting (a node was claimed twice).
	ErrCodeNodeOrder ErrorCode = "NODE_ORDER"

	// ErrCodeUnmappedGroup indicates a relocated socket is bound to a group
	// that is not forwarded into the child surface.
	ErrCodeUnmappedGroup ErrorCode = "UNMAPPED_GROUP"
)

// Error is a non-recoverable structural error. The surface it names has not
// been modified.
type Error struct {
	Code    ErrorCode
	Message string
	Surface mir.SurfaceID
	// Node and Socket are -1 when not applicable.
	Node   int
	Socket int
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Node >= 0 && e.Socket >= 0:
		return fmt.Sprintf("%s: %s (surface=%s, node=%d, socket=%d)", e.Code, e.Message, e.Surface, e.Node, e.Socket)
	case e.Node >= 0:
		return fmt.Sprintf("%s: %s (surface=%s, node=%d)", e.Code, e.Message, e.Surface, e.Node)
	default:
		return fmt.Sprintf("%s: %s (surface=%s)", e.Code, e.Message, e.Surface)
	}
}

// IsStructuralError reports whether err is a pass structural error.
// Uses errors.As to handle wrapped errors.
func IsStructuralError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}

func newInvalidGroupRef(surface mir.SurfaceID, node, socket, group, groupCount int) *Error {
	return &Error{
		Code:    ErrCodeInvalidGroupRef,
		Message: fmt.Sprintf("group %d out of range (surface has %d groups)", group, groupCount),
		Surface: surface,
		Node:    node,
		Socket:  socket,
	}
}

func newNodeOrderError(surface mir.SurfaceID, node int) *Error {
	return &Error{
		Code:    ErrCodeNodeOrder,
		Message: "node listed more than once for relocation",
		Surface: surface,
		Node:    node,
		Socket:  -1,
	}
}

func newUnmappedGroupError(surface mir.SurfaceID, node, socket, group int) *Error {
	return &Error{
		Code:    ErrCodeUnmappedGroup,
		Message: fmt.Sprintf("group %d is not forwarded into the extracted surface", group),
		Surface: surface,
		Node:    node,
		Socket:  socket,
	}
}
