package compiler

import (
	"fmt"

	"github.com/roach88/maxim/internal/mir"
)

// Validation error codes (E200-E299)
const (
	ErrSocketGroupRange     = "E201" // socket references a group the surface lacks
	ErrUndefinedBlock       = "E202" // custom node references an unknown block
	ErrUndefinedSurface     = "E203" // group/extract node references an unknown surface
	ErrExtractSocketRange   = "E204" // extract source/dest index outside the node's sockets
	ErrDuplicateSurfaceName = "E205" // two surfaces share a debug name
	ErrDuplicateBlockName   = "E206" // two blocks share a debug name
	ErrDuplicateExtractSock = "E207" // extract source/dest index listed twice
)

// ValidationError represents a structural validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks every surface of ctx for dangling references and index
// errors. Returns all errors found (does not fail-fast).
func Validate(ctx *mir.Context) []ValidationError {
	var errs []ValidationError

	blockNames := make(map[string]bool)
	for _, b := range ctx.Blocks() {
		if blockNames[b.ID.DebugName] {
			errs = append(errs, ValidationError{
				Field:   "block." + b.ID.DebugName,
				Message: fmt.Sprintf("duplicate block name: %q", b.ID.DebugName),
				Code:    ErrDuplicateBlockName,
			})
		}
		blockNames[b.ID.DebugName] = true
	}

	surfaceNames := make(map[string]bool)
	for _, s := range ctx.Surfaces() {
		if surfaceNames[s.ID.DebugName] {
			errs = append(errs, ValidationError{
				Field:   "surface." + s.ID.DebugName,
				Message: fmt.Sprintf("duplicate surface name: %q", s.ID.DebugName),
				Code:    ErrDuplicateSurfaceName,
			})
		}
		surfaceNames[s.ID.DebugName] = true
		errs = append(errs, validateSurface(ctx, s)...)
	}

	return errs
}

func validateSurface(ctx *mir.Context, s *mir.Surface) []ValidationError {
	var errs []ValidationError

	for i, node := range s.Nodes {
		field := fmt.Sprintf("surface.%s.nodes[%d]", s.ID.DebugName, i)

		for j, sock := range node.Sockets {
			if sock.GroupID < 0 || sock.GroupID >= len(s.Groups) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.sockets[%d].group", field, j),
					Message: fmt.Sprintf("group %d out of range (surface has %d groups)", sock.GroupID, len(s.Groups)),
					Code:    ErrSocketGroupRange,
				})
			}
		}

		switch data := node.Data.(type) {
		case mir.Custom:
			if _, ok := ctx.Block(data.Block); !ok {
				errs = append(errs, ValidationError{
					Field:   field + ".block",
					Message: fmt.Sprintf("undefined block %s", data.Block),
					Code:    ErrUndefinedBlock,
				})
			}
		case mir.Group:
			if _, ok := ctx.Surface(data.Surface); !ok {
				errs = append(errs, ValidationError{
					Field:   field + ".surface",
					Message: fmt.Sprintf("undefined surface %s", data.Surface),
					Code:    ErrUndefinedSurface,
				})
			}
		case mir.ExtractGroup:
			if _, ok := ctx.Surface(data.Surface); !ok {
				errs = append(errs, ValidationError{
					Field:   field + ".extract",
					Message: fmt.Sprintf("undefined surface %s", data.Surface),
					Code:    ErrUndefinedSurface,
				})
			}
			errs = append(errs, validateExtractSockets(field+".sources", data.SourceSockets, len(node.Sockets))...)
			errs = append(errs, validateExtractSockets(field+".dests", data.DestSockets, len(node.Sockets))...)
		}
	}

	return errs
}

func validateExtractSockets(field string, indices []int, socketCount int) []ValidationError {
	var errs []ValidationError
	seen := make(map[int]bool)
	for k, idx := range indices {
		f := fmt.Sprintf("%s[%d]", field, k)
		if idx < 0 || idx >= socketCount {
			errs = append(errs, ValidationError{
				Field:   f,
				Message: fmt.Sprintf("socket %d out of range (node has %d sockets)", idx, socketCount),
				Code:    ErrExtractSocketRange,
			})
			continue
		}
		if seen[idx] {
			errs = append(errs, ValidationError{
				Field:   f,
				Message: fmt.Sprintf("socket %d listed twice", idx),
				Code:    ErrDuplicateExtractSock,
			})
		}
		seen[idx] = true
	}
	return errs
}
