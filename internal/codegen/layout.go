package codegen

import (
	"fmt"

	"github.com/roach88/maxim/internal/mir"
)

// SurfaceLayout assigns each node a field of the surface's scratch struct and
// of its pointer struct.
type SurfaceLayout struct {
	ScratchIndex []int
	PointerIndex []int
}

// NodeScratchIndex returns the scratch field for node.
func (l *SurfaceLayout) NodeScratchIndex(node int) (int, bool) {
	if node < 0 || node >= len(l.ScratchIndex) {
		return 0, false
	}
	return l.ScratchIndex[node], true
}

// NodePointerIndex returns the pointer field for node.
func (l *SurfaceLayout) NodePointerIndex(node int) (int, bool) {
	if node < 0 || node >= len(l.PointerIndex) {
		return 0, false
	}
	return l.PointerIndex[node], true
}

// LayoutProvider computes surface layouts. The generator trusts the returned
// offsets without revalidation.
type LayoutProvider interface {
	SurfaceLayout(surface *mir.Surface) (*SurfaceLayout, error)
}

// SequentialLayouts places node i at field i of both structs.
type SequentialLayouts struct{}

// SurfaceLayout implements LayoutProvider.
func (SequentialLayouts) SurfaceLayout(surface *mir.Surface) (*SurfaceLayout, error) {
	layout := &SurfaceLayout{
		ScratchIndex: make([]int, len(surface.Nodes)),
		PointerIndex: make([]int, len(surface.Nodes)),
	}
	for i := range surface.Nodes {
		layout.ScratchIndex[i] = i
		layout.PointerIndex[i] = i
	}
	return layout, nil
}

// StaticLayouts serves precomputed layouts keyed by surface id. Surfaces
// without an entry fall back to Fallback, or fail when it is nil.
type StaticLayouts struct {
	Layouts  map[uint64]*SurfaceLayout
	Fallback LayoutProvider
}

// SurfaceLayout implements LayoutProvider.
func (s StaticLayouts) SurfaceLayout(surface *mir.Surface) (*SurfaceLayout, error) {
	if layout, ok := s.Layouts[surface.ID.ID]; ok {
		return layout, nil
	}
	if s.Fallback != nil {
		return s.Fallback.SurfaceLayout(surface)
	}
	return nil, &InternalError{
		Code:    ErrCodeLayoutMiss,
		Message: fmt.Sprintf("no layout for surface %s", surface.ID),
		Surface: surface.ID,
		Node:    -1,
	}
}
