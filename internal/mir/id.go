package mir

import (
	"fmt"
	"sync/atomic"
)

// IDAllocator mints globally unique surface ids.
//
// Ids are strictly increasing and never reused, so a procedure name derived
// from a SurfaceID is stable for the lifetime of a compilation.
//
// Thread-safety: IDAllocator is safe for concurrent use.
type IDAllocator struct {
	next atomic.Uint64
}

// NewIDAllocator creates an allocator whose first id is 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// NewIDAllocatorAt creates an allocator that continues after start.
func NewIDAllocatorAt(start uint64) *IDAllocator {
	a := &IDAllocator{}
	a.next.Store(start)
	return a
}

// Next returns the next id.
func (a *IDAllocator) Next() uint64 {
	return a.next.Add(1)
}

// Current returns the last id handed out, or the start value.
func (a *IDAllocator) Current() uint64 {
	return a.next.Load()
}

// SurfaceID identifies a surface. ID is globally unique; DebugName is only
// used for naming generated procedures and diagnostics.
type SurfaceID struct {
	ID        uint64 `json:"id" yaml:"id"`
	DebugName string `json:"debug_name" yaml:"debug_name"`
}

// NewSurfaceID allocates a fresh surface identity.
func NewSurfaceID(debugName string, alloc *IDAllocator) SurfaceID {
	return SurfaceID{ID: alloc.Next(), DebugName: debugName}
}

func (id SurfaceID) String() string {
	return fmt.Sprintf("%s#%d", id.DebugName, id.ID)
}

// BlockID identifies a leaf block definition.
type BlockID struct {
	ID        uint64 `json:"id" yaml:"id"`
	DebugName string `json:"debug_name" yaml:"debug_name"`
}

// NewBlockID allocates a fresh block identity.
func NewBlockID(debugName string, alloc *IDAllocator) BlockID {
	return BlockID{ID: alloc.Next(), DebugName: debugName}
}

func (id BlockID) String() string {
	return fmt.Sprintf("%s#%d", id.DebugName, id.ID)
}
