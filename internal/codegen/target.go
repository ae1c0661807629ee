package codegen

import (
	"fmt"

	"github.com/roach88/maxim/internal/lir"
)

// DefaultCapacity is the number of voice slots when no target is configured.
const DefaultCapacity = 8

// MaxCapacity is the widest liveness bitmap supported.
const MaxCapacity = 64

// TargetProperties is the read-only target configuration observed by the
// code generator.
type TargetProperties struct {
	// Capacity is the maximum number of simultaneous dynamic instances of an
	// extracted surface.
	Capacity int `json:"capacity" yaml:"capacity"`
	// IncludeUI passes UI sub-pointers to block lifecycle calls.
	IncludeUI bool `json:"include_ui" yaml:"include_ui"`
}

// DefaultTarget returns the default target.
func DefaultTarget() TargetProperties {
	return TargetProperties{Capacity: DefaultCapacity}
}

// Validate checks the capacity range.
func (t TargetProperties) Validate() error {
	if t.Capacity < 1 || t.Capacity > MaxCapacity {
		return &InternalError{
			Code:    ErrCodeBadTarget,
			Message: fmt.Sprintf("capacity %d out of range 1..%d", t.Capacity, MaxCapacity),
			Node:    -1,
		}
	}
	return nil
}

// BitmapType is the smallest integer type holding one bit per slot. Slot
// indices use the same type.
func (t TargetProperties) BitmapType() lir.Type {
	for _, bits := range []int{8, 16, 32} {
		if t.Capacity <= bits {
			return lir.Int(bits)
		}
	}
	return lir.I64
}

// AllSlotsMask is the bitmap with every slot live.
func (t TargetProperties) AllSlotsMask() uint64 {
	if t.Capacity >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(t.Capacity)) - 1
}

// String renders the target as a stable cache key, e.g.
// "capacity=8,include_ui=false".
func (t TargetProperties) String() string {
	return fmt.Sprintf("capacity=%d,include_ui=%t", t.Capacity, t.IncludeUI)
}
