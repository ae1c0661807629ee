package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/maxim/internal/lir"
	"github.com/roach88/maxim/internal/mir"
)

func TestTargetProperties_BitmapType(t *testing.T) {
	tests := []struct {
		capacity int
		want     lir.Type
		mask     uint64
	}{
		{1, lir.I8, 0x1},
		{4, lir.I8, 0xF},
		{8, lir.I8, 0xFF},
		{9, lir.I16, 0x1FF},
		{16, lir.I16, 0xFFFF},
		{17, lir.I32, 0x1FFFF},
		{32, lir.I32, 0xFFFF_FFFF},
		{33, lir.I64, 0x1_FFFF_FFFF},
		{64, lir.I64, ^uint64(0)},
	}
	for _, tt := range tests {
		target := TargetProperties{Capacity: tt.capacity}
		assert.NoError(t, target.Validate())
		assert.Equal(t, tt.want, target.BitmapType(), "capacity %d", tt.capacity)
		assert.Equal(t, tt.mask, target.AllSlotsMask(), "capacity %d", tt.capacity)
	}
}

func TestDefaultTarget(t *testing.T) {
	target := DefaultTarget()
	assert.Equal(t, DefaultCapacity, target.Capacity)
	assert.False(t, target.IncludeUI)
	assert.NoError(t, target.Validate())
}

func TestLifecycle_Parse(t *testing.T) {
	for _, l := range Lifecycles {
		got, ok := ParseLifecycle(l.String())
		assert.True(t, ok)
		assert.Equal(t, l, got)
	}
	_, ok := ParseLifecycle("render")
	assert.False(t, ok)
}

func TestLifecycle_Text(t *testing.T) {
	text, err := Update.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "update", string(text))

	var l Lifecycle
	require.NoError(t, l.UnmarshalText([]byte("destruct")))
	assert.Equal(t, Destruct, l)
	assert.Error(t, l.UnmarshalText([]byte("render")))
}

func TestLifecycleFuncName(t *testing.T) {
	id := mir.SurfaceID{ID: 7, DebugName: "root.extracted0"}
	assert.Equal(t, "maxim.surface.7.root.extracted0.update", LifecycleFuncName(id, Update))
	assert.Equal(t, "maxim.block.3.osc.destruct", BlockFuncName(mir.BlockID{ID: 3, DebugName: "osc"}, Destruct))
}

func TestStaticLayouts_Fallback(t *testing.T) {
	s := mir.NewSurface(mir.SurfaceID{ID: 5, DebugName: "s"}, nil, []mir.Node{
		mir.NewNode(nil, mir.Custom{}),
		mir.NewNode(nil, mir.Custom{}),
	})
	layouts := StaticLayouts{Fallback: SequentialLayouts{}}

	layout, err := layouts.SurfaceLayout(s)
	assert.NoError(t, err)
	idx, ok := layout.NodePointerIndex(1)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = layout.NodeScratchIndex(2)
	assert.False(t, ok)
}

func TestTargetProperties_String(t *testing.T) {
	assert.Equal(t, "capacity=8,include_ui=false", DefaultTarget().String())
	assert.Equal(t, "capacity=64,include_ui=true", TargetProperties{Capacity: 64, IncludeUI: true}.String())
}
