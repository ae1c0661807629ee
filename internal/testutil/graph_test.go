package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/maxim/internal/mir"
)

func TestGraph_IDsInCallOrder(t *testing.T) {
	g := NewGraph()
	osc := g.Block("osc")
	root := g.Surface("root")

	assert.Equal(t, uint64(1), osc.ID)
	assert.Equal(t, uint64(2), root.ID().ID)
}

func TestSurfaceBuilder_Build(t *testing.T) {
	g := NewGraph()
	osc := g.Block("osc", "freq")
	inner := g.Surface("inner")
	inner.Build()

	root := g.Surface("root")
	arr := root.Group("num[]")
	scalar := root.SocketGroup("num", 0)
	root.Custom(osc, ExtractWrites(arr))
	root.Nested(inner.ID(), Reads(arr), Writes(scalar))
	s := root.Build()

	require.Len(t, s.Groups, 2)
	assert.True(t, s.Groups[0].ValueType.IsArray())
	assert.Equal(t, mir.SourceSocket(0), s.Groups[1].Source)
	require.Len(t, s.Nodes, 2)
	assert.Equal(t, mir.Custom{Block: osc}, s.Nodes[0].Data)
	assert.True(t, s.Nodes[0].Sockets[0].IsExtractor)

	got, ok := g.Ctx.SurfaceByName("root")
	require.True(t, ok)
	assert.Same(t, s, got)

	block, ok := g.Ctx.Block(osc)
	require.True(t, ok)
	assert.Equal(t, []string{"freq"}, block.Controls)
}

func TestSocketHelpers(t *testing.T) {
	assert.Equal(t, mir.ValueSocket{GroupID: 1, ValueRead: true}, Reads(1))
	assert.Equal(t, mir.ValueSocket{GroupID: 1, ValueWritten: true}, Writes(1))
	assert.Equal(t, mir.ValueSocket{GroupID: 1, ValueWritten: true, ValueRead: true}, ReadsWrites(1))
	assert.Equal(t, mir.ValueSocket{GroupID: 2, ValueWritten: true, IsExtractor: true}, ExtractWrites(2))
	assert.Equal(t, mir.ValueSocket{GroupID: 2, ValueRead: true, IsExtractor: true}, ExtractReads(2))
}
