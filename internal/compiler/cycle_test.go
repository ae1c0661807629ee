package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/maxim/internal/mir"
	"github.com/roach88/maxim/internal/testutil"
)

func names(surfaces []*mir.Surface) []string {
	out := make([]string, len(surfaces))
	for i, s := range surfaces {
		out[i] = s.ID.DebugName
	}
	return out
}

func TestEmissionOrder_ChildrenFirst(t *testing.T) {
	g := testutil.NewGraph()
	root := g.Surface("root")
	mid := g.Surface("mid")
	leaf := g.Surface("leaf")
	other := g.Surface("other")

	root.Nested(mid.ID())
	root.Extract(leaf.ID(), nil, nil)
	mid.Extract(leaf.ID(), nil, nil)
	root.Build()
	mid.Build()
	leaf.Build()
	other.Build()

	order, err := EmissionOrder(g.Ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"leaf", "mid", "root", "other"}, names(order))
	assert.Empty(t, AnalyzeSurfaceCycles(g.Ctx))
}

func TestEmissionOrder_SelfLoop(t *testing.T) {
	g := testutil.NewGraph()
	s := g.Surface("loop")
	s.Nested(s.ID())
	s.Build()

	_, err := EmissionOrder(g.Ctx)
	require.Error(t, err)

	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"loop", "loop"}, ce.Path)
}

func TestAnalyzeSurfaceCycles_MultiNode(t *testing.T) {
	g := testutil.NewGraph()
	a := g.Surface("a")
	b := g.Surface("b")
	c := g.Surface("c")
	a.Nested(b.ID())
	b.Extract(c.ID(), nil, nil)
	c.Nested(a.ID())
	a.Build()
	b.Build()
	c.Build()

	cycles := AnalyzeSurfaceCycles(g.Ctx)
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0].Path, 4)
	assert.Equal(t, cycles[0].Path[0], cycles[0].Path[3])
	assert.Contains(t, cycles[0].Message, "surface reference cycle")
}

func TestAnalyzeSurfaceCycles_IgnoresDanglingReferences(t *testing.T) {
	g := testutil.NewGraph()
	s := g.Surface("s")
	s.Nested(mir.SurfaceID{ID: 42, DebugName: "ghost"})
	s.Build()

	assert.Empty(t, AnalyzeSurfaceCycles(g.Ctx))
	order, err := EmissionOrder(g.Ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, names(order))
}
