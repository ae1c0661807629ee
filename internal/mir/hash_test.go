package mir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsAndNormalizes(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{
		"b":   1,
		"a":   []any{true, "x<y"},
		"caf": "café",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,"x<y"],"b":1,"caf":"café"}`, string(out))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	for _, v := range []any{nil, 1.5, map[string]any{"k": nil}, struct{}{}} {
		_, err := MarshalCanonical(v)
		assert.Error(t, err, "%#v", v)
	}
}

func TestSurfaceHash_IgnoresOwnID(t *testing.T) {
	a := testSurface()
	b := testSurface()
	b.ID.ID = 999

	assert.Equal(t, MustSurfaceHash(a), MustSurfaceHash(b))
	assert.Len(t, MustSurfaceHash(a), 64)
}

func TestSurfaceHash_SensitiveToStructure(t *testing.T) {
	a := testSurface()
	b := testSurface()
	b.Nodes[0].Sockets[0].ValueRead = true

	assert.NotEqual(t, MustSurfaceHash(a), MustSurfaceHash(b))
}

func TestSurfaceHash_SensitiveToReferencedIDs(t *testing.T) {
	a := testSurface()
	b := testSurface()
	eg := b.Nodes[1].Data.(ExtractGroup)
	eg.Surface.ID++
	b.Nodes[1].Data = eg

	assert.NotEqual(t, MustSurfaceHash(a), MustSurfaceHash(b))
}
