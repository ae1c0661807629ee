package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireLoadError(t *testing.T, err error, code string) *LoadError {
	t.Helper()
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, code, loadErr.Code)
	return loadErr
}

func TestLoadGraph_File(t *testing.T) {
	loaded, err := LoadGraph(writeGraph(t, voicesGraph))
	require.NoError(t, err)

	assert.Equal(t, 1, loaded.FileCount)
	require.NotNil(t, loaded.Alloc)
	assert.Len(t, loaded.Graph.Blocks(), 3)
	root, ok := loaded.Graph.SurfaceByName("root")
	require.True(t, ok)
	assert.Equal(t, uint64(4), root.ID.ID)
}

func TestLoadGraph_Directory(t *testing.T) {
	dir := t.TempDir()
	blocks := "package test\n\nblock: voices: {}\nblock: out: {}\n"
	surfaces := `package test

surface: root: {
	groups: [{type: "num[]"}]
	nodes: [
		{block: "voices", sockets: [{group: 0, write: true}]},
		{block: "out", sockets: [{group: 0, read: true}]},
	]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocks.cue"), []byte(blocks), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "surfaces.cue"), []byte(surfaces), 0644))

	loaded, err := LoadGraph(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.FileCount)
	assert.Len(t, loaded.Graph.Blocks(), 2)
	assert.Len(t, loaded.Graph.Surfaces(), 1)
}

func TestLoadGraph_NotFound(t *testing.T) {
	_, err := LoadGraph(filepath.Join(t.TempDir(), "missing.cue"))
	loadErr := requireLoadError(t, err, ErrCodeNotFound)
	assert.Contains(t, loadErr.Message, "not found")
}

func TestLoadGraph_EmptyDirectory(t *testing.T) {
	_, err := LoadGraph(t.TempDir())
	loadErr := requireLoadError(t, err, ErrCodeNoFiles)
	assert.Contains(t, loadErr.Message, "no CUE files found")
}

func TestLoadGraph_SyntaxErrorHasPosition(t *testing.T) {
	path := writeGraph(t, "surface: root: {\n\tnodes: [\n")

	_, err := LoadGraph(path)
	loadErr := requireLoadError(t, err, ErrCodeInvalidGraph)
	require.True(t, loadErr.Pos.IsValid())
	assert.Equal(t, path, loadErr.Pos.Filename())
	assert.Contains(t, err.Error(), path+":")
}

func TestLoadGraph_NoSurfaces(t *testing.T) {
	_, err := LoadGraph(writeGraph(t, "block: voices: {}\n"))
	loadErr := requireLoadError(t, err, ErrCodeInvalidGraph)
	assert.Contains(t, loadErr.Message, "at least one surface is required")
}

func TestFindCUEFiles_SkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("x: 1"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.cue"), []byte("y: 1"), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue")}, files)
}
