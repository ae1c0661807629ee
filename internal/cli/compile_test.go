package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// badSocketGraph binds a socket to a group the surface doesn't have (E201).
const badSocketGraph = `
block: out: {}

surface: root: {
	groups: [{type: "num"}]
	nodes: [{block: "out", sockets: [{group: 3, read: true}]}]
}
`

// cycleGraph has two surfaces instantiating each other.
const cycleGraph = `
surface: a: nodes: [{surface: "b"}]
surface: b: nodes: [{surface: "a"}]
`

func runCompileCmd(t *testing.T, opts *RootOptions, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func decodeSummary(t *testing.T, data []byte) CompileSummary {
	t.Helper()
	var resp struct {
		Status string         `json:"status"`
		Data   CompileSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestCompileText(t *testing.T) {
	buf, err := runCompileCmd(t, &RootOptions{Format: "text"}, writeGraph(t, voicesGraph))
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ Compiled 2 surface(s), 6 procedure(s) [capacity=8,include_ui=false]")
	assert.Contains(t, output, "root.extracted0#5 (extracted)")
	assert.Contains(t, output, "root#4\n")
	assert.Contains(t, output, "Build: ")
}

func TestCompileJSON(t *testing.T) {
	buf, err := runCompileCmd(t, &RootOptions{Format: "json"}, writeGraph(t, voicesGraph))
	require.NoError(t, err)

	summary := decodeSummary(t, buf.Bytes())
	assert.NotEmpty(t, summary.BuildID)
	assert.Equal(t, "capacity=8,include_ui=false", summary.Target)

	require.Len(t, summary.Surfaces, 2)
	assert.Equal(t, "root.extracted0", summary.Surfaces[0].Name)
	assert.True(t, summary.Surfaces[0].Extracted)
	assert.Equal(t, "root", summary.Surfaces[1].Name)
	assert.False(t, summary.Surfaces[1].Extracted)
	assert.Len(t, summary.Surfaces[0].Hash, 64)

	require.Len(t, summary.Procedures, 6)
	assert.Equal(t, "maxim.surface.5.root.extracted0.construct", summary.Procedures[0].Name)
	assert.Equal(t, "construct", summary.Procedures[0].Lifecycle)
	assert.Equal(t, "root#4", summary.Procedures[5].Surface)
	assert.Zero(t, summary.Cached)
}

func TestCompileYAML(t *testing.T) {
	buf, err := runCompileCmd(t, &RootOptions{Format: "yaml"}, writeGraph(t, voicesGraph))
	require.NoError(t, err)

	var resp struct {
		Status string         `yaml:"status"`
		Data   CompileSummary `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.Procedures, 6)
}

func TestCompileCapacityFlag(t *testing.T) {
	buf, err := runCompileCmd(t, &RootOptions{Format: "json"}, writeGraph(t, voicesGraph), "--capacity", "16")
	require.NoError(t, err)
	assert.Equal(t, "capacity=16,include_ui=false", decodeSummary(t, buf.Bytes()).Target)
}

func TestCompileConfigTarget(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "maxim.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("target:\n  capacity: 4\n  include_ui: true\n"), 0644))

	buf, err := runCompileCmd(t, &RootOptions{Format: "json", Config: configPath}, writeGraph(t, voicesGraph))
	require.NoError(t, err)
	assert.Equal(t, "capacity=4,include_ui=true", decodeSummary(t, buf.Bytes()).Target)
}

func TestCompileBadCapacity(t *testing.T) {
	buf, err := runCompileCmd(t, &RootOptions{Format: "text"}, writeGraph(t, voicesGraph), "--capacity", "65")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeConfig)
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "module.ll")

	buf, err := runCompileCmd(t, &RootOptions{Format: "text"}, writeGraph(t, voicesGraph), "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Wrote module to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "; module maxim\n"))
	assert.Contains(t, text, "define void @maxim.surface.4.root.update(ptr %scratch, ptr %pointers)")
	assert.Contains(t, text, "declare void @maxim.block.2.filter.update(")
}

func TestCompileRecordsToStore(t *testing.T) {
	graph := writeGraph(t, voicesGraph)
	db := filepath.Join(t.TempDir(), "cache.db")

	buf, err := runCompileCmd(t, &RootOptions{Format: "json"}, graph, "--db", db)
	require.NoError(t, err)
	first := decodeSummary(t, buf.Bytes())
	assert.Zero(t, first.Cached)

	buf, err = runCompileCmd(t, &RootOptions{Format: "json"}, graph, "--db", db)
	require.NoError(t, err)
	second := decodeSummary(t, buf.Bytes())
	assert.NotEqual(t, first.BuildID, second.BuildID)
	assert.Equal(t, 6, second.Cached)
	for _, p := range second.Procedures {
		assert.True(t, p.Cached, p.Name)
	}
}

func TestCompileStoreOpenFailure(t *testing.T) {
	db := filepath.Join(t.TempDir(), "missing", "dir", "cache.db")

	buf, err := runCompileCmd(t, &RootOptions{Format: "text"}, writeGraph(t, voicesGraph), "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeStore)
}

func TestCompileValidationErrors(t *testing.T) {
	buf, err := runCompileCmd(t, &RootOptions{Format: "text"}, writeGraph(t, badSocketGraph))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ Validation failed")
	assert.Contains(t, buf.String(), "E201")
}

func TestCompileSurfaceCycle(t *testing.T) {
	buf, err := runCompileCmd(t, &RootOptions{Format: "json"}, writeGraph(t, cycleGraph))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSurfaceCycle, resp.Error.Code)
}

func TestCompileNonExistentPath(t *testing.T) {
	buf, err := runCompileCmd(t, &RootOptions{Format: "text"}, "/nonexistent/graph.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, buf.String(), "not found")
}

func TestCompileSyntaxErrorJSON(t *testing.T) {
	buf, err := runCompileCmd(t, &RootOptions{Format: "json"}, writeGraph(t, "surface: {"))
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidGraph, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "line")
}
