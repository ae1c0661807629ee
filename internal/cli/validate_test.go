package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runValidateCmd(t *testing.T, format string, path string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})
	return buf, cmd.Execute()
}

func TestValidateValidGraph(t *testing.T) {
	buf, err := runValidateCmd(t, "text", writeGraph(t, voicesGraph))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ Graph valid: 1 surface(s), 3 block(s)")
}

func TestValidateValidGraphJSON(t *testing.T) {
	buf, err := runValidateCmd(t, "json", writeGraph(t, voicesGraph))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Surfaces)
	assert.Equal(t, 3, resp.Data.Blocks)
}

func TestValidateStructuralErrors(t *testing.T) {
	buf, err := runValidateCmd(t, "text", writeGraph(t, badSocketGraph))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 1 error(s)")

	output := buf.String()
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "E201: surface.root.nodes[0].sockets[0]")
	assert.Contains(t, output, "group 3 out of range")
}

func TestValidateStructuralErrorsJSON(t *testing.T) {
	buf, err := runValidateCmd(t, "json", writeGraph(t, badSocketGraph))
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "E201", resp.Data.Errors[0].Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E201", resp.Error.Code)
}

func TestValidateSurfaceCycle(t *testing.T) {
	buf, err := runValidateCmd(t, "text", writeGraph(t, cycleGraph))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeSurfaceCycle+": surface reference cycle: a → b → a")
}

func TestValidateSurfaceCycleJSON(t *testing.T) {
	buf, err := runValidateCmd(t, "json", writeGraph(t, cycleGraph))
	require.Error(t, err)

	var resp struct {
		Data  ValidationResult `json:"data"`
		Error *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data.Cycles, 1)
	assert.Equal(t, []string{"a", "b", "a"}, resp.Data.Cycles[0].Path)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSurfaceCycle, resp.Error.Code)
}

func TestValidateNonExistentPath(t *testing.T) {
	buf, err := runValidateCmd(t, "text", "/nonexistent/graph.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E005]")
}

func TestValidateUndefinedBlockName(t *testing.T) {
	src := `surface: root: nodes: [{block: "ghost"}]`
	buf, err := runValidateCmd(t, "text", writeGraph(t, src))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), `undefined block "ghost"`)
}
