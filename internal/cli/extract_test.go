package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runExtractCmd(t *testing.T, format string, path string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewExtractCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})
	return buf, cmd.Execute()
}

func TestExtractText(t *testing.T) {
	buf, err := runExtractCmd(t, "text", writeGraph(t, voicesGraph))
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ Extracted 1 child surface(s)")
	assert.Contains(t, output, "surface root#4\n")
	assert.Contains(t, output, "  node 2: extract root.extracted0#5 sources=[0] dests=[1] sockets=[0:r 1:w]")
	assert.Contains(t, output, "surface root.extracted0#5\n")
	assert.Contains(t, output, "  group 0: num source=socket(0)")
	assert.Contains(t, output, "  node 0: block filter#2 sockets=[0:r 1:w]")
}

func TestExtractJSON(t *testing.T) {
	buf, err := runExtractCmd(t, "json", writeGraph(t, voicesGraph))
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Surfaces []struct {
				ID struct {
					ID        uint64 `json:"id"`
					DebugName string `json:"debug_name"`
				} `json:"id"`
				Nodes []map[string]any `json:"nodes"`
			} `json:"surfaces"`
			Extracted []string `json:"extracted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"root.extracted0#5"}, resp.Data.Extracted)
	require.Len(t, resp.Data.Surfaces, 2)
	require.Len(t, resp.Data.Surfaces[0].Nodes, 3)
	assert.Equal(t, "extract_group", resp.Data.Surfaces[0].Nodes[2]["kind"])
}

func TestExtractNoExtractors(t *testing.T) {
	buf, err := runExtractCmd(t, "text", writeGraph(t, cycleGraph))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ Extracted 0 child surface(s)")
}

func TestExtractValidationFailure(t *testing.T) {
	buf, err := runExtractCmd(t, "text", writeGraph(t, badSocketGraph))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E201")
}
