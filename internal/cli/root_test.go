package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// voicesGraph is voices -> filter -> out with extractor sockets on both
// ends, so filter is extracted into root.extracted0.
const voicesGraph = `
block: voices: {}
block: filter: {}
block: out: {}

surface: root: {
	groups: [{type: "num[]"}, {type: "num[]"}]
	nodes: [
		{block: "voices", sockets: [{group: 0, write: true, extractor: true}]},
		{block: "filter", sockets: [{group: 0, read: true}, {group: 1, write: true}]},
		{block: "out", sockets: [{group: 1, read: true, extractor: true}]},
	]
}
`

// writeGraph writes src to a .cue file in a fresh directory.
func writeGraph(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "maxim", cmd.Use)
	assert.Contains(t, cmd.Long, "lifecycle procedures")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "extract", "validate", "simulate"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	outputFlag := compileCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)

	require.NotNil(t, compileCmd.Flags().Lookup("db"))
	capacityFlag := compileCmd.Flags().Lookup("capacity")
	require.NotNil(t, capacityFlag)
	assert.Equal(t, "0", capacityFlag.DefValue)
}

func TestSimulateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	simCmd, _, err := cmd.Find([]string{"simulate"})
	require.NoError(t, err)

	for _, name := range []string{"golden", "update", "filter"} {
		assert.NotNil(t, simCmd.Flags().Lookup(name), "flag %s", name)
	}
}

func TestInvalidFormat(t *testing.T) {
	path := writeGraph(t, voicesGraph)

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "validate", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootOptions_LoadConfig(t *testing.T) {
	opts := &RootOptions{}
	cfg, err := opts.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Target.Capacity)

	path := filepath.Join(t.TempDir(), "maxim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target:\n  capacity: 4\n"), 0644))
	opts.Config = path
	cfg, err = opts.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Target.Capacity)
}

func TestRootOptions_VerboseLogsDebug(t *testing.T) {
	opts := &RootOptions{Verbose: true}
	cfg, err := opts.LoadConfig()
	require.NoError(t, err)

	var buf bytes.Buffer
	opts.Logger(cfg, &buf).Debug("detail")
	assert.Contains(t, buf.String(), "detail")
	assert.Equal(t, "info", cfg.Log.Level, "config must not be mutated")
}

func TestBadConfigIsCommandError(t *testing.T) {
	path := writeGraph(t, voicesGraph)
	configPath := filepath.Join(t.TempDir(), "maxim.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("target:\n  voices: 4\n"), 0644))

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text", Config: configPath})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeConfig)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))

	wrapped := WrapExitError(ExitFailure, "failed", errors.New("cause"))
	assert.Equal(t, "failed: cause", wrapped.Error())
	assert.Equal(t, "cause", errors.Unwrap(wrapped).Error())
}
