package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/maxim/internal/codegen"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, codegen.DefaultCapacity, cfg.Target.Capacity)
	assert.NoError(t, cfg.Validate())
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("target:\n  capacity: 16\n"))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Target.Capacity)
	assert.False(t, cfg.Target.IncludeUI)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "target:\n  voices: 4\n", "field voices not found"},
		{"capacity too large", "target:\n  capacity: 65\n", "BAD_TARGET"},
		{"capacity zero", "target:\n  capacity: 0\n", "BAD_TARGET"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"malformed", "target: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "maxim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target:\n  capacity: 4\n  include_ui: true\nlog:\n  level: debug\n  format: json\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, codegen.TargetProperties{Capacity: 4, IncludeUI: true}, cfg.Target)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}

	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
