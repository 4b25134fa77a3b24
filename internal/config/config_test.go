package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Engine.MaxReasoningDepth)
	assert.Equal(t, 10.0, cfg.Engine.InitialLambda)
	assert.Equal(t, ":8090", cfg.Server.Addr)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Storage.DatabasePath, cfg.Storage.DatabasePath)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"engine:\n  max_reasoning_depth: 6\nserver:\n  addr: \":9000\"\n",
	), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Engine.MaxReasoningDepth)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	// Untouched sections keep their defaults.
	assert.Equal(t, 10.0, cfg.Engine.InitialLambda)
	assert.Equal(t, 4096, cfg.Server.MaxQueryLength)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [broken"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AXIOMIND_DB", "/tmp/override.db")
	t.Setenv("AXIOMIND_ADDR", ":7777")
	t.Setenv("AXIOMIND_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Storage.DatabasePath)
	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"depth too low", func(c *Config) { c.Engine.MaxReasoningDepth = 0 }},
		{"depth too high", func(c *Config) { c.Engine.MaxReasoningDepth = 11 }},
		{"lambda not positive", func(c *Config) { c.Engine.InitialLambda = 0 }},
		{"query length not positive", func(c *Config) { c.Server.MaxQueryLength = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Addr = ":6060"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6060", loaded.Server.Addr)
}

func TestGetShutdownTimeoutFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.ShutdownTimeout = "not a duration"
	assert.Equal(t, cfg.GetShutdownTimeout().String(), "10s")
}
