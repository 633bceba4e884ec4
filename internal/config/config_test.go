package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
	assert.Equal(t, "query-pipeline", cfg.Temporal.TaskQueue)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 30, cfg.SQL.TimeoutSeconds)
	assert.Equal(t, 1000, cfg.SQL.MaxRows)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
temporal:
  task_queue: custom-queue
data_dir: /var/lib/query
max_retries: 3
`), 0o644))

	t.Setenv("QUERY_DATA_DIR", "/tmp/override")
	t.Setenv("QUERY_SQL_MAX_ROWS", "50")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-queue", cfg.Temporal.TaskQueue)
	assert.Equal(t, "/tmp/override", cfg.DataDir)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 50, cfg.SQL.MaxRows)
}
