package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockme-app/lockme/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, uint32(4*1024*1024), cfg.Crypto.ChunkSize)
	assert.Equal(t, uint32(3), cfg.Crypto.TimeCost)
	assert.Equal(t, uint32(64*1024), cfg.Crypto.MemoryKiB)
	assert.Equal(t, uint8(4), cfg.Crypto.Threads)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrent)
	assert.True(t, cfg.Audit.Enabled)
	assert.True(t, cfg.Strength.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "zero chunk size",
			mutate:  func(c *config.Config) { c.Crypto.ChunkSize = 0 },
			wantErr: "chunk_size",
		},
		{
			name:    "zero time cost",
			mutate:  func(c *config.Config) { c.Crypto.TimeCost = 0 },
			wantErr: "time_cost",
		},
		{
			name:    "memory too small",
			mutate:  func(c *config.Config) { c.Crypto.MemoryKiB = 4 },
			wantErr: "memory_kib",
		},
		{
			name:    "zero threads",
			mutate:  func(c *config.Config) { c.Crypto.Threads = 0 },
			wantErr: "threads",
		},
		{
			name:    "non-positive concurrency",
			mutate:  func(c *config.Config) { c.Batch.MaxConcurrent = 0 },
			wantErr: "max_concurrent",
		},
		{
			name: "audit enabled without path",
			mutate: func(c *config.Config) {
				c.Audit.Enabled = true
				c.Audit.Path = ""
			},
			wantErr: "audit.path",
		},
		{
			name:    "bad log level",
			mutate:  func(c *config.Config) { c.Log.Level = "verbose" },
			wantErr: "log level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *config.Config) { c.Log.Format = "xml" },
			wantErr: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lockme.json")

	content := `{
		"crypto": {"chunk_size": 1048576, "time_cost": 2, "memory_kib": 32768, "threads": 2},
		"batch": {"max_concurrent": 8, "max_file_size": 1073741824},
		"audit": {"enabled": false, "path": ""},
		"log": {"level": "debug", "format": "json"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := config.NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, uint32(1048576), cfg.Crypto.ChunkSize)
	assert.Equal(t, uint32(2), cfg.Crypto.TimeCost)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrent)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lockme.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"batch": {"max_concurrent": 2}}`), 0600))

	t.Setenv("LOCKME_MAX_CONCURRENT", "16")
	t.Setenv("LOCKME_CHUNK_SIZE", "65536")
	t.Setenv("LOCKME_AUDIT_ENABLED", "false")
	t.Setenv("LOCKME_LOG_LEVEL", "ERROR")

	cfg, err := config.NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Batch.MaxConcurrent)
	assert.Equal(t, uint32(65536), cfg.Crypto.ChunkSize)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("LOCKME_CHUNK_SIZE", "not-a-number")

	_, err := config.NewLoader("").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHUNK_SIZE")
}

func TestLoader_MissingExplicitFile(t *testing.T) {
	_, err := config.NewLoader(filepath.Join(t.TempDir(), "nope.json")).Load()
	assert.Error(t, err)
}

func TestLoader_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lockme.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := config.NewLoader(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse JSON")
}

func TestSaveExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.json")
	require.NoError(t, config.SaveExample(path))

	cfg, err := config.NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}
