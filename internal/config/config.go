package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all application configuration.
type Config struct {
	// Crypto parameters for new containers
	Crypto CryptoConfig `json:"crypto"`

	// Batch behavior
	Batch BatchConfig `json:"batch"`

	// Activity recording
	Audit AuditConfig `json:"audit"`

	// Passphrase strength advice
	Strength StrengthConfig `json:"strength"`

	// Logging
	Log LogConfig `json:"log"`
}

// CryptoConfig sets key derivation cost and chunking for new containers.
// Decryption always reads these from the container header instead.
type CryptoConfig struct {
	ChunkSize uint32 `json:"chunk_size"` // Plaintext bytes per chunk
	TimeCost  uint32 `json:"time_cost"`  // Argon2id passes
	MemoryKiB uint32 `json:"memory_kib"` // Argon2id memory
	Threads   uint8  `json:"threads"`    // Argon2id lanes
}

// BatchConfig controls the batch coordinator.
type BatchConfig struct {
	MaxConcurrent int   `json:"max_concurrent"` // Worker pool size
	MaxFileSize   int64 `json:"max_file_size"`  // Max source size in bytes
}

// AuditConfig for the local activity store.
type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"` // SQLite database path
}

// StrengthConfig for advisory passphrase scoring.
type StrengthConfig struct {
	Enabled bool `json:"enabled"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
	File   string `json:"file"`   // Log file path (empty = stderr)
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".lockme"

	return &Config{
		Crypto: CryptoConfig{
			ChunkSize: 4 * 1024 * 1024, // 4MiB chunks
			TimeCost:  3,
			MemoryKiB: 64 * 1024, // 64MiB
			Threads:   4,
		},
		Batch: BatchConfig{
			MaxConcurrent: 4,
			MaxFileSize:   2 * 1024 * 1024 * 1024, // 2GB
		},
		Audit: AuditConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "activity.db"),
		},
		Strength: StrengthConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Crypto.ChunkSize == 0 {
		return errors.New("crypto.chunk_size must be positive")
	}

	if c.Crypto.TimeCost == 0 {
		return errors.New("crypto.time_cost must be positive")
	}

	if c.Crypto.MemoryKiB < 8 {
		return errors.New("crypto.memory_kib must be at least 8")
	}

	if c.Crypto.Threads == 0 {
		return errors.New("crypto.threads must be positive")
	}

	if c.Batch.MaxConcurrent <= 0 {
		return errors.New("batch.max_concurrent must be positive")
	}

	if c.Batch.MaxFileSize <= 0 {
		return errors.New("batch.max_file_size must be positive")
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		return errors.New("audit.path is required when audit is enabled")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	var dirs []string

	if c.Audit.Enabled {
		dirs = append(dirs, filepath.Dir(c.Audit.Path))
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
