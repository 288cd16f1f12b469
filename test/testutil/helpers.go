// Package testutil provides shared fixtures for engine tests.
package testutil

import (
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockme-app/lockme/internal/crypto"
	"github.com/lockme-app/lockme/internal/events"
)

// TestLogger returns a quiet logger for tests.
func TestLogger() *events.Logger {
	return events.NewTestLogger(events.ErrorLevel, "text", io.Discard)
}

// FastKDFParams returns weak Argon2id parameters so tests spend their
// time on the code under test instead of key stretching. Production
// defaults are exercised separately.
func FastKDFParams() crypto.KDFParams {
	return crypto.KDFParams{
		Algorithm: crypto.KDFArgon2id,
		TimeCost:  1,
		MemoryKiB: 64,
		Threads:   1,
	}
}

// DeterministicBytes returns size bytes from a seeded PRNG so tests
// are reproducible without shipping fixtures.
func DeterministicBytes(seed int64, size int) []byte {
	data := make([]byte, size)
	r := rand.New(rand.NewSource(seed))
	r.Read(data)
	return data
}

// WriteTempFile creates a file with content under dir.
func WriteTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// AssertFileContent checks file content matches expected bytes.
func AssertFileContent(t *testing.T, path string, expected []byte) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expected, content)
}

// AssertFileNotExists checks that a file does not exist.
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file should not exist: %s", path)
}
