package storage_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockme-app/lockme/internal/events"
	"github.com/lockme-app/lockme/internal/models"
	"github.com/lockme-app/lockme/internal/storage"
)

func newTestStore(t *testing.T, maxFileSize int64) *storage.LocalStore {
	t.Helper()

	logger := events.NewTestLogger(events.ErrorLevel, "text", io.Discard)
	return storage.NewLocalStore(maxFileSize, logger)
}

func TestLocalStore_OpenRead(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, 0)

	path := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	f, size, err := store.OpenRead(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, int64(5), size)

	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), content)
}

func TestLocalStore_OpenReadErrors(t *testing.T) {
	dir := t.TempDir()

	big := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(big, make([]byte, 100), 0644))

	tests := []struct {
		name  string
		store *storage.LocalStore
		path  string
	}{
		{"missing file", newTestStore(t, 0), filepath.Join(dir, "missing")},
		{"directory", newTestStore(t, 0), dir},
		{"over size limit", newTestStore(t, 10), big},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.store.OpenRead(tt.path)
			require.Error(t, err)

			var ioErr *models.IOError
			assert.ErrorAs(t, err, &ioErr)
		})
	}
}

func TestAtomicFile_Commit(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, 0)

	path := filepath.Join(dir, "nested", "out.bin")
	f, err := store.CreateAtomic(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path())

	_, err = f.Write([]byte("part one "))
	require.NoError(t, err)
	_, err = f.Write([]byte("part two"))
	require.NoError(t, err)

	// Nothing visible at the destination until Commit.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, f.Commit())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("part one part two"), content)

	// Commit is idempotent; a late Discard must not remove the result.
	assert.NoError(t, f.Commit())
	f.Discard()
	assert.FileExists(t, path)
}

func TestAtomicFile_Discard(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, 0)

	path := filepath.Join(dir, "out.bin")
	f, err := store.CreateAtomic(path)
	require.NoError(t, err)

	_, err = f.Write([]byte("partial result"))
	require.NoError(t, err)

	f.Discard()

	// Neither the destination nor any temp file survives.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain name", "report.pdf", "report.pdf"},
		{"unix path", "/etc/passwd", "passwd"},
		{"traversal", "../../etc/passwd", "passwd"},
		{"windows path", `..\..\windows\system32\cmd.exe`, "cmd.exe"},
		{"null byte", "evil\x00.txt", "evil.txt"},
		{"empty", "", "decrypted.out"},
		{"dot", ".", "decrypted.out"},
		{"dot dot", "..", "decrypted.out"},
		{"bare slash", "/", "decrypted.out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.SafeName(tt.in))
		})
	}
}
