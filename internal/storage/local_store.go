package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lockme-app/lockme/internal/events"
	"github.com/lockme-app/lockme/internal/models"
)

// LocalStore implements source reads and atomic result writes for
// the batch coordinator. Outputs go through a temp file plus rename
// so a failed or cancelled pipeline run never leaves a partial
// result behind.
type LocalStore struct {
	logger      *events.Logger
	maxFileSize int64
}

// NewLocalStore creates a local file store.
func NewLocalStore(maxFileSize int64, logger *events.Logger) *LocalStore {
	return &LocalStore{
		logger:      logger.WithField("component", "local_store"),
		maxFileSize: maxFileSize,
	}
}

// OpenRead opens a source file and returns its size.
func (s *LocalStore) OpenRead(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, &models.IOError{Op: "open", Path: path, Err: err}
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, &models.IOError{Op: "stat", Path: path, Err: err}
	}

	if stat.IsDir() {
		f.Close()
		return nil, 0, &models.IOError{Op: "open", Path: path, Err: fmt.Errorf("is a directory")}
	}

	if s.maxFileSize > 0 && stat.Size() > s.maxFileSize {
		f.Close()
		return nil, 0, &models.IOError{
			Op:   "open",
			Path: path,
			Err:  fmt.Errorf("file too large: %d bytes (max %d)", stat.Size(), s.maxFileSize),
		}
	}

	return f, stat.Size(), nil
}

// CreateAtomic opens a temp file next to path. Commit renames it into
// place; Discard removes it.
func (s *LocalStore) CreateAtomic(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &models.IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tempPath := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return nil, &models.IOError{Op: "create", Path: tempPath, Err: err}
	}

	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"temp": tempPath,
	}).Debug("Opened atomic writer")

	return &AtomicFile{
		file:     f,
		tempPath: tempPath,
		path:     path,
	}, nil
}

// AtomicFile is a pending output file.
type AtomicFile struct {
	file     *os.File
	tempPath string
	path     string
	done     bool
}

// Write implements io.Writer.
func (a *AtomicFile) Write(p []byte) (int, error) {
	n, err := a.file.Write(p)
	if err != nil {
		return n, &models.IOError{Op: "write", Path: a.tempPath, Err: err}
	}
	return n, nil
}

// Commit syncs and renames the temp file into place.
func (a *AtomicFile) Commit() error {
	if a.done {
		return nil
	}
	a.done = true

	if err := a.file.Sync(); err != nil {
		a.file.Close()
		_ = os.Remove(a.tempPath)
		return &models.IOError{Op: "sync", Path: a.tempPath, Err: err}
	}
	if err := a.file.Close(); err != nil {
		_ = os.Remove(a.tempPath)
		return &models.IOError{Op: "close", Path: a.tempPath, Err: err}
	}
	if err := os.Rename(a.tempPath, a.path); err != nil {
		_ = os.Remove(a.tempPath)
		return &models.IOError{Op: "rename", Path: a.path, Err: err}
	}
	return nil
}

// Discard removes the temp file. Safe to call after Commit.
func (a *AtomicFile) Discard() {
	if a.done {
		return
	}
	a.done = true
	a.file.Close()
	_ = os.Remove(a.tempPath)
}

// Path returns the final destination path.
func (a *AtomicFile) Path() string {
	return a.path
}

// SafeName reduces a stored original filename to a plain base name.
// Container headers are attacker-controlled input, so separators and
// traversal sequences must never reach the filesystem.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.FromSlash(name))
	name = strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, name)

	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "decrypted.out"
	}
	return name
}
