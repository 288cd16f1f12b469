package models

import (
	"errors"
	"fmt"
)

// Error codes for structured error handling.
const (
	ErrCodePassphrase = "PASSPHRASE_ERROR"
	ErrCodeFormat     = "FORMAT_ERROR"
	ErrCodeIntegrity  = "INTEGRITY_ERROR"
	ErrCodeIO         = "IO_ERROR"
	ErrCodeCancelled  = "CANCELLED"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// Sentinel errors
var (
	ErrInvalidPassphrase = errors.New("passphrase must not be empty")

	// Container format errors
	ErrUnsupportedVersion = errors.New("unsupported container version")
	ErrMalformedHeader    = errors.New("malformed container header")
	ErrTruncatedContainer = errors.New("truncated container")
	ErrSizeMismatch       = errors.New("container size mismatch")

	// Authentication failures. Chunk 0 doubles as the passphrase
	// correctness gate, so its failure is deliberately ambiguous.
	ErrWrongPassphraseOrCorrupt = errors.New("wrong passphrase or corrupted container")
	ErrIntegrityViolation       = errors.New("chunk authentication failed")

	ErrNonceReuse = errors.New("nonce reuse refused")
	ErrCancelled  = errors.New("operation cancelled")
)

// FormatError describes a structural problem in a container.
type FormatError struct {
	Name   string
	Detail string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("container %s: %s: %v", e.Name, e.Detail, e.Err)
	}
	return fmt.Sprintf("container %s: %v", e.Name, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// PipelineError reports which stage of a file's pipeline run failed.
type PipelineError struct {
	Name  string
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Name, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IOError represents a source or destination I/O failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Classify maps an error to one of the error code constants so callers
// can branch on the failure kind without string matching.
func Classify(err error) string {
	var ioErr *IOError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return ErrCodeCancelled
	case errors.Is(err, ErrInvalidPassphrase):
		return ErrCodePassphrase
	case errors.Is(err, ErrWrongPassphraseOrCorrupt),
		errors.Is(err, ErrIntegrityViolation):
		return ErrCodeIntegrity
	case errors.Is(err, ErrUnsupportedVersion),
		errors.Is(err, ErrMalformedHeader),
		errors.Is(err, ErrTruncatedContainer),
		errors.Is(err, ErrSizeMismatch):
		return ErrCodeFormat
	case errors.As(err, &ioErr):
		return ErrCodeIO
	default:
		return ErrCodeInternal
	}
}
