// Package pipeline runs the per-file encrypt/decrypt state machine:
// derive key, stream chunks through the chunk cipher, frame them via
// the container codec. Processing is chunk-granular; cancellation and
// progress both happen at chunk boundaries, which bounds peak memory
// to one chunk per in-flight file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/lockme-app/lockme/internal/container"
	"github.com/lockme-app/lockme/internal/crypto"
	"github.com/lockme-app/lockme/internal/events"
	"github.com/lockme-app/lockme/internal/models"
)

// Pipeline stages, reported in errors and debug logs.
const (
	StageDeriveKey  = "derive key"
	StageReadHeader = "read header"
	StageVerifyGate = "verify chunk 0"
	StageProcess    = "process chunk"
	StageFinalize   = "finalize"
)

// Options configures a pipeline.
type Options struct {
	ChunkSize uint32
	KDF       crypto.KDFParams
}

// Pipeline orchestrates single-file encryption and decryption runs.
// It is stateless across runs; each call owns its key, buffers, and
// codec state exclusively.
type Pipeline struct {
	opts   Options
	logger *events.Logger
}

// New creates a pipeline. Zero options fall back to defaults.
func New(opts Options, logger *events.Logger) *Pipeline {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = 4 * 1024 * 1024
	}
	if opts.KDF == (crypto.KDFParams{}) {
		opts.KDF = crypto.DefaultKDFParams()
	}

	return &Pipeline{
		opts:   opts,
		logger: logger.WithField("component", "pipeline"),
	}
}

// ProgressFunc is called after each processed chunk.
type ProgressFunc func(done, total uint64)

// SourceMeta describes the plaintext input of an encrypt run.
type SourceMeta struct {
	Name string
	Size uint64
}

// EncryptResult reports a completed encrypt run.
type EncryptResult struct {
	SuggestedName string
	OriginalSize  uint64
	Chunks        uint64
}

// DecryptResult reports a completed decrypt run.
type DecryptResult struct {
	OriginalName string
	OriginalSize uint64
	Chunks       uint64
}

// SinkFunc supplies the plaintext destination once the container
// header has been parsed. It is only invoked after chunk 0
// authenticates, so a wrong passphrase never creates an output.
type SinkFunc func(h *container.Header) (io.Writer, error)

// Encrypt reads src and writes a container to dst.
func (p *Pipeline) Encrypt(ctx context.Context, src io.Reader, meta SourceMeta, dst io.Writer, passphrase string, progress ProgressFunc) (*EncryptResult, error) {
	if passphrase == "" {
		return nil, models.ErrInvalidPassphrase
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return nil, stageErr(meta.Name, StageDeriveKey, err)
	}
	baseNonce, err := crypto.NewBaseNonce()
	if err != nil {
		return nil, stageErr(meta.Name, StageDeriveKey, err)
	}

	header := &container.Header{
		Version:      container.Version,
		KDF:          p.opts.KDF,
		Salt:         salt,
		BaseNonce:    baseNonce,
		OriginalName: meta.Name,
		OriginalSize: meta.Size,
		ChunkSize:    p.opts.ChunkSize,
	}

	headerBytes, err := header.Marshal()
	if err != nil {
		return nil, stageErr(meta.Name, StageFinalize, err)
	}

	key, err := crypto.DeriveKey(passphrase, salt, p.opts.KDF)
	if err != nil {
		return nil, stageErr(meta.Name, StageDeriveKey, err)
	}
	defer crypto.Zero(key)

	cipher, err := crypto.NewChunkCipher(key, baseNonce)
	if err != nil {
		return nil, stageErr(meta.Name, StageDeriveKey, err)
	}

	if _, err := dst.Write(headerBytes); err != nil {
		return nil, stageErr(meta.Name, StageFinalize, writeErr(err))
	}

	chunks := header.Chunks()
	buf := make([]byte, p.opts.ChunkSize)

	p.runLogger(ctx).WithFields(map[string]interface{}{
		"name":   meta.Name,
		"size":   meta.Size,
		"chunks": chunks,
	}).Debug("Encrypting file")

	for i := uint64(0); i < chunks; i++ {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}

		want := header.ChunkPlaintextLen(i)
		if _, err := io.ReadFull(src, buf[:want]); err != nil {
			return nil, stageErr(meta.Name, StageProcess,
				&models.IOError{Op: "read", Path: meta.Name, Err: err})
		}

		sealed, err := cipher.Seal(i, container.FrameAAD(i, headerBytes), buf[:want])
		if err != nil {
			return nil, stageErr(meta.Name, StageProcess, err)
		}

		if err := container.WriteFrame(dst, i, sealed); err != nil {
			return nil, stageErr(meta.Name, StageProcess, err)
		}

		if progress != nil {
			progress(i+1, chunks)
		}
	}

	return &EncryptResult{
		SuggestedName: meta.Name + container.Suffix,
		OriginalSize:  meta.Size,
		Chunks:        chunks,
	}, nil
}

// Decrypt reads a container from src and streams plaintext into the
// writer supplied by sink. Chunk 0 is opened before the sink exists:
// its tag check is the passphrase correctness gate, and a failure
// there cannot be told apart from corruption.
func (p *Pipeline) Decrypt(ctx context.Context, src io.Reader, sink SinkFunc, passphrase string, progress ProgressFunc) (*DecryptResult, error) {
	if passphrase == "" {
		return nil, models.ErrInvalidPassphrase
	}

	header, headerBytes, err := container.ReadHeader(src)
	if err != nil {
		return nil, stageErr("container", StageReadHeader, err)
	}

	key, err := crypto.DeriveKey(passphrase, header.Salt, header.KDF)
	if err != nil {
		return nil, stageErr(header.OriginalName, StageDeriveKey, err)
	}
	defer crypto.Zero(key)

	cipher, err := crypto.NewChunkCipher(key, header.BaseNonce)
	if err != nil {
		return nil, stageErr(header.OriginalName, StageDeriveKey, err)
	}

	chunks := header.Chunks()
	frames := container.NewFrameReader(src, header)

	p.runLogger(ctx).WithFields(map[string]interface{}{
		"name":   header.OriginalName,
		"size":   header.OriginalSize,
		"chunks": chunks,
	}).Debug("Decrypting container")

	var dst io.Writer
	var written uint64

	for {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}

		index, sealed, err := frames.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stageErr(header.OriginalName, StageProcess, err)
		}

		plain, err := cipher.Open(index, container.FrameAAD(index, headerBytes), sealed)
		if err != nil {
			if index == 0 {
				return nil, stageErr(header.OriginalName, StageVerifyGate,
					models.ErrWrongPassphraseOrCorrupt)
			}
			return nil, stageErr(header.OriginalName, StageProcess, err)
		}

		if dst == nil {
			dst, err = sink(header)
			if err != nil {
				return nil, stageErr(header.OriginalName, StageProcess, err)
			}
		}

		if _, err := dst.Write(plain); err != nil {
			return nil, stageErr(header.OriginalName, StageProcess, writeErr(err))
		}
		written += uint64(len(plain))

		if progress != nil {
			progress(index+1, chunks)
		}
	}

	if written != header.OriginalSize {
		return nil, stageErr(header.OriginalName, StageFinalize,
			fmt.Errorf("decrypted %d bytes, header declares %d: %w",
				written, header.OriginalSize, models.ErrSizeMismatch))
	}

	return &DecryptResult{
		OriginalName: header.OriginalName,
		OriginalSize: header.OriginalSize,
		Chunks:       chunks,
	}, nil
}

// runLogger tags log entries with the batch item ID when the run
// belongs to one.
func (p *Pipeline) runLogger(ctx context.Context) *events.Logger {
	if id := events.GetItemID(ctx); id != "" {
		return p.logger.WithField("item_id", id)
	}
	return p.logger
}

// checkCancel is the chunk-boundary cancellation point. Chunk
// processing itself is never interrupted mid-cipher-call.
func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return models.ErrCancelled
	default:
		return nil
	}
}

func stageErr(name, stage string, err error) error {
	return &models.PipelineError{Name: name, Stage: stage, Err: err}
}

func writeErr(err error) error {
	var ioErr *models.IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &models.IOError{Op: "write", Path: "output", Err: err}
}
