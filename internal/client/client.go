// Package client wires configuration into the engine and exposes the
// high-level API consumed by user-facing layers.
package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lockme-app/lockme/internal/audit"
	"github.com/lockme-app/lockme/internal/batch"
	"github.com/lockme-app/lockme/internal/config"
	"github.com/lockme-app/lockme/internal/crypto"
	"github.com/lockme-app/lockme/internal/events"
	"github.com/lockme-app/lockme/internal/models"
	"github.com/lockme-app/lockme/internal/pipeline"
	"github.com/lockme-app/lockme/internal/storage"
	"github.com/lockme-app/lockme/internal/strength"
)

// Client provides the high-level API for LockMe operations.
type Client struct {
	Batch    *batch.Coordinator
	Strength strength.Advisor
	Audit    audit.Recorder

	config *config.Config
	logger *events.Logger
}

// New creates a client from config.
func New(cfg *config.Config, logger *events.Logger) (*Client, error) {
	store := storage.NewLocalStore(cfg.Batch.MaxFileSize, logger)

	pipe := pipeline.New(pipeline.Options{
		ChunkSize: cfg.Crypto.ChunkSize,
		KDF: crypto.KDFParams{
			Algorithm: crypto.KDFArgon2id,
			TimeCost:  cfg.Crypto.TimeCost,
			MemoryKiB: cfg.Crypto.MemoryKiB,
			Threads:   cfg.Crypto.Threads,
		},
	}, logger)

	var recorder audit.Recorder = audit.NopRecorder{}
	if cfg.Audit.Enabled {
		rec, err := audit.NewSQLiteRecorder(cfg.Audit.Path, logger)
		if err != nil {
			// The activity store is advisory; its absence never
			// blocks encryption or decryption.
			logger.WithError(err).Warn("Activity store unavailable, recording disabled")
		} else {
			recorder = rec
		}
	}

	var advisor strength.Advisor
	if cfg.Strength.Enabled {
		advisor = strength.NewEstimator()
	}

	coordinator := batch.NewCoordinator(pipe, store, recorder, cfg.Batch.MaxConcurrent, logger)

	return &Client{
		Batch:    coordinator,
		Strength: advisor,
		Audit:    recorder,
		config:   cfg,
		logger:   logger,
	}, nil
}

// EncryptFiles submits an encrypt batch over the given source paths.
func (c *Client) EncryptFiles(ctx context.Context, paths []string, outputDir, passphrase string) (<-chan batch.Event, error) {
	items, err := buildItems(paths, outputDir, models.ModeEncrypt)
	if err != nil {
		return nil, err
	}
	return c.Batch.Submit(ctx, items, passphrase)
}

// DecryptFiles submits a decrypt batch over the given containers.
func (c *Client) DecryptFiles(ctx context.Context, paths []string, outputDir, passphrase string) (<-chan batch.Event, error) {
	items, err := buildItems(paths, outputDir, models.ModeDecrypt)
	if err != nil {
		return nil, err
	}
	return c.Batch.Submit(ctx, items, passphrase)
}

// Advise returns passphrase strength advice, or false when no
// advisor is available. Advice never gates encryption.
func (c *Client) Advise(passphrase string) (strength.Advice, bool) {
	if c.Strength == nil || !c.Strength.Available() {
		return strength.Advice{}, false
	}
	return c.Strength.Assess(passphrase), true
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.Audit.Close()
}

// buildItems turns paths into batch items with stable IDs.
func buildItems(paths []string, outputDir string, mode models.Mode) ([]models.BatchItem, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input files")
	}

	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, &models.IOError{Op: "mkdir", Path: outputDir, Err: err}
	}

	items := make([]models.BatchItem, 0, len(paths))
	for i, path := range paths {
		items = append(items, models.BatchItem{
			ID:         fmt.Sprintf("item-%d-%s", i, filepath.Base(path)),
			Mode:       mode,
			SourcePath: path,
			OutputDir:  outputDir,
		})
	}

	return items, nil
}
