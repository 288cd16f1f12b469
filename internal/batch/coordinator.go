// Package batch runs the per-file pipeline over a queue of items
// with bounded parallelism. Items are fully independent: each owns
// its key, buffers, and codec state, so the worker-pool admission
// gate is the only synchronization point, and one item's failure
// never aborts another.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/lockme-app/lockme/internal/audit"
	"github.com/lockme-app/lockme/internal/container"
	"github.com/lockme-app/lockme/internal/events"
	"github.com/lockme-app/lockme/internal/models"
	"github.com/lockme-app/lockme/internal/pipeline"
	"github.com/lockme-app/lockme/internal/storage"
)

// EventType defines batch event types.
type EventType string

const (
	EventItemStarted   EventType = "item_started"
	EventItemProgress  EventType = "item_progress"
	EventItemSucceeded EventType = "item_succeeded"
	EventItemFailed    EventType = "item_failed"
	EventItemCancelled EventType = "item_cancelled"
)

// Event is one coordinator notification. Every event carries the
// originating item's ID; completion order is not submission order.
type Event struct {
	ItemID    string
	Type      EventType
	Timestamp time.Time

	// Progress fraction, 0..1, on progress events.
	Progress float64

	// OutputPath of the committed result, on success.
	OutputPath string

	// Error and its classification code, on failure.
	Err     error
	ErrCode string
}

// Terminal reports whether the event ends its item.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventItemSucceeded, EventItemFailed, EventItemCancelled:
		return true
	default:
		return false
	}
}

// Coordinator dispatches batch items to pipeline runs.
type Coordinator struct {
	pipeline *pipeline.Pipeline
	store    *storage.LocalStore
	recorder audit.Recorder
	logger   *events.Logger

	maxConcurrent int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewCoordinator creates a batch coordinator.
func NewCoordinator(p *pipeline.Pipeline, store *storage.LocalStore, recorder audit.Recorder, maxConcurrent int, logger *events.Logger) *Coordinator {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}

	return &Coordinator{
		pipeline:      p,
		store:         store,
		recorder:      recorder,
		logger:        logger.WithField("component", "batch"),
		maxConcurrent: maxConcurrent,
		cancels:       make(map[string]context.CancelFunc),
	}
}

// Submit starts processing items and returns the event stream. The
// channel closes once every item has reached a terminal state.
// Cancelling ctx cancels the whole batch; CancelItem cancels one
// in-flight item.
func (c *Coordinator) Submit(ctx context.Context, items []models.BatchItem, passphrase string) (<-chan Event, error) {
	if len(items) == 0 {
		return nil, errors.New("empty batch")
	}

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item.ID == "" {
			return nil, errors.New("batch item without ID")
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("duplicate batch item ID %q", item.ID)
		}
		seen[item.ID] = true

		if item.Mode != models.ModeEncrypt && item.Mode != models.ModeDecrypt {
			return nil, fmt.Errorf("batch item %s: unknown mode %q", item.ID, item.Mode)
		}
	}

	// Buffer terminal events so workers never block on a consumer
	// that only reads until the event it cares about.
	out := make(chan Event, len(items)*2)

	go func() {
		defer close(out)

		sem := make(chan struct{}, c.maxConcurrent)
		var wg sync.WaitGroup

		for _, item := range items {
			wg.Add(1)
			go func(item models.BatchItem) {
				defer wg.Done()

				sem <- struct{}{}
				defer func() { <-sem }()

				c.runItem(ctx, item, passphrase, out)
			}(item)
		}

		wg.Wait()
	}()

	return out, nil
}

// CancelItem cancels one in-flight item. Pending or finished items
// are unaffected.
func (c *Coordinator) CancelItem(id string) {
	c.mu.Lock()
	cancel, ok := c.cancels[id]
	c.mu.Unlock()

	if ok {
		c.logger.WithField("item_id", id).Info("Cancelling item")
		cancel()
	}
}

// runItem executes one item's pipeline run and emits its events.
func (c *Coordinator) runItem(ctx context.Context, item models.BatchItem, passphrase string, out chan<- Event) {
	itemCtx, cancel := context.WithCancel(events.WithItemID(ctx, item.ID))
	defer cancel()

	c.mu.Lock()
	c.cancels[item.ID] = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.cancels, item.ID)
		c.mu.Unlock()
	}()

	logger := c.logger.WithFields(map[string]interface{}{
		"item_id": item.ID,
		"mode":    string(item.Mode),
		"source":  item.SourcePath,
	})
	logger.Debug("Item started")

	c.emit(out, Event{
		ItemID:    item.ID,
		Type:      EventItemStarted,
		Timestamp: time.Now(),
	}, true)

	progress := func(done, total uint64) {
		c.emit(out, Event{
			ItemID:    item.ID,
			Type:      EventItemProgress,
			Timestamp: time.Now(),
			Progress:  float64(done) / float64(total),
		}, false)
	}

	var outputPath string
	var err error

	switch item.Mode {
	case models.ModeEncrypt:
		outputPath, err = c.encryptItem(itemCtx, item, passphrase, progress)
	case models.ModeDecrypt:
		outputPath, err = c.decryptItem(itemCtx, item, passphrase, progress)
	}

	state := models.StateSucceeded
	event := Event{
		ItemID:     item.ID,
		Timestamp:  time.Now(),
		OutputPath: outputPath,
	}

	switch {
	case err == nil:
		event.Type = EventItemSucceeded
		event.Progress = 1
		logger.WithField("output", outputPath).Info("Item succeeded")

	case errors.Is(err, models.ErrCancelled):
		state = models.StateCancelled
		event.Type = EventItemCancelled
		event.OutputPath = ""
		event.Err = err
		event.ErrCode = models.ErrCodeCancelled
		logger.Info("Item cancelled")

	default:
		state = models.StateFailed
		event.Type = EventItemFailed
		event.OutputPath = ""
		event.Err = err
		event.ErrCode = models.Classify(err)
		logger.WithError(err).WithField("code", event.ErrCode).Error("Item failed")
	}

	c.emit(out, event, true)
	c.record(item, state, event.ErrCode)
}

// encryptItem runs one encrypt pipeline with atomic output handling.
func (c *Coordinator) encryptItem(ctx context.Context, item models.BatchItem, passphrase string, progress pipeline.ProgressFunc) (string, error) {
	src, size, err := c.store.OpenRead(item.SourcePath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := filepath.Base(item.SourcePath)
	outPath := filepath.Join(item.OutputDir, name+container.Suffix)

	dst, err := c.store.CreateAtomic(outPath)
	if err != nil {
		return "", err
	}
	defer dst.Discard()

	meta := pipeline.SourceMeta{Name: name, Size: uint64(size)}
	if _, err := c.pipeline.Encrypt(ctx, src, meta, dst, passphrase, progress); err != nil {
		return "", err
	}

	if err := dst.Commit(); err != nil {
		return "", err
	}

	return outPath, nil
}

// decryptItem runs one decrypt pipeline. The output file is created
// only after chunk 0 authenticates, under the header's (sanitized)
// original filename.
func (c *Coordinator) decryptItem(ctx context.Context, item models.BatchItem, passphrase string, progress pipeline.ProgressFunc) (string, error) {
	src, _, err := c.store.OpenRead(item.SourcePath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	var dst *storage.AtomicFile
	defer func() {
		if dst != nil {
			dst.Discard()
		}
	}()

	sink := func(h *container.Header) (io.Writer, error) {
		outPath := filepath.Join(item.OutputDir, storage.SafeName(h.OriginalName))

		var err error
		dst, err = c.store.CreateAtomic(outPath)
		if err != nil {
			return nil, err
		}
		return dst, nil
	}

	if _, err := c.pipeline.Decrypt(ctx, src, sink, passphrase, progress); err != nil {
		return "", err
	}

	if dst == nil {
		return "", fmt.Errorf("decrypt produced no output: %w", models.ErrTruncatedContainer)
	}

	if err := dst.Commit(); err != nil {
		return "", err
	}

	return dst.Path(), nil
}

// emit sends an event. Terminal events always deliver; progress
// events are dropped when the consumer lags.
func (c *Coordinator) emit(out chan<- Event, event Event, block bool) {
	if block {
		out <- event
		return
	}

	select {
	case out <- event:
	default:
	}
}

// record writes the activity entry. Recording is fire-and-forget:
// failures are logged and never change the item's outcome.
func (c *Coordinator) record(item models.BatchItem, state models.ItemState, errCode string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rec := audit.Record{
		Kind:    string(item.Mode),
		ItemID:  item.ID,
		Name:    filepath.Base(item.SourcePath),
		Outcome: state.String(),
		Error:   errCode,
		Time:    time.Now(),
	}

	if err := c.recorder.Record(ctx, rec); err != nil {
		c.logger.WithError(err).Warn("Failed to record activity")
	}
}
