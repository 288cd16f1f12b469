// Package audit records "operation happened" events locally. The
// engine treats recording as fire-and-forget: a failed or missing
// recorder never affects an item's outcome.
package audit

import (
	"context"
	"time"
)

// Record is one activity entry.
type Record struct {
	Kind    string    // encrypt | decrypt
	ItemID  string    // batch item identity
	Name    string    // source or container name
	Outcome string    // terminal item state
	Error   string    // error code, empty on success
	Time    time.Time // completion time
}

// Recorder persists activity records.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// NopRecorder discards everything. Used when audit is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Record) error { return nil }

func (NopRecorder) List(context.Context, int) ([]Record, error) { return nil, nil }

func (NopRecorder) Close() error { return nil }
