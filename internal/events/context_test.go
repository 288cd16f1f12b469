package events_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lockme-app/lockme/internal/events"
)

func TestContextItemID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, events.GetItemID(ctx))

	ctx = events.WithItemID(ctx, "item-7")
	assert.Equal(t, "item-7", events.GetItemID(ctx))
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.InfoLevel, "text", &buf)

	ctx := events.WithLogger(context.Background(), logger)
	events.FromContext(ctx).Info("from context")

	assert.Contains(t, buf.String(), "from context")
}

func TestWithItemIDTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.InfoLevel, "text", &buf)

	ctx := events.WithLogger(context.Background(), logger)
	ctx = events.WithItemID(ctx, "item-9")
	events.FromContext(ctx).Info("tagged")

	assert.Contains(t, buf.String(), "item_id=item-9")
}
