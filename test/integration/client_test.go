package integration_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockme-app/lockme/internal/batch"
	"github.com/lockme-app/lockme/internal/client"
	"github.com/lockme-app/lockme/internal/config"
	"github.com/lockme-app/lockme/internal/strength"
	"github.com/lockme-app/lockme/test/testutil"
)

// newTestClient builds a client with fast KDF costs and an activity
// database under the test's temp dir.
func newTestClient(t *testing.T, dir string) *client.Client {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Crypto.ChunkSize = 1024
	cfg.Crypto.TimeCost = 1
	cfg.Crypto.MemoryKiB = 64
	cfg.Crypto.Threads = 1
	cfg.Audit.Path = filepath.Join(dir, "activity.db")

	c, err := client.New(cfg, testutil.TestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func drain(t *testing.T, ch <-chan batch.Event) map[string]batch.Event {
	t.Helper()

	terminals := make(map[string]batch.Event)
	for event := range ch {
		if event.Terminal() {
			terminals[event.ItemID] = event
		}
	}
	return terminals
}

func TestClient_EncryptDecryptBatch(t *testing.T) {
	dir := t.TempDir()
	c := newTestClient(t, dir)
	ctx := context.Background()

	contents := map[string][]byte{
		"small.txt": testutil.DeterministicBytes(1, 100),
		"multi.bin": testutil.DeterministicBytes(2, 1024*5+3),
		"empty.dat": {},
	}

	var paths []string
	for name, content := range contents {
		paths = append(paths, testutil.WriteTempFile(t, dir, filepath.Join("src", name), content))
	}

	sealedDir := filepath.Join(dir, "sealed")
	ch, err := c.EncryptFiles(ctx, paths, sealedDir, "a decent passphrase 42")
	require.NoError(t, err)

	var sealedPaths []string
	for _, event := range drain(t, ch) {
		require.Equal(t, batch.EventItemSucceeded, event.Type)
		assert.Equal(t, ".lockme", filepath.Ext(event.OutputPath))
		sealedPaths = append(sealedPaths, event.OutputPath)
	}
	require.Len(t, sealedPaths, 3)

	restoredDir := filepath.Join(dir, "restored")
	ch, err = c.DecryptFiles(ctx, sealedPaths, restoredDir, "a decent passphrase 42")
	require.NoError(t, err)

	for _, event := range drain(t, ch) {
		require.Equal(t, batch.EventItemSucceeded, event.Type)
	}

	for name, content := range contents {
		testutil.AssertFileContent(t, filepath.Join(restoredDir, name), content)
	}

	// Both batches were recorded.
	records, err := c.Audit.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 6)
}

func TestClient_WrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	c := newTestClient(t, dir)
	ctx := context.Background()

	src := testutil.WriteTempFile(t, dir, "secret.txt", testutil.DeterministicBytes(3, 500))

	ch, err := c.EncryptFiles(ctx, []string{src}, filepath.Join(dir, "sealed"), "right")
	require.NoError(t, err)

	var sealed string
	for _, event := range drain(t, ch) {
		require.Equal(t, batch.EventItemSucceeded, event.Type)
		sealed = event.OutputPath
	}

	restoredDir := filepath.Join(dir, "restored")
	ch, err = c.DecryptFiles(ctx, []string{sealed}, restoredDir, "wrong")
	require.NoError(t, err)

	for _, event := range drain(t, ch) {
		assert.Equal(t, batch.EventItemFailed, event.Type)
	}
	testutil.AssertFileNotExists(t, filepath.Join(restoredDir, "secret.txt"))
}

func TestClient_NoInputFiles(t *testing.T) {
	dir := t.TempDir()
	c := newTestClient(t, dir)

	_, err := c.EncryptFiles(context.Background(), nil, dir, "pw")
	assert.Error(t, err)
}

func TestClient_Advise(t *testing.T) {
	dir := t.TempDir()
	c := newTestClient(t, dir)

	advice, ok := c.Advise("Tr0ub4dor&3")
	require.True(t, ok)
	assert.Equal(t, strength.ScoreStrong, advice.Score)

	cfg := config.DefaultConfig()
	cfg.Strength.Enabled = false
	cfg.Audit.Enabled = false
	disabled, err := client.New(cfg, testutil.TestLogger())
	require.NoError(t, err)
	defer disabled.Close()

	_, ok = disabled.Advise("anything")
	assert.False(t, ok)
}
