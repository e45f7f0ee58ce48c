package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

func TestWatcherDeliversDroppedChecklist(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	checklist := `{"checklist": [{"id": "TC001", "priority": "MUST"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "drop.json"), []byte(checklist), 0644))

	select {
	case items := <-w.Items():
		require.Len(t, items, 1)
		assert.Equal(t, types.ItemID("TC001"), items[0].ID)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for dropped checklist")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}

func TestWatcherIgnoresNonJSONAndGarbage(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0644))

	select {
	case items := <-w.Items():
		t.Fatalf("unexpected delivery: %+v", items)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewWatcherMissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
