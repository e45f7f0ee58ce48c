package ingest

// ============================================================================
// Drop-Directory Watcher
// Responsibility: feed a running scheduler with checklist files dropped into
// a watched directory. New or rewritten *.json files are parsed and their
// items sent on the output channel; files yielding no valid items are
// skipped quietly.
// ============================================================================

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

var log = slog.Default()

// Watcher tails a directory for checklist files.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	out     chan []types.TestItem
}

// NewWatcher starts watching dir. The directory must already exist.
func NewWatcher(dir string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return &Watcher{
		dir:     dir,
		watcher: fsWatcher,
		out:     make(chan []types.TestItem, 16),
	}, nil
}

// Items returns the channel on which parsed item batches are delivered.
func (w *Watcher) Items() <-chan []types.TestItem {
	return w.out
}

// Run processes filesystem events until the context is canceled or the
// underlying watcher closes. The output channel is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}

			items := w.loadFile(event.Name)
			if len(items) == 0 {
				continue
			}

			select {
			case w.out <- items:
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Checklist watcher error", "dir", w.dir, "error", err)
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) loadFile(path string) []types.TestItem {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Failed to read checklist file", "path", path, "error", err)
		return nil
	}

	items, err := ParseChecklist(data)
	if err != nil {
		log.Warn("Failed to parse checklist file", "path", path, "error", err)
		return nil
	}

	return items
}
