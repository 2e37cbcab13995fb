package bot

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultCatalogDebounce coalesces the burst of events an editor save makes.
const DefaultCatalogDebounce = 300 * time.Millisecond

// CatalogWatcher reloads a catalog file into an App whenever it changes.
// A file that fails to parse is logged and the previous commands stay.
type CatalogWatcher struct {
	path     string
	debounce time.Duration
	reload   func(*Catalog) error
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	ready chan struct{}
}

// NewCatalogWatcher creates a watcher for path. reload receives each
// successfully parsed catalog.
func NewCatalogWatcher(path string, reload func(*Catalog) error, logger *slog.Logger) (*CatalogWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog path is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogWatcher{
		path:     filepath.Clean(path),
		debounce: DefaultCatalogDebounce,
		reload:   reload,
		logger:   logger.With("component", "catalog-watcher", "path", path),
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once the file system watch is in place.
func (w *CatalogWatcher) Ready() <-chan struct{} { return w.ready }

// Run watches until ctx is done. The parent directory is watched so that
// editors replacing the file through a rename are seen.
func (w *CatalogWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}
	close(w.ready)
	w.logger.Info("watching catalog for changes")

	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule(ctx)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *CatalogWatcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() == nil {
			w.reloadNow()
		}
	})
}

func (w *CatalogWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *CatalogWatcher) reloadNow() {
	cat, err := LoadCatalog(w.path)
	if err != nil {
		w.logger.Warn("catalog reload failed, keeping previous commands", "error", err)
		return
	}
	if err := w.reload(cat); err != nil {
		w.logger.Warn("catalog reloaded with errors", "error", err)
		return
	}
	w.logger.Info("catalog reloaded", "commands", len(cat.Commands))
}
