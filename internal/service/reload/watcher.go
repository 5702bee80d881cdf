package reload

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/update-manager/internal/logger"
)

// DefaultDebounce is how long the file must stay quiet before a rebuild.
const DefaultDebounce = 200 * time.Millisecond

// RebuildFunc reloads the configuration after a change.
type RebuildFunc func(ctx context.Context) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher calls a RebuildFunc whenever the watched file is written or replaced.
type Watcher struct {
	// path is the absolute path of the watched file.
	path string
	// rebuild runs after each debounced change.
	rebuild RebuildFunc
	// debounce is the quiet period before rebuild runs.
	debounce time.Duration
	// fs watches the file's directory, so editors that replace files are seen.
	fs *fsnotify.Watcher
}

// NewWatcher starts watching path. Call Run to process changes.
func NewWatcher(path string, rebuild RebuildFunc, opts ...Option) (*Watcher, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	if err = fs.Add(filepath.Dir(absolute)); err != nil {
		_ = fs.Close()

		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(absolute), err)
	}

	w := &Watcher{
		path:     absolute,
		rebuild:  rebuild,
		debounce: DefaultDebounce,
		fs:       fs,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Run processes file events until ctx is done. Rebuild failures are logged
// and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		_ = w.fs.Close()
	}()

	ctx = logger.WithKV(ctx, "file", w.path)

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}

			logger.WarnKV(ctx, "File watcher error", "error", err)

		case <-timer.C:
			logger.Info(ctx, "Configuration changed, rebuilding")

			if err := w.rebuild(ctx); err != nil {
				logger.ErrorKV(ctx, "Rebuild failed", "error", err)
			}
		}
	}
}
