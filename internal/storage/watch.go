package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports files that disappear from a storage root, whether removed
// by the service or by hand.
type Watcher struct {
	root    string
	watcher *fsnotify.Watcher
	log     *zap.Logger
}

func NewWatcher(root string, log *zap.Logger) (*Watcher, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(root); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}

	return &Watcher{
		root:    root,
		watcher: w,
		log:     log.With(zap.String("root", root)),
	}, nil
}

// Run calls onRemoved with the ref of every committed file that is removed or
// renamed away, until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onRemoved func(ref string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			ref := filepath.Base(event.Name)
			if IsTemp(ref) {
				continue
			}
			w.log.Debug("asset removed", zap.String("ref", ref), zap.Stringer("op", event.Op))
			onRemoved(ref)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
