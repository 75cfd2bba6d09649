package display

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads Rules when its file changes on disk.
type Watcher struct {
	rules    *Rules
	watcher  *fsnotify.Watcher
	onReload func()
}

// NewWatcher watches the directory holding the rules file, so editors that
// replace the file by renaming are noticed too.
func NewWatcher(rules *Rules, onReload func()) (*Watcher, error) {
	if rules.Path() == "" {
		return nil, fmt.Errorf("display rules have no file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(rules.Path())); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", rules.Path(), err)
	}

	return &Watcher{rules: rules, watcher: watcher, onReload: onReload}, nil
}

// Start blocks until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	slog.Debug("Watching display rules", "path", w.rules.Path())

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Display rules watcher error", "error", err)

		case <-ctx.Done():
			slog.Debug("Display rules watcher stopping")
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.rules.Path()) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	if err := w.rules.Load(); err != nil {
		slog.Error("Failed to reload display rules, keeping previous ones", "path", event.Name, "error", err)
		return
	}

	if w.onReload != nil {
		w.onReload()
	}
}

func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
