package storage

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chatsentry/chatsentry/pkg/observability"
)

// Watcher observes the directory file for out-of-band edits (operators
// hand-editing the JSON, config management pushing a new copy) and invokes
// a callback so the host can reload the auth manager.
type Watcher struct {
	path     string
	debounce time.Duration
	log      *observability.Logger
	onChange func()
}

// NewWatcher creates a watcher for the given file. onChange is invoked at
// most once per debounce window.
func NewWatcher(path string, debounce time.Duration, log *observability.Logger, onChange func()) *Watcher {
	if debounce <= 0 {
		debounce = time.Second
	}
	if log == nil {
		log = observability.NopLogger()
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		log:      log,
		onChange: onChange,
	}
}

// Run watches until the context is cancelled. The parent directory is
// watched rather than the file itself because atomic saves replace the
// file via rename, which drops a direct file watch.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	target := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("directory watcher error")
		case <-timerC:
			w.log.WithField("path", w.path).Info("directory file changed on disk")
			w.onChange()
		}
	}
}
