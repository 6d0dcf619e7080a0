package store

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events an atomic save produces
// (create temp, chmod, rename) into a single reload.
const watchDebounce = 250 * time.Millisecond

// Watcher reloads a Store as soon as its backing file changes on disk.
// It complements the store's mtime polling: polling bounds staleness to
// its interval, the watcher makes external edits visible immediately.
type Watcher struct {
	store    *Store
	fsw      *fsnotify.Watcher
	onReload func()
}

// NewWatcher returns a Watcher for the store's backing file. onReload
// is invoked after every triggered reload (may be nil); callers use it
// for metrics.
func NewWatcher(s *Store, onReload func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: the save path renames a temp
	// file over the target, which replaces the watched inode.
	if err := fsw.Add(filepath.Dir(s.Path())); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{store: s, fsw: fsw, onReload: onReload}, nil
}

// Run dispatches events until ctx is cancelled. Blocking; run it in its
// own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	target := filepath.Base(w.store.Path())
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.store.Reload()
			if w.onReload != nil {
				w.onReload()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.store.log.Debug().Err(err).Msg("file watcher error")
		}
	}
}
