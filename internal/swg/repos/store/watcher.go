package store

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// policyWatcher keeps the in-memory policy view current with operator edits.
// fsnotify events on the policy file trigger an immediate reload; a ticker
// bounds staleness when events are missed (editors that replace files, NFS).
type policyWatcher struct {
	store  *Store
	fsw    *fsnotify.Watcher
	ticker *time.Ticker
	done   chan struct{}
}

func newPolicyWatcher(s *Store, interval time.Duration) (*policyWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// watch the directory: atomic-rename edits replace the file inode, and
	// watching the file itself would silently detach after the first rename
	if err := fsw.Add(filepath.Dir(s.policyPath)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &policyWatcher{
		store:  s,
		fsw:    fsw,
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *policyWatcher) run() {
	target := filepath.Clean(w.store.policyPath)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.store.logger.Warn(map[string]any{"error": err}, "Policy watcher error")
		case <-w.ticker.C:
			if w.store.policyChanged() {
				w.reload()
			}
		}
	}
}

func (w *policyWatcher) reload() {
	if err := w.store.ReloadPolicy(); err != nil {
		w.store.logger.Warn(map[string]any{
			"error": err,
			"file":  w.store.policyPath,
		}, "Policy reload failed, keeping previous table")
		return
	}
	w.store.logger.Info(map[string]any{"file": w.store.policyPath}, "Policy table refreshed from file")
}

func (w *policyWatcher) stop() error {
	close(w.done)
	w.ticker.Stop()
	return w.fsw.Close()
}
