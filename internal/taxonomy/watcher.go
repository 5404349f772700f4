package taxonomy

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"scopenerd/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads the taxonomy when its YAML file changes on disk.
// Rapid editor saves are debounced; a reload that fails to parse keeps the
// previous table.
type Watcher struct {
	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	path     string
	current  *Taxonomy
	onReload func(*Taxonomy)

	pending     time.Time
	debounceDur time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher loads the table once and prepares a watcher on its file.
// onReload may be nil.
func NewWatcher(path string, onReload func(*Taxonomy)) (*Watcher, error) {
	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		path:        path,
		current:     t,
		onReload:    onReload,
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Current returns the latest successfully loaded table.
func (w *Watcher) Current() *Taxonomy {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching. Watching the parent directory instead of the file
// survives the write-rename dance most editors do.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		logging.BootError("taxonomy watch failed for %s: %v", dir, err)
		return err
	}
	logging.Boot("taxonomy: watching %s", w.path)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.BootError("taxonomy watcher: %v", err)
		case <-tick.C:
			w.maybeReload()
		}
	}
}

func (w *Watcher) maybeReload() {
	w.mu.Lock()
	due := !w.pending.IsZero() && time.Since(w.pending) >= w.debounceDur
	if due {
		w.pending = time.Time{}
	}
	w.mu.Unlock()
	if !due {
		return
	}

	t, err := Load(w.path)
	if err != nil {
		logging.BootError("taxonomy reload failed, keeping previous table: %v", err)
		return
	}

	w.mu.Lock()
	w.current = t
	cb := w.onReload
	w.mu.Unlock()

	logging.Boot("taxonomy reloaded: %d capabilities, version %s", t.Count(), t.Version)
	if cb != nil {
		cb(t)
	}
}
