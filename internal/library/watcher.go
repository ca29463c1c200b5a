package library

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"elcs/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a pool file must stay quiet before it is reloaded.
const DefaultDebounce = 500 * time.Millisecond

// minFlushInterval bounds how often pending reloads are checked.
const minFlushInterval = time.Millisecond

// Watcher keeps a Library in step with the pool files in a directory. Every
// settled create, write, remove or rename of a CF_L<n>.csv file reloads level n.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	lib         *Library
	dir         string
	debounceMap map[int]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats counts watcher activity.
type WatcherStats struct {
	Events    int
	Reloads   int
	Errors    int
	LastLevel int
}

// NewWatcher creates a watcher publishing into lib. A zero debounce uses DefaultDebounce.
func NewWatcher(dir string, lib *Library, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:     fw,
		lib:         lib,
		dir:         dir,
		debounceMap: make(map[int]time.Time),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It is non-blocking and a no-op when already running.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		w.setStopped()
		return fmt.Errorf("create pool dir: %w", err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		w.setStopped()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logging.Library("watching pool directory %s", w.dir)

	go w.run(ctx)
	return nil
}

func (w *Watcher) setStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// Stop ends the event loop, waits for it, and releases the fsnotify watcher.
// A watcher cannot be restarted.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryLibrary).Error("closing pool watcher: %v", err)
	}
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(max(w.debounceDur/5, minFlushInterval))
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
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.LibraryWarn("pool watcher: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-tick.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	level, ok := ParsePoolFileName(event.Name)
	if !ok {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	logging.Get(logging.CategoryLibrary).Debug("pool event %s on level %d", event.Op, level)

	w.mu.Lock()
	w.stats.Events++
	w.debounceMap[level] = time.Now()
	w.mu.Unlock()
}

// flush reloads every level whose last event is older than the debounce window.
func (w *Watcher) flush() {
	w.mu.Lock()
	now := time.Now()
	var settled []int
	for level, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, level)
			delete(w.debounceMap, level)
		}
	}
	w.mu.Unlock()

	for _, level := range settled {
		err := w.lib.LoadLevel(w.dir, level)

		w.mu.Lock()
		if err != nil {
			w.stats.Errors++
		} else {
			w.stats.Reloads++
			w.stats.LastLevel = level
		}
		w.mu.Unlock()

		if err != nil {
			logging.LibraryWarn("reloading level %d: %v", level, err)
		}
	}
}
