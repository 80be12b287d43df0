package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"warden/internal/logging"
)

// TaskWatcher watches a directory and runs each new or rewritten task file
// through the orchestrator. Saves are debounced so editors that write in
// several events trigger one run.
type TaskWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	orch        *Orchestrator
	dir         string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for the CLI and tests.
type WatcherStats struct {
	FilesSeen     int
	RunsTriggered int
	Errors        int
	LastFile      string
}

// NewTaskWatcher creates a watcher over dir feeding orch.
func NewTaskWatcher(dir string, orch *Orchestrator) (*TaskWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &TaskWatcher{
		watcher:     watcher,
		orch:        orch,
		dir:         dir,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the loop runs in a goroutine until
// Stop or context cancellation.
func (w *TaskWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	// Mark running only once the directory is actually watched, so a failed
	// Start leaves Stop with nothing to wait for.
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	w.running = true

	logging.Get(logging.CategoryWatch).Infow("watching task directory", "dir", w.dir)
	go w.loop(ctx)
	return nil
}

// Stop halts the watch loop and waits for it to exit.
func (w *TaskWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

// Stats returns a snapshot of watcher activity.
func (w *TaskWatcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *TaskWatcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	log := logging.Get(logging.CategoryWatch)

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
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !isTaskFile(event.Name) {
				continue
			}
			if w.debounced(event.Name) {
				continue
			}
			w.process(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			log.Warnw("watch error", "error", err)
		}
	}
}

// debounced reports whether the path fired within the debounce window, and
// marks it as fired either way.
func (w *TaskWatcher) debounced(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if last, ok := w.debounceMap[path]; ok && now.Sub(last) < w.debounceDur {
		return true
	}
	w.debounceMap[path] = now
	return false
}

func (w *TaskWatcher) process(ctx context.Context, path string) {
	log := logging.Get(logging.CategoryWatch)

	w.mu.Lock()
	w.stats.FilesSeen++
	w.stats.LastFile = path
	w.mu.Unlock()

	tasks, err := LoadTasks(path)
	if err != nil {
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		log.Warnw("skipping task file", "path", path, "error", err)
		return
	}

	summary, err := w.orch.Run(ctx, tasks)
	if err != nil {
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		log.Errorw("run failed", "path", path, "error", err)
		return
	}

	w.mu.Lock()
	w.stats.RunsTriggered++
	w.mu.Unlock()
	log.Infow("run complete",
		"path", path, "run", summary.RunID,
		"dispatched", summary.Dispatched, "stopped", summary.Stopped)
}

func isTaskFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
