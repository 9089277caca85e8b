package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/eltwork/eltctl/internal/utils/logger"
)

// Watcher re-runs a load whenever a project file changes. Events are
// debounced so editors that write in bursts trigger one reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	reload   func() error
	debounce *debouncer
}

// debouncer coalesces bursts of events into a single callback. The mutex
// guards timer, which run and stop touch from different goroutines.
type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// DefaultDebounce is how long the watcher waits after the last event
const DefaultDebounce = 500 * time.Millisecond

// New creates a watcher that invokes reload after changes settle
func New(reload func() error) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		watcher:  fsWatcher,
		reload:   reload,
		debounce: &debouncer{duration: DefaultDebounce},
	}, nil
}

// Watch registers the project files to watch. Their parent directories
// are watched too, so includes created after startup are picked up.
func (w *Watcher) Watch(files ...string) error {
	logger.Info("watching project files", zap.Strings("files", files))

	dirs := make(map[string]struct{})
	for _, file := range files {
		if err := w.watcher.Add(file); err != nil {
			return fmt.Errorf("failed to watch %s: %w", file, err)
		}
		dirs[filepath.Dir(file)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			logger.Warn("failed to watch directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	go w.processEvents()
	return nil
}

func (w *Watcher) processEvents() {
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
			logger.Error("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	relevant := event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
	if !relevant || !isDescriptor(event.Name) {
		return
	}
	logger.Debug("project file changed",
		zap.String("file", event.Name),
		zap.String("op", event.Op.String()))

	w.debounce.run(func() {
		if err := w.reload(); err != nil {
			logger.Error("reload after file change failed", zap.Error(err))
		}
	})
}

// isDescriptor filters events down to YAML files
func isDescriptor(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yml" || ext == ".yaml"
}

func (d *debouncer) run(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	w.debounce.stop()
	return w.watcher.Close()
}
