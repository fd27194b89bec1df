// Package watch reports changes to a document file on disk.
package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options configures a Watcher.
type Options struct {
	// DebounceMs groups bursts of events into one callback. Defaults to 200.
	DebounceMs int
}

// DefaultOptions returns the default watch options.
func DefaultOptions() Options {
	return Options{DebounceMs: 200}
}

// Watcher calls back when a single file is written, created or replaced.
//
// The file's directory is watched rather than the file itself so that
// editors and Document.Save, which replace the file by rename, keep
// producing events.
//
// **Usage:**
//
//	w, err := watch.New("design.json", func(path string) { ... }, watch.DefaultOptions(), logger)
//	if err != nil {
//	    return err
//	}
//	if err := w.Start(); err != nil {
//	    return err
//	}
//	defer w.Stop()
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(path string)
	logger   *slog.Logger
	options  Options

	debounceMu sync.Mutex
	timer      *time.Timer

	changes atomic.Int64

	stopChan chan struct{}
	started  bool
	stopped  bool
	mu       sync.Mutex
}

// New creates a watcher for path. onChange runs on its own goroutine
// after each debounced burst of changes.
func New(path string, onChange func(path string), options Options, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if options.DebounceMs <= 0 {
		options.DebounceMs = DefaultOptions().DebounceMs
	}
	return &Watcher{
		watcher:  fw,
		path:     abs,
		onChange: onChange,
		logger:   logger,
		options:  options,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
//
// **Thread Safety:** Start may be called once; later calls and calls after
// Stop return an error.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return fmt.Errorf("watcher already stopped")
	}
	if w.started {
		return fmt.Errorf("watcher already started")
	}

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.started = true

	w.logger.Info("Document watcher started", "path", w.path)
	go w.eventLoop()
	return nil
}

// Stop stops the watcher and cancels any pending callback.
//
// **Thread Safety:** Safe to call multiple times (idempotent).
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopChan)

	w.debounceMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.debounceMu.Unlock()

	err := w.watcher.Close()
	w.logger.Info("Document watcher stopped")
	return err
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.stopChan:
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
			w.logger.Error("Document watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	w.logger.Debug("Document event", "op", event.Op.String(), "file", event.Name)

	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		w.debounce()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A rename-over save follows up with Create on the same name.
		w.logger.Debug("Document moved or removed", "file", event.Name)
	}
}

// debounce schedules onChange, restarting the delay on every event.
func (w *Watcher) debounce() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(time.Duration(w.options.DebounceMs)*time.Millisecond, func() {
		w.debounceMu.Lock()
		w.timer = nil
		w.debounceMu.Unlock()

		select {
		case <-w.stopChan:
			return
		default:
		}
		w.changes.Add(1)
		w.onChange(w.path)
	})
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() Stats {
	w.debounceMu.Lock()
	pending := w.timer != nil
	w.debounceMu.Unlock()

	w.mu.Lock()
	running := w.started && !w.stopped
	w.mu.Unlock()

	return Stats{
		Pending:   pending,
		IsRunning: running,
		Changes:   w.changes.Load(),
	}
}

// Stats contains watcher statistics.
type Stats struct {
	Pending   bool
	IsRunning bool
	Changes   int64
}
