package confloader

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/miniredis-go/internal/telemetry/logger"
)

// DefaultDebounce coalesces the burst of events one save produces.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches configuration files for changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	files     map[string]struct{}
	callbacks []func(string)
	mu        sync.RWMutex
	done      chan struct{}
	stopOnce  sync.Once
	debounce  time.Duration
	logger    logger.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithDebounce sets how long the watcher waits for further events on a
// file before notifying. Zero notifies on every event.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a new configuration file watcher.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:   fw,
		files:     make(map[string]struct{}),
		callbacks: make([]func(string), 0),
		done:      make(chan struct{}),
		debounce:  DefaultDebounce,
		logger:    logger.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Watch registers a file. Its directory is watched so that editors which
// replace the file by rename are still seen; events for other files in the
// directory are ignored.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Error("failed to watch directory",
			"path", dir,
			"error", err,
		)
		return err
	}

	w.mu.Lock()
	w.files[abs] = struct{}{}
	w.mu.Unlock()

	w.logger.Debug("watching configuration file",
		"path", dir,
		"file", filepath.Base(abs),
	)
	return nil
}

// OnChange registers a callback to be called when a watched file changes.
// The callback receives the path of the changed file.
func (w *Watcher) OnChange(callback func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start starts watching for changes.
// This function blocks until Stop() is called.
func (w *Watcher) Start() {
	w.logger.Info("configuration watcher started")

	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.logger.Debug("watcher events channel closed")
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !w.isWatched(event.Name) {
				continue
			}
			w.logger.Debug("configuration file changed",
				"file", event.Name,
				"op", event.Op.String(),
			)

			if w.debounce <= 0 {
				w.notifyCallbacks(event.Name)
				continue
			}
			name := event.Name
			if t, ok := pending[name]; ok {
				t.Reset(w.debounce)
				continue
			}
			pending[name] = time.AfterFunc(w.debounce, func() {
				select {
				case <-w.done:
				default:
					w.notifyCallbacks(name)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.logger.Debug("watcher errors channel closed")
				return
			}
			w.logger.Error("configuration watcher error",
				"error", err,
			)

		case <-w.done:
			w.logger.Debug("watcher received stop signal")
			return
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		if err = w.watcher.Close(); err != nil {
			w.logger.Error("failed to close watcher",
				"error", err,
			)
			return
		}
		w.logger.Info("configuration watcher stopped")
	})
	return err
}

func (w *Watcher) isWatched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.files[abs]
	return ok
}

// notifyCallbacks calls all registered callbacks.
func (w *Watcher) notifyCallbacks(path string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, cb := range w.callbacks {
		cb(path)
	}
}
