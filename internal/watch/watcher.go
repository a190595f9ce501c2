package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"modeltool/internal/log"

	"github.com/fsnotify/fsnotify"
)

// DefaultPairWindow is how long a rename waits for the matching create.
const DefaultPairWindow = 100 * time.Millisecond

// DefaultSettleWindow is the quiet period Resume waits for before delivery
// restarts. Changes made while paused are still queued in fsnotify when
// Resume is called; they are discarded until the queue stays empty this long.
const DefaultSettleWindow = 50 * time.Millisecond

// maxSettleWindows bounds Resume, in settle windows, when the directory
// never goes quiet.
const maxSettleWindows = 20

// Op is the kind of change reported by the watcher.
type Op int

const (
	Created Op = iota
	Deleted
	Modified
	Renamed
)

// String returns the op name
func (o Op) String() string {
	switch o {
	case Created:
		return "Created"
	case Deleted:
		return "Deleted"
	case Modified:
		return "Modified"
	case Renamed:
		return "Renamed"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// ChangeEvent is one change in the watched directory. OldPath is set only
// for Renamed.
type ChangeEvent struct {
	Op      Op
	Path    string
	OldPath string
	Time    time.Time
}

// Watcher reports changes inside a single directory, and renames of that
// directory itself, using fsnotify.
type Watcher struct {
	// Directory being watched
	path string

	// Channel to receive change events
	events chan ChangeEvent

	// Channel to signal stop, and to report that the loop exited
	stopChan chan struct{}
	doneChan chan struct{}

	// Resume requests, answered once queued events are discarded
	resumeChan chan chan struct{}

	// fsnotify watcher instance
	fsWatcher *fsnotify.Watcher

	// Lock for running state and the watched path
	mutex sync.RWMutex

	running    bool
	stopped    bool
	paused       atomic.Bool
	pairWindow   time.Duration
	settleWindow time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPairWindow sets how long a rename waits for its matching create.
func WithPairWindow(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pairWindow = d
		}
	}
}

// WithSettleWindow sets the quiet period Resume waits for.
func WithSettleWindow(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settleWindow = d
		}
	}
}

// WithBuffer sets the event channel capacity.
func WithBuffer(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.events = make(chan ChangeEvent, n)
		}
	}
}

// New creates a new directory watcher using fsnotify
func New(opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		events:       make(chan ChangeEvent, 64),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
		resumeChan:   make(chan chan struct{}),
		fsWatcher:    fsWatcher,
		pairWindow:   DefaultPairWindow,
		settleWindow: DefaultSettleWindow,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// SetPath retargets the watcher to dir. The parent of dir is watched too so
// that a rename of dir itself is seen.
func (w *Watcher) SetPath(dir string) error {
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("error accessing directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.stopped {
		return fmt.Errorf("watcher stopped")
	}
	if w.path == dir {
		return nil
	}
	if w.path != "" {
		for _, p := range watchList(w.path) {
			// The old directory may already be gone.
			_ = w.fsWatcher.Remove(p)
		}
	}
	for _, p := range watchList(dir) {
		if err := w.fsWatcher.Add(p); err != nil {
			return fmt.Errorf("failed to add directory %s to watcher: %w", p, err)
		}
	}
	w.path = dir
	log.LogWithFields(log.F("directory", dir)).Info("Watching directory")
	return nil
}

func watchList(dir string) []string {
	parent := filepath.Dir(dir)
	if parent == dir {
		return []string{dir}
	}
	return []string{dir, parent}
}

// Path returns the directory being watched.
func (w *Watcher) Path() string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.path
}

// Events returns the channel that delivers change events. It is closed
// after Stop.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Pause drops events until Resume. Nothing is replayed on resume.
func (w *Watcher) Pause() {
	w.paused.Store(true)
	log.Debug("Watcher paused")
}

// Resume re-enables delivery. Events caused by changes made while paused
// are discarded first, so Resume blocks until fsnotify has been quiet for
// the settle window.
func (w *Watcher) Resume() {
	w.mutex.RLock()
	running := w.running
	w.mutex.RUnlock()
	if !running {
		w.paused.Store(false)
		return
	}

	done := make(chan struct{})
	select {
	case w.resumeChan <- done:
		select {
		case <-done:
		case <-w.doneChan:
		}
	case <-w.doneChan:
	}
	log.Debug("Watcher resumed")
}

// settle discards fsnotify events until none arrives for the settle window.
// It reports false when the event stream closed or the watcher stopped.
func (w *Watcher) settle() bool {
	quiet := time.NewTimer(w.settleWindow)
	defer quiet.Stop()
	deadline := time.NewTimer(maxSettleWindows * w.settleWindow)
	defer deadline.Stop()
	for {
		select {
		case _, ok := <-w.fsWatcher.Events:
			if !ok {
				return false
			}
			quiet.Reset(w.settleWindow)
		case <-quiet.C:
			return true
		case <-deadline.C:
			log.Warn("Directory did not settle before resume")
			return true
		case <-w.stopChan:
			return false
		}
	}
}

// Paused reports whether events are being dropped.
func (w *Watcher) Paused() bool {
	return w.paused.Load()
}

// Start begins the file watching process using fsnotify
func (w *Watcher) Start() error {
	w.mutex.Lock()
	if w.running {
		w.mutex.Unlock()
		return fmt.Errorf("watcher already running")
	}
	if w.stopped {
		w.mutex.Unlock()
		return fmt.Errorf("watcher stopped")
	}
	w.running = true
	w.mutex.Unlock()

	go w.loop()

	log.Info("Watcher started.")
	return nil
}

// pendingRename is a rename waiting for the create that names its new path.
type pendingRename struct {
	path  string
	timer *time.Timer
}

func (w *Watcher) loop() {
	defer close(w.doneChan)
	defer close(w.events)

	var pending *pendingRename
	var pairTimeout <-chan time.Time

	clearPending := func() {
		if pending != nil {
			pending.timer.Stop()
		}
		pending, pairTimeout = nil, nil
	}

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				log.Info("fsWatcher.Events channel closed")
				return
			}
			if w.Paused() {
				clearPending()
				continue
			}

			target := w.Path()
			if !w.relevant(event.Name, target, pending) {
				continue
			}

			switch {
			case event.Op.Has(fsnotify.Rename):
				if pending != nil && pending.path == event.Name {
					// The same move reported by both the directory and its parent.
					continue
				}
				if pending != nil {
					w.emit(ChangeEvent{Op: Deleted, Path: pending.path})
					clearPending()
				}
				timer := time.NewTimer(w.pairWindow)
				pending = &pendingRename{path: event.Name, timer: timer}
				pairTimeout = timer.C

			case event.Op.Has(fsnotify.Create):
				if pending != nil && filepath.Dir(pending.path) == filepath.Dir(event.Name) {
					w.emit(ChangeEvent{Op: Renamed, Path: event.Name, OldPath: pending.path})
					clearPending()
					continue
				}
				w.emit(ChangeEvent{Op: Created, Path: event.Name})

			case event.Op.Has(fsnotify.Remove):
				w.emit(ChangeEvent{Op: Deleted, Path: event.Name})

			case event.Op.Has(fsnotify.Write):
				w.emit(ChangeEvent{Op: Modified, Path: event.Name})
			}

		case done := <-w.resumeChan:
			clearPending()
			ok := w.settle()
			w.paused.Store(false)
			close(done)
			if !ok {
				return
			}

		case <-pairTimeout:
			w.emit(ChangeEvent{Op: Deleted, Path: pending.path})
			pending, pairTimeout = nil, nil

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				log.Info("fsWatcher.Errors channel closed")
				return
			}
			log.LogWithFields(log.F("error", err)).Error("fsnotify watcher error")

		case <-w.stopChan:
			clearPending()
			log.Info("Watcher event loop received stop signal.")
			return
		}
	}
}

// relevant keeps events for entries inside target, for target itself, and
// the create that completes a pending rename of target.
func (w *Watcher) relevant(name, target string, pending *pendingRename) bool {
	if target == "" {
		return false
	}
	if name == target || filepath.Dir(name) == target {
		return true
	}
	return pending != nil && pending.path == target && filepath.Dir(name) == filepath.Dir(target)
}

func (w *Watcher) emit(ev ChangeEvent) {
	ev.Time = time.Now()
	// Send non-blockingly so a slow consumer cannot stall fsnotify.
	select {
	case w.events <- ev:
	default:
		log.LogWithFields(log.F("path", ev.Path), log.F("op", ev.Op.String())).Warn("Event channel is full, dropped event")
	}
}

// Stop halts the watcher and closes the event channel.
func (w *Watcher) Stop() {
	w.mutex.Lock()
	if w.stopped {
		w.mutex.Unlock()
		return
	}
	w.stopped = true
	wasRunning := w.running
	w.running = false
	close(w.stopChan)
	w.mutex.Unlock()

	if wasRunning {
		<-w.doneChan
	} else {
		close(w.events)
	}
	if err := w.fsWatcher.Close(); err != nil {
		log.LogWithFields(log.F("error", err)).Error("Error closing fsnotify watcher")
	}
	log.Info("Watcher stopped.")
}

// IsRunning returns whether the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}
