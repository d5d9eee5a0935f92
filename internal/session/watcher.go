package session

import (
	"fmt"
	"path/filepath"
	"sync"

	"railctl/internal/log"

	"github.com/fsnotify/fsnotify"
)

// Watcher follows the token file so a login or logout in another
// terminal is picked up by a running console.
type Watcher struct {
	state *State
	path  string

	stopChan  chan struct{}
	doneChan  chan struct{}
	fsWatcher *fsnotify.Watcher

	mutex   sync.RWMutex
	running bool
}

// NewWatcher creates a watcher reloading state whenever path changes.
func NewWatcher(state *State, path string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Watcher{
		state:     state,
		path:      filepath.Clean(path),
		fsWatcher: fsWatcher,
	}, nil
}

// Start watches the token file's directory, so removal and recreation
// of the file are both seen. The directory must exist.
func (w *Watcher) Start() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}

	dir := filepath.Dir(w.path)
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.running = true
	w.stopChan = make(chan struct{})
	w.doneChan = make(chan struct{})
	go w.loop(w.stopChan, w.doneChan)

	log.LogWithFields(log.F("file", w.path)).Debug("watching token file")
	return nil
}

func (w *Watcher) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op.Has(fsnotify.Chmod) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if err := w.state.Reload(); err != nil {
				log.LogWithFields(log.F("file", w.path), log.F("error", err)).Warn("failed to reload token")
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.LogWithFields(log.F("error", err)).Error("fsnotify watcher error")

		case <-stop:
			return
		}
	}
}

// Stop halts the watcher and waits for its loop to exit.
func (w *Watcher) Stop() {
	w.mutex.Lock()
	if !w.running {
		w.mutex.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	done := w.doneChan
	w.mutex.Unlock()

	if err := w.fsWatcher.Close(); err != nil {
		log.LogWithFields(log.F("error", err)).Error("Error closing fsnotify watcher")
	}
	<-done
}

// IsRunning returns whether the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}
