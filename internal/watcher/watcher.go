// Package watcher monitors the capture drop directory for newly landed
// artifact files.
//
// Capture collaborators (the browser-driving and interception tooling)
// write artifact JSON into the drop directory as whole files. A file is
// announced only after it has been stable for the debounce interval, so the
// ingester never reads a capture mid-write.
package watcher

import (
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event announces one stable artifact file ready for ingestion.
type Event struct {
	Path      string
	Hash      [32]byte
	Size      int64
	Timestamp time.Time
}

// Watcher monitors a drop directory for artifact JSON files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	debounce  time.Duration

	// State tracking: path -> last modification time
	state   map[string]time.Time
	stateMu sync.RWMutex

	events chan Event
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher over the given drop directory.
func New(dir string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		dir:       dir,
		debounce:  debounce,
		state:     make(map[string]time.Time),
		events:    make(chan Event, 64),
		errors:    make(chan error, 8),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of stable artifact files.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Start begins watching the drop directory. Artifact files already present
// are tracked and announced once stable, so captures dropped while the
// daemon was down are not lost.
func (w *Watcher) Start() error {
	absDir, err := filepath.Abs(w.dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return err
	}
	if err := w.fsWatcher.Add(absDir); err != nil {
		return err
	}
	w.dir = absDir

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.trackFile(filepath.Join(absDir, entry.Name()))
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	return nil
}

// Stop gracefully shuts down the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

// isArtifact reports whether a path looks like a dropped artifact file.
func isArtifact(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// trackFile adds an artifact file to state tracking.
func (w *Watcher) trackFile(path string) {
	if !isArtifact(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	w.stateMu.Lock()
	w.state[path] = info.ModTime()
	w.stateMu.Unlock()
}

// eventLoop handles fsnotify events.
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !isArtifact(event.Name) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}

			w.stateMu.Lock()
			w.state[event.Name] = time.Now()
			w.stateMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// debounceLoop periodically announces files that have stopped changing.
func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			w.announceStable(now)
		}
	}
}

// announceStable finds files unchanged for the debounce interval, hashes
// them, and emits events. The lock is released during hashing so the event
// loop is never blocked on file I/O.
func (w *Watcher) announceStable(now time.Time) {
	threshold := now.Add(-w.debounce)

	type stableFile struct {
		path    string
		lastMod time.Time
	}
	var stable []stableFile
	w.stateMu.RLock()
	for path, lastMod := range w.state {
		if lastMod.Before(threshold) {
			stable = append(stable, stableFile{path: path, lastMod: lastMod})
		}
	}
	w.stateMu.RUnlock()

	for _, sf := range stable {
		hash, size, err := hashFile(sf.path)

		w.stateMu.Lock()
		currentMod, exists := w.state[sf.path]
		if !exists || currentMod != sf.lastMod {
			// Modified or removed while hashing; let it stabilize again.
			w.stateMu.Unlock()
			continue
		}
		if err != nil {
			delete(w.state, sf.path)
			w.stateMu.Unlock()
			select {
			case w.errors <- err:
			default:
			}
			continue
		}

		select {
		case w.events <- Event{Path: sf.path, Hash: hash, Size: size, Timestamp: now}:
			delete(w.state, sf.path)
		default:
			// Channel full; try again next tick.
		}
		w.stateMu.Unlock()
	}
}

// hashFile computes the SHA-256 of a file using streaming.
func hashFile(path string) ([32]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return [32]byte{}, 0, err
	}

	var hash [32]byte
	copy(hash[:], h.Sum(nil))
	return hash, size, nil
}

// Pending returns the number of files currently tracked but not yet
// announced.
func (w *Watcher) Pending() int {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return len(w.state)
}
