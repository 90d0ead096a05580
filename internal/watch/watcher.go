// Package watch implements a recursive filesystem watcher that debounces
// per-path events, re-checks indexing policy, and drives the index
// manager's single-file update/remove operations.
package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
	"github.com/blakazulu/search-mcp-sub002/internal/fingerprint"
	"github.com/blakazulu/search-mcp-sub002/internal/indexmanager"
	"github.com/blakazulu/search-mcp-sub002/internal/policy"
)

// DebounceDelay is the per-path quiet period before an event is acted on.
const DebounceDelay = 500 * time.Millisecond

// Stats tracks a watcher's lifetime activity.
type Stats struct {
	EventsProcessed int
	EventsSkipped   int
	IndexUpdates    int
	Errors          int
	StartedAt       time.Time
}

// Watcher wraps fsnotify with hardcoded-deny-aware recursive directory
// registration, per-path debouncing, and policy re-evaluation at fire
// time, driving an IndexManager.
type Watcher struct {
	rootDir string
	pol     *policy.Policy
	manager *indexmanager.Manager
	fps     *fingerprint.Store

	fsw *fsnotify.Watcher

	maxDirectories int
	maxDepth       int

	pausedMu sync.RWMutex
	paused   bool

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	dirCountMu sync.Mutex
	dirCount   int

	statsMu sync.Mutex
	stats   Stats

	ctx    context.Context
	cancel context.CancelFunc
	doneCh chan struct{}
	stop   sync.Once
}

// New creates a Watcher rooted at rootDir, registering rootDir and every
// eligible subdirectory with fsnotify.
func New(rootDir string, pol *policy.Policy, manager *indexmanager.Manager, fps *fingerprint.Store) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	maxDirectories, maxDepth := 1000, 10
	if isTestMode() {
		maxDirectories, maxDepth = 50, 5
	}

	w := &Watcher{
		rootDir:        rootDir,
		pol:            pol,
		manager:        manager,
		fps:            fps,
		fsw:            fsw,
		maxDirectories: maxDirectories,
		maxDepth:       maxDepth,
		timers:         make(map[string]*time.Timer),
		doneCh:         make(chan struct{}),
	}

	if err := w.addDirectoriesRecursively(rootDir, 0); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func isTestMode() bool {
	for _, arg := range os.Args {
		if strings.Contains(arg, ".test") || strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

// Start begins the event loop. ignoreInitial is implicit: Start never
// replays state, it only reacts to events observed after this call.
func (w *Watcher) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.statsMu.Lock()
	w.stats.StartedAt = time.Now()
	w.statsMu.Unlock()
	go w.run()
}

// Stop shuts the watcher down, waiting for its event loop to exit.
func (w *Watcher) Stop() error {
	var err error
	w.stop.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		err = w.fsw.Close()
	})
	return err
}

// Pause stops the watcher from driving index updates without tearing
// down the underlying fsnotify registration.
func (w *Watcher) Pause() {
	w.pausedMu.Lock()
	defer w.pausedMu.Unlock()
	w.paused = true
}

// Resume re-enables index updates.
func (w *Watcher) Resume() {
	w.pausedMu.Lock()
	defer w.pausedMu.Unlock()
	w.paused = false
}

// GetStats returns a snapshot of the watcher's lifetime counters.
func (w *Watcher) GetStats() Stats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.ctx.Done():
			w.stopAllTimers()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Lstat(event.Name); err == nil && info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
					if err := w.addDirectoriesRecursively(event.Name, 0); err != nil {
						log.Printf("watch: failed to register new directory %s: %v", event.Name, err)
					}
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.debounce(event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.statsMu.Lock()
			w.stats.Errors++
			w.statsMu.Unlock()
			log.Printf("watch: fsnotify error: %v", err)
		}
	}
}

// debounce resets absPath's per-path timer, firing handleEvent once
// DebounceDelay has elapsed with no further events for that path: the
// most recent event wins.
func (w *Watcher) debounce(absPath string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()

	if t, ok := w.timers[absPath]; ok {
		t.Stop()
	}
	w.timers[absPath] = time.AfterFunc(DebounceDelay, func() {
		w.handleEvent(absPath)
	})
}

func (w *Watcher) stopAllTimers() {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
}

// handleEvent re-checks policy and fingerprint state and drives the
// index manager accordingly.
func (w *Watcher) handleEvent(absPath string) {
	w.pausedMu.RLock()
	paused := w.paused
	w.pausedMu.RUnlock()
	if paused {
		return
	}

	relPath, err := filepath.Rel(w.rootDir, absPath)
	if err != nil {
		return
	}
	relPath = filepath.ToSlash(relPath)

	info, statErr := os.Stat(absPath)
	exists := statErr == nil

	w.statsMu.Lock()
	w.stats.EventsProcessed++
	w.statsMu.Unlock()

	if !exists {
		if !w.fps.Has(relPath) {
			w.recordSkip()
			return
		}
		if err := w.manager.RemoveFile(w.ctx, relPath); err != nil {
			w.recordError()
			return
		}
		w.recordUpdate()
		return
	}

	if info.IsDir() {
		return
	}

	if !w.pol.ShouldIndex(relPath, absPath).Allow {
		w.recordSkip()
		return
	}

	data, readErr := os.ReadFile(absPath)
	if readErr != nil {
		w.recordError()
		return
	}
	hash := chunk.ContentHash(string(data))
	if prev, ok := w.fps.Get(relPath); ok && prev.ContentHash == hash {
		w.recordSkip()
		return
	}

	if err := w.manager.UpdateFile(w.ctx, relPath); err != nil {
		w.recordError()
		return
	}
	w.recordUpdate()
}

func (w *Watcher) recordSkip() {
	w.statsMu.Lock()
	w.stats.EventsSkipped++
	w.statsMu.Unlock()
}

func (w *Watcher) recordUpdate() {
	w.statsMu.Lock()
	w.stats.IndexUpdates++
	w.statsMu.Unlock()
}

func (w *Watcher) recordError() {
	w.statsMu.Lock()
	w.stats.Errors++
	w.statsMu.Unlock()
}

// addDirectoriesRecursively registers rootPath and its eligible
// subdirectories with fsnotify, skipping hardcoded-denied directories and
// never following symlinks, bounded by maxDepth and maxDirectories.
func (w *Watcher) addDirectoriesRecursively(rootPath string, depth int) error {
	if depth > w.maxDepth {
		return nil
	}

	rel, relErr := filepath.Rel(w.rootDir, rootPath)
	if relErr == nil && rel != "." && policy.IsHardcodedDenied(filepath.ToSlash(rel)) {
		return nil
	}

	w.dirCountMu.Lock()
	if w.dirCount >= w.maxDirectories {
		w.dirCountMu.Unlock()
		return nil
	}
	w.dirCount++
	w.dirCountMu.Unlock()

	entries, err := os.ReadDir(rootPath)
	if err != nil {
		return err
	}

	if err := w.fsw.Add(rootPath); err != nil {
		return err
	}

	for _, entry := range entries {
		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			continue
		}
		if !entry.IsDir() {
			continue
		}

		subPath := filepath.Join(rootPath, entry.Name())
		if err := w.addDirectoriesRecursively(subPath, depth+1); err != nil {
			log.Printf("watch: %v", err)
		}
	}

	return nil
}
