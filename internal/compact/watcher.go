package compact

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// ResultHandler receives each recompaction outcome.
type ResultHandler func(result *Result, err error)

// Watcher watches the root directory and recompacts the project after changes.
type Watcher struct {
	engine       *Engine
	rootDir      string
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	onResult     ResultHandler
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
	started      atomic.Bool
}

// NewWatcher creates a watcher over rootDir. A debounce of zero selects
// DefaultDebounce.
func NewWatcher(engine *Engine, rootDir string, debounce time.Duration, onResult ResultHandler) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		engine:       engine,
		rootDir:      absRoot,
		watcher:      watcher,
		debounceTime: debounce,
		onResult:     onResult,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	if err := w.addDirectoriesRecursively(absRoot); err != nil {
		watcher.Close()
		return nil, err
	}

	return w, nil
}

// Start begins watching for file changes.
func (w *Watcher) Start(ctx context.Context) {
	if w.started.Swap(true) {
		return
	}
	go w.watch(ctx)
}

// Stop stops the watcher and waits for the event loop to exit. It is safe
// to call on a watcher that was never started.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.started.Swap(true) {
			<-w.doneCh
		}
		w.watcher.Close()
	})
}

// watch is the main event loop with debouncing logic.
func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	var debounceTimer *time.Timer
	recompactCh := make(chan struct{}, 1)
	changedFiles := make(map[string]bool)

	schedule := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(w.debounceTime, func() {
			select {
			case recompactCh <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !w.shouldProcessEvent(event) {
				continue
			}
			changedFiles[relativePath(w.rootDir, event.Name)] = true

			// Handle new directories - add them to watcher
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDirectoriesRecursively(event.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
					}
				}
			}

			schedule()

		case <-recompactCh:
			if !w.recompact(ctx, changedFiles) {
				// Keep the batch and try again after another debounce.
				schedule()
				continue
			}
			changedFiles = make(map[string]bool)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// recompact lists the tree again and runs a full compaction. Unchanged
// files are served from the engine's fragment cache. It returns false
// when another compaction is in flight and the batch still needs a run.
func (w *Watcher) recompact(ctx context.Context, changedFiles map[string]bool) bool {
	if len(changedFiles) == 0 {
		return true
	}
	log.Printf("Recompacting due to changes in %d file(s)...", len(changedFiles))

	files, err := Walk(w.rootDir)
	if err != nil {
		w.deliver(nil, err)
		return true
	}

	result, err := w.engine.Compact(ctx, w.rootDir, files)
	if errors.Is(err, ErrBusy) {
		log.Printf("Warning: compaction still running, retrying %d changed file(s)", len(changedFiles))
		return false
	}
	w.deliver(result, err)
	return true
}

func (w *Watcher) deliver(result *Result, err error) {
	if err != nil {
		log.Printf("Error during recompaction: %v", err)
	}
	if w.onResult != nil {
		w.onResult(result, err)
	}
}

// shouldProcessEvent checks if an event should trigger recompaction.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	// Only care about WRITE, CREATE, REMOVE and RENAME events
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	relPath := relativePath(w.rootDir, event.Name)
	if inSkippedDir(relPath) || w.engine.filter.shouldIgnore(relPath) {
		return false
	}

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return true
	}
	return w.engine.filter.supports == nil || w.engine.filter.supports(event.Name)
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (w *Watcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Log but continue - don't fail the entire watch for one directory
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}

		if path != w.rootDir {
			relPath := relativePath(w.rootDir, path)
			if SkipDirs[info.Name()] || w.engine.filter.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
		}

		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
