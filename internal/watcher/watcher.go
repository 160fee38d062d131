// Package watcher re-indexes Python files as they change on disk.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yuan-shuo/decoder/internal/indexer"
	"github.com/yuan-shuo/decoder/internal/storage"
)

// Watcher watches a project tree and re-indexes changed Python files
// after a debounce window
type Watcher struct {
	projectPath string
	dbPath      string
	fsWatcher   *fsnotify.Watcher

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// Callbacks
	onIndexStart func(files []string)
	onIndexDone  func(stats *indexer.Stats)
	onError      func(error)

	// Control
	done chan struct{}
}

// Option configures the watcher
type Option func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithOnIndexStart sets the callback for when re-indexing starts
func WithOnIndexStart(fn func(files []string)) Option {
	return func(w *Watcher) {
		w.onIndexStart = fn
	}
}

// WithOnIndexDone sets the callback for when re-indexing completes
func WithOnIndexDone(fn func(stats *indexer.Stats)) Option {
	return func(w *Watcher) {
		w.onIndexDone = fn
	}
}

// WithOnError sets the callback for errors
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a watcher over projectPath writing to the database at
// dbPath
func New(projectPath, dbPath string, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		projectPath:   projectPath,
		dbPath:        dbPath,
		fsWatcher:     fsWatcher,
		debounceDelay: 500 * time.Millisecond,
		pendingFiles:  make(map[string]struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := w.addDirs(); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directories to watch: %w", err)
	}

	return w, nil
}

// addDirs recursively adds all directories to the watcher
func (w *Watcher) addDirs() error {
	return filepath.Walk(w.projectPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		name := info.Name()
		if path != w.projectPath {
			if strings.HasPrefix(name, ".") || name == "__pycache__" || name == "node_modules" || name == "venv" {
				return filepath.SkipDir
			}
		}
		return w.fsWatcher.Add(path)
	})
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// eventLoop handles file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// Watch directories created after startup
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.fsWatcher.Add(event.Name)
			return
		}
	}

	if !strings.HasSuffix(event.Name, ".py") {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pendingFiles[event.Name] = struct{}{}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.triggerReindex)
}

// triggerReindex re-indexes the pending files after the debounce window
func (w *Watcher) triggerReindex() {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}

	if w.onIndexStart != nil {
		w.onIndexStart(files)
	}

	stats, err := w.reindex(files)
	if err != nil {
		if w.onError != nil {
			w.onError(fmt.Errorf("re-index failed: %w", err))
		}
		return
	}

	if w.onIndexDone != nil {
		w.onIndexDone(stats)
	}
}

// reindex updates the database for the changed files. Deleted files
// only have their data removed.
func (w *Watcher) reindex(files []string) (*indexer.Stats, error) {
	start := time.Now()

	db, err := storage.Open(w.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ix := indexer.New(db)
	total := &indexer.Stats{}

	ctx := context.Background()
	for _, file := range files {
		rel, err := filepath.Rel(w.projectPath, file)
		if err != nil {
			rel = file
		}
		rel = filepath.ToSlash(rel)

		if _, err := os.Stat(file); os.IsNotExist(err) {
			if err := db.DeleteFileData(rel); err != nil {
				return nil, err
			}
			continue
		}

		stats, err := ix.IndexFile(ctx, w.projectPath, rel)
		if err != nil {
			total.Errors = append(total.Errors, err.Error())
			continue
		}
		total.FilesIndexed += stats.FilesIndexed
		total.Symbols += stats.Symbols
		total.Edges += stats.Edges
	}

	total.Duration = time.Since(start)
	return total, nil
}
