package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/internal/constants"
	"semanticdb-lsp/src/utils/filepattern"
)

// Operation names the kind of change seen for a path
type Operation string

const (
	OpWrite  Operation = "write"
	OpCreate Operation = "create"
	OpRemove Operation = "remove"
	OpRename Operation = "rename"
)

// Gone reports whether the path no longer exists after the operation
func (o Operation) Gone() bool {
	return o == OpRemove || o == OpRename
}

// FileChangeEvent represents a file change event
type FileChangeEvent struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// FileWatcher watches directory trees for changes to files with the given
// suffixes and reports them in debounced batches.
type FileWatcher struct {
	watcher       *fsnotify.Watcher
	watchPaths    []string
	suffixes      []string
	excludes      *filepattern.Matcher
	onChange      func([]FileChangeEvent)
	debounceDelay time.Duration

	// Debouncing
	pendingEvents map[string]*FileChangeEvent
	eventMutex    sync.Mutex
	debounceTimer *time.Timer

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(suffixes []string, excludes *filepattern.Matcher, onChange func([]FileChangeEvent)) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	fw := &FileWatcher{
		watcher:       watcher,
		watchPaths:    []string{},
		suffixes:      suffixes,
		excludes:      excludes,
		onChange:      onChange,
		debounceDelay: constants.FileWatchDebounceDelay,
		pendingEvents: make(map[string]*FileChangeEvent),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	return fw, nil
}

// AddPath adds a path to watch (can be file or directory)
func (fw *FileWatcher) AddPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if err := fw.watcher.Add(absPath); err != nil {
		return err
	}

	fw.watchPaths = append(fw.watchPaths, absPath)
	common.IndexLogger.Debug("FileWatcher: Added watch path: %s", absPath)

	if err := fw.addSubdirectories(absPath); err != nil {
		common.IndexLogger.Warn("Failed to add subdirectories for %s: %v", absPath, err)
	}

	return nil
}

// addSubdirectories recursively adds subdirectories to watch
func (fw *FileWatcher) addSubdirectories(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() || path == root {
			return nil
		}

		base := filepath.Base(path)
		if constants.SkipDirectories[base] || strings.HasPrefix(base, ".") || fw.excluded(path+"/") {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			common.IndexLogger.Warn("Failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}

func (fw *FileWatcher) excluded(path string) bool {
	return fw.excludes.Match(filepath.ToSlash(path))
}

// Start begins watching for file changes
func (fw *FileWatcher) Start() {
	fw.started = true
	go fw.watchLoop()
}

// watchLoop is the main event processing loop
func (fw *FileWatcher) watchLoop() {
	defer close(fw.done)

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.shouldProcess(event) {
				continue
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			common.IndexLogger.Error("FileWatcher error: %v", err)
		}
	}
}

// shouldProcess filters events down to files with a watched suffix
func (fw *FileWatcher) shouldProcess(event fsnotify.Event) bool {
	path := event.Name

	// new directories are watched too; the files inside arrive as their own events
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if fw.excluded(path + "/") {
				return false
			}
			if err := fw.watcher.Add(path); err != nil {
				common.IndexLogger.Warn("Failed to watch new directory %s: %v", path, err)
			}
			if err := fw.addSubdirectories(path); err != nil {
				common.IndexLogger.Warn("Failed to add new directory %s: %v", path, err)
			}
			return false
		}
	}

	if fw.excluded(path) {
		return false
	}
	for _, suffix := range fw.suffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// handleEvent processes a file system event with debouncing
func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	fw.eventMutex.Lock()
	defer fw.eventMutex.Unlock()

	var operation Operation
	switch {
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		operation = OpRemove
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		operation = OpRename
	case event.Op&fsnotify.Write == fsnotify.Write:
		operation = OpWrite
	case event.Op&fsnotify.Create == fsnotify.Create:
		operation = OpCreate
	default:
		return // chmod
	}

	// the latest operation per path wins
	fw.pendingEvents[event.Name] = &FileChangeEvent{
		Path:      event.Name,
		Operation: operation,
		Timestamp: time.Now(),
	}

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.debounceTimer = time.AfterFunc(fw.debounceDelay, fw.flushEvents)
}

// flushEvents sends all pending events to the callback
func (fw *FileWatcher) flushEvents() {
	fw.eventMutex.Lock()
	defer fw.eventMutex.Unlock()

	if len(fw.pendingEvents) == 0 {
		return
	}

	events := make([]FileChangeEvent, 0, len(fw.pendingEvents))
	for _, event := range fw.pendingEvents {
		events = append(events, *event)
	}
	fw.pendingEvents = make(map[string]*FileChangeEvent)

	if fw.onChange != nil {
		common.IndexLogger.Debug("FileWatcher: Flushing %d file change events", len(events))
		go fw.onChange(events)
	}
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	fw.cancel()

	fw.eventMutex.Lock()
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.eventMutex.Unlock()

	// Flush any remaining events
	fw.flushEvents()

	err := fw.watcher.Close()

	// Wait for the watch loop to finish
	if fw.started {
		<-fw.done
	}

	return err
}

// SetDebounceDelay sets the debounce delay for file events
func (fw *FileWatcher) SetDebounceDelay(delay time.Duration) {
	fw.eventMutex.Lock()
	defer fw.eventMutex.Unlock()
	fw.debounceDelay = delay
}
