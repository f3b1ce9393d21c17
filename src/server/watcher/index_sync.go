package watcher

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/internal/constants"
	"semanticdb-lsp/src/server/index"
	"semanticdb-lsp/src/utils/filepattern"
)

// IndexSync keeps a SymbolIndex in step with a directory of semantic
// documents. It remembers which uri each file produced so deletions can be
// applied after the file is gone.
type IndexSync struct {
	index *index.SymbolIndex
	dir   string
	opts  index.LoadOptions

	mu       sync.Mutex
	uris     map[string]string
	onChange func(uris []string)

	watcher *FileWatcher
}

// NewIndexSync creates a sync for the documents below dir
func NewIndexSync(idx *index.SymbolIndex, dir string, opts index.LoadOptions) *IndexSync {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &IndexSync{
		index: idx,
		dir:   dir,
		opts:  opts,
		uris:  make(map[string]string),
	}
}

// OnChange registers a callback receiving the uris touched by each batch
func (s *IndexSync) OnChange(fn func(uris []string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Load indexes every document below the directory
func (s *IndexSync) Load(ctx context.Context) (index.LoadStats, error) {
	opts := s.opts
	opts.OnLoaded = func(path string, doc *index.Document) {
		s.track(path, doc.URI)
	}
	return index.LoadDirectory(ctx, s.index, s.dir, opts)
}

// Watch starts applying file changes below the directory until Close
func (s *IndexSync) Watch(debounce time.Duration) error {
	excludes, err := filepattern.Compile(s.opts.Exclude)
	if err != nil {
		return err
	}
	fw, err := NewFileWatcher([]string{constants.SemanticDocumentSuffix}, excludes, s.Apply)
	if err != nil {
		return err
	}
	if debounce > 0 {
		fw.SetDebounceDelay(debounce)
	}
	if err := fw.AddPath(s.dir); err != nil {
		fw.Stop()
		return err
	}
	fw.Start()
	s.watcher = fw
	common.IndexLogger.Info("Watching %s for semantic document changes", s.dir)
	return nil
}

// Close stops watching
func (s *IndexSync) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Stop()
}

// Apply re-indexes changed files and drops removed ones
func (s *IndexSync) Apply(events []FileChangeEvent) {
	touched := make(map[string]struct{})
	for _, event := range events {
		path := event.Path
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}

		if event.Operation.Gone() {
			if uri, ok := s.forget(path); ok {
				s.index.RemoveDocument(uri)
				touched[uri] = struct{}{}
			}
			continue
		}

		doc, err := index.LoadFile(s.index, path)
		if err != nil {
			// the previous version of the document stays indexed
			common.IndexLogger.Warn("Failed to re-index %s: %v", path, err)
			continue
		}
		if previous := s.track(path, doc.URI); previous != "" && previous != doc.URI {
			s.index.RemoveDocument(previous)
			touched[previous] = struct{}{}
		}
		touched[doc.URI] = struct{}{}
	}

	if len(touched) == 0 {
		return
	}
	uris := make([]string, 0, len(touched))
	for uri := range touched {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	s.mu.Lock()
	onChange := s.onChange
	s.mu.Unlock()
	if onChange != nil {
		onChange(uris)
	}
}

// track records that path produced uri and returns the uri it produced before
func (s *IndexSync) track(path, uri string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.uris[path]
	s.uris[path] = uri
	return previous
}

func (s *IndexSync) forget(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uri, ok := s.uris[path]
	delete(s.uris, path)
	return uri, ok
}
