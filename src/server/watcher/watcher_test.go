package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/server/index"
	"semanticdb-lsp/src/utils/filepattern"
)

func eventuallyTimeout() time.Duration {
	if common.IsCI() {
		return 30 * time.Second
	}
	return 5 * time.Second
}

func documentJSON(uri, symbol string) string {
	return `{"uri": "` + uri + `", "occurrences": [{"symbol": "` + symbol +
		`", "range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 3}}, "role": "definition"}]}`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func symbolAt(idx *index.SymbolIndex, uri string) string {
	sym, ok := idx.FindSymbolAt(uri, 0, 1)
	if !ok {
		return ""
	}
	return sym.String()
}

func TestIndexSync_Apply(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "A.semanticdb.json")
	writeFile(t, a, documentJSON("file:///ws/A.scala", "a/A#"))

	idx := index.New(index.Options{})
	s := NewIndexSync(idx, root, index.LoadOptions{})
	var batches [][]string
	s.OnChange(func(uris []string) { batches = append(batches, uris) })

	stats, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Loaded)
	assert.Equal(t, "a/A#", symbolAt(idx, "file:///ws/A.scala"))

	// rewrite replaces the previous contents
	writeFile(t, a, documentJSON("file:///ws/A.scala", "a/A2#"))
	s.Apply([]FileChangeEvent{{Path: a, Operation: OpWrite}})
	assert.Equal(t, "a/A2#", symbolAt(idx, "file:///ws/A.scala"))

	// a broken rewrite keeps the last good version
	writeFile(t, a, `{"uri": `)
	s.Apply([]FileChangeEvent{{Path: a, Operation: OpWrite}})
	assert.Equal(t, "a/A2#", symbolAt(idx, "file:///ws/A.scala"))

	// a file that now describes another uri drops the old one
	writeFile(t, a, documentJSON("file:///ws/Moved.scala", "a/Moved#"))
	s.Apply([]FileChangeEvent{{Path: a, Operation: OpWrite}})
	assert.Equal(t, []string{"file:///ws/Moved.scala"}, idx.Documents())

	require.NoError(t, os.Remove(a))
	s.Apply([]FileChangeEvent{{Path: a, Operation: OpRemove}})
	assert.Empty(t, idx.Documents())

	// removing an unknown path is a no-op
	s.Apply([]FileChangeEvent{{Path: filepath.Join(root, "Unknown.semanticdb.json"), Operation: OpRemove}})

	assert.Equal(t, [][]string{
		{"file:///ws/A.scala"},
		{"file:///ws/A.scala", "file:///ws/Moved.scala"},
		{"file:///ws/Moved.scala"},
	}, batches)
}

func TestFileWatcher_ShouldProcess(t *testing.T) {
	root := t.TempDir()
	excludes, err := filepattern.Compile([]string{"**/target/**"})
	require.NoError(t, err)

	fw, err := NewFileWatcher([]string{".semanticdb.json"}, excludes, nil)
	require.NoError(t, err)
	defer fw.Stop()

	assert.True(t, fw.shouldProcess(fsnotify.Event{Name: filepath.Join(root, "A.scala.semanticdb.json"), Op: fsnotify.Write}))
	assert.False(t, fw.shouldProcess(fsnotify.Event{Name: filepath.Join(root, "A.scala"), Op: fsnotify.Write}))
	assert.False(t, fw.shouldProcess(fsnotify.Event{Name: filepath.Join(root, "target", "A.semanticdb.json"), Op: fsnotify.Write}))

	sub := filepath.Join(root, "new")
	require.NoError(t, os.Mkdir(sub, 0755))
	assert.False(t, fw.shouldProcess(fsnotify.Event{Name: sub, Op: fsnotify.Create}), "directories are watched, not reported")
	assert.Contains(t, fw.watcher.WatchList(), sub)
}

func TestFileWatcher_DebouncesLatestOperation(t *testing.T) {
	var mu sync.Mutex
	var got []FileChangeEvent
	done := make(chan struct{}, 1)

	fw, err := NewFileWatcher([]string{".semanticdb.json"}, nil, func(events []FileChangeEvent) {
		mu.Lock()
		got = append(got, events...)
		mu.Unlock()
		done <- struct{}{}
	})
	require.NoError(t, err)
	defer fw.Stop()
	fw.SetDebounceDelay(10 * time.Millisecond)

	fw.handleEvent(fsnotify.Event{Name: "/x/A.semanticdb.json", Op: fsnotify.Create})
	fw.handleEvent(fsnotify.Event{Name: "/x/A.semanticdb.json", Op: fsnotify.Write})
	fw.handleEvent(fsnotify.Event{Name: "/x/A.semanticdb.json", Op: fsnotify.Chmod})

	select {
	case <-done:
	case <-time.After(eventuallyTimeout()):
		t.Fatal("debounced events were not flushed")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, OpWrite, got[0].Operation)
}

func TestIndexSync_WatchPicksUpChanges(t *testing.T) {
	root := t.TempDir()
	idx := index.New(index.Options{})
	s := NewIndexSync(idx, root, index.LoadOptions{})
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Watch(20*time.Millisecond))
	defer s.Close()

	path := filepath.Join(root, "B.semanticdb.json")
	writeFile(t, path, documentJSON("file:///ws/B.scala", "a/B#"))
	require.Eventually(t, func() bool {
		return symbolAt(idx, "file:///ws/B.scala") == "a/B#"
	}, eventuallyTimeout(), 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		return len(idx.Documents()) == 0
	}, eventuallyTimeout(), 20*time.Millisecond)
}
