package compact

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Watcher:
// - NewWatcher rejects a missing root directory
// - NewWatcher defaults the debounce
// - Creating a supported file triggers one recompaction with the new file
// - Rapid changes are debounced into a single recompaction
// - A batch that arrives while another compaction runs is retried, not dropped
// - shouldProcessEvent filters ops, skipped dirs, ignored and unsupported files
// - Stop is safe to call twice and context cancellation ends the loop

type resultSink struct {
	mu      sync.Mutex
	results []*Result
}

func (s *resultSink) handle(result *Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.results = append(s.results, result)
	}
}

func (s *resultSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func (s *resultSink) last() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return nil
	}
	return s.results[len(s.results)-1]
}

func newWatchEngine(t *testing.T, ignore ...string) *Engine {
	t.Helper()
	return newTestEngine(t, &fakeExtractor{}, OSReader{}, Options{Ignore: ignore})
}

func TestNewWatcher_InvalidDirectory(t *testing.T) {
	t.Parallel()

	_, err := NewWatcher(newWatchEngine(t), filepath.Join(t.TempDir(), "nonexistent"), 0, nil)
	assert.Error(t, err)
}

func TestNewWatcher_Defaults(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := NewWatcher(newWatchEngine(t), root, 0, nil)
	require.NoError(t, err)
	// Not started, so close the fsnotify watcher directly.
	defer w.watcher.Close()

	assert.Equal(t, DefaultDebounce, w.debounceTime)
	assert.Equal(t, root, w.rootDir)
}

func TestWatcher_RecompactsOnChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.ts"), []byte("a"), 0644))

	sink := &resultSink{}
	w, err := NewWatcher(newWatchEngine(t), root, 100*time.Millisecond, sink.handle)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "src", "b.ts"), []byte(strings.Repeat("b", i+1)), 0644))
	}

	require.Eventually(t, func() bool { return sink.count() >= 1 }, 3*time.Second, 10*time.Millisecond)
	// Let any stray timer fire before counting.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, sink.count(), "rapid writes should be debounced")

	result := sink.last()
	require.NotNil(t, result)
	assert.Equal(t, "## src/a.ts\n## src/b.ts", result.Output)
}

func TestWatcher_RetriesBatchWhileBusy(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.ts"), []byte("a"), 0644))

	// Reads block until release is closed, holding the first run open.
	release := make(chan struct{})
	reader := ContentReaderFunc(func(ctx context.Context, p string) (string, error) {
		<-release
		return OSReader{}.ReadFileContent(ctx, p)
	})
	engine := newTestEngine(t, &fakeExtractor{}, reader, Options{})

	files, err := Walk(root)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		_, err := engine.Compact(context.Background(), root, files)
		done <- err
	}()
	require.Eventually(t, engine.Running, time.Second, 5*time.Millisecond)

	sink := &resultSink{}
	w, err := NewWatcher(engine, root, 50*time.Millisecond, sink.handle)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "b.ts"), []byte("b"), 0644))

	// The batch meets a busy engine at least once.
	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, sink.count())

	close(release)
	require.NoError(t, <-done)

	require.Eventually(t, func() bool { return sink.count() >= 1 }, 3*time.Second, 10*time.Millisecond)
	result := sink.last()
	require.NotNil(t, result)
	assert.Equal(t, "## src/a.ts\n## src/b.ts", result.Output)
}

func TestWatcher_ShouldProcessEvent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0755))

	w, err := NewWatcher(newWatchEngine(t, "legacy/**"), root, 0, nil)
	require.NoError(t, err)
	defer w.watcher.Close()

	tests := []struct {
		name    string
		path    string
		op      fsnotify.Op
		process bool
	}{
		{"write supported", "src/a.ts", fsnotify.Write, true},
		{"remove supported", "src/a.py", fsnotify.Remove, true},
		{"chmod ignored", "src/a.ts", fsnotify.Chmod, false},
		{"unsupported extension", "README.md", fsnotify.Write, false},
		{"skipped dir", "node_modules/x/index.ts", fsnotify.Create, false},
		{"ignore pattern", "legacy/old.ts", fsnotify.Write, false},
		{"new directory", "pkg", fsnotify.Create, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := fsnotify.Event{Name: filepath.Join(root, filepath.FromSlash(tt.path)), Op: tt.op}
			assert.Equal(t, tt.process, w.shouldProcessEvent(event))
		})
	}
}

func TestWatcher_StopAndCancel(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := NewWatcher(newWatchEngine(t), root, 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()

	select {
	case <-w.doneCh:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}

	w.Stop()
	w.Stop()
}
