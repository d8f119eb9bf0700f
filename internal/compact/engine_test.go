package compact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/code-digest/internal/digest"
	"github.com/mvp-joe/code-digest/internal/extract"
)

// Test Plan for Engine:
// - Files are tiered by line count and rendered per tier
// - Directories, skipped dirs, ignored and unsupported files never reach the reader
// - Output fragments are sorted by path regardless of listing order
// - Read and extraction failures skip the file and are recorded
// - OriginalSize sums only contributing files
// - Empty eligible set returns nil result and reports the empty phase
// - A second concurrent run returns ErrBusy
// - Cancelled context aborts the run and releases the engine
// - Progress phases are reported in order with file counts
// - Unchanged files are served from the fragment cache
// - Negative cache size disables caching
// - Invalid ignore pattern fails engine construction

const testRoot = "/proj"

// fakeExtractor supports .ts and .py files and returns one symbol named
// after the file.
type fakeExtractor struct {
	mu             sync.Mutex
	skeletonCalls  int
	signatureCalls int
	fail           map[string]bool
}

func (f *fakeExtractor) Supports(p string) bool {
	ext := path.Ext(p)
	return ext == ".ts" || ext == ".py"
}

func (f *fakeExtractor) Skeleton(ctx context.Context, p string, source []byte) (*extract.Skeleton, error) {
	f.mu.Lock()
	f.skeletonCalls++
	f.mu.Unlock()
	if f.fail[p] {
		return nil, errors.New("parse error")
	}
	name := strings.TrimSuffix(path.Base(p), path.Ext(p))
	return &extract.Skeleton{
		Functions: []extract.Symbol{{Name: name, Line: 1, EndLine: 1}},
	}, nil
}

func (f *fakeExtractor) Signatures(ctx context.Context, p string, source []byte) ([]extract.Signature, error) {
	f.mu.Lock()
	f.signatureCalls++
	f.mu.Unlock()
	if f.fail[p] {
		return nil, errors.New("parse error")
	}
	name := strings.TrimSuffix(path.Base(p), path.Ext(p))
	return []extract.Signature{{Name: name, Signature: "function " + name + "()", Line: 1}}, nil
}

func (f *fakeExtractor) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.skeletonCalls, f.signatureCalls
}

// mapReader serves contents from memory and records every path it reads.
type mapReader struct {
	mu       sync.Mutex
	contents map[string]string
	read     []string
}

func (r *mapReader) ReadFileContent(ctx context.Context, p string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.read = append(r.read, p)
	content, ok := r.contents[p]
	if !ok {
		return "", fmt.Errorf("no such file: %s", p)
	}
	return content, nil
}

func (r *mapReader) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.read...)
}

// recordingReporter captures every callback.
type recordingReporter struct {
	mu       sync.Mutex
	progress []Progress
	skipped  []string
	complete int
}

func (r *recordingReporter) OnProgress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recordingReporter) OnFileSkipped(p string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, p)
}

func (r *recordingReporter) OnComplete(result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete++
}

// lines returns content whose line count is exactly n.
func lines(n int) string {
	return strings.Repeat("x\n", n-1) + "x"
}

func abs(rel string) string {
	return filepath.Join(testRoot, filepath.FromSlash(rel))
}

func fileEntries(rels ...string) []FileEntry {
	entries := make([]FileEntry, 0, len(rels))
	for _, rel := range rels {
		entries = append(entries, FileEntry{Path: abs(rel), ParentPath: filepath.Dir(abs(rel))})
	}
	return entries
}

func newTestEngine(t *testing.T, extractor Extractor, reader ContentReader, opts Options) *Engine {
	t.Helper()
	engine, err := NewEngine(extractor, reader, opts)
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func TestEngine_CompactTiers(t *testing.T) {
	t.Parallel()

	reader := &mapReader{contents: map[string]string{
		abs("src/small.ts"):  lines(10),
		abs("src/medium.ts"): lines(300),
		abs("src/large.py"):  lines(800),
	}}
	extractor := &fakeExtractor{}
	engine := newTestEngine(t, extractor, reader, Options{})

	// Listed out of order; output must be sorted.
	files := fileEntries("src/medium.ts", "src/small.ts", "src/large.py")
	result, err := engine.Compact(context.Background(), testRoot, files)
	require.NoError(t, err)
	require.NotNil(t, result)

	expected := strings.Join([]string{
		"## src/large.py",
		"Functions: large:1",
		"## src/medium.ts",
		"function medium()  // line 1",
		"## src/small.ts",
	}, "\n")
	assert.Equal(t, expected, result.Output)
	assert.Equal(t, 3, result.Files)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, TierCounts{PathOnly: 1, Signatures: 1, Skeleton: 1}, result.Tiers)
	assert.NotEmpty(t, result.RunID)

	expectedSize := utf8.RuneCountInString(lines(10)) + utf8.RuneCountInString(lines(300)) + utf8.RuneCountInString(lines(800))
	assert.Equal(t, expectedSize, result.OriginalSize)
	assert.Equal(t, digest.Compose(result.Output, nil).TokenEstimate, result.TokenEstimate)
	assert.Greater(t, result.CompressionRatio(), 0.0)
	assert.Less(t, result.CompressionRatio(), 1.0)

	skeletons, signatures := extractor.calls()
	assert.Equal(t, 1, skeletons)
	assert.Equal(t, 1, signatures)
	assert.False(t, engine.Running())
}

func TestEngine_CompactFiltersBeforeReading(t *testing.T) {
	t.Parallel()

	reader := &mapReader{contents: map[string]string{
		abs("src/app.ts"): lines(5),
	}}
	engine := newTestEngine(t, &fakeExtractor{}, reader, Options{
		Ignore: []string{"**/*.gen.ts"},
	})

	files := append(fileEntries(
		"src/app.ts",
		"README.md",
		"node_modules/lib/index.ts",
		"src/dist/bundle.ts",
		"src/api.gen.ts",
		"client.gen.ts",
	), FileEntry{Path: abs("src"), IsDir: true})

	result, err := engine.Compact(context.Background(), testRoot, files)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "## src/app.ts", result.Output)
	assert.Equal(t, []string{abs("src/app.ts")}, reader.paths())
}

func TestEngine_CompactSkipsFailures(t *testing.T) {
	t.Parallel()

	reader := &mapReader{contents: map[string]string{
		abs("a.ts"):      lines(3),
		abs("broken.ts"): lines(900),
		abs("c.ts"):      lines(4),
		// missing.ts is listed but unreadable
	}}
	extractor := &fakeExtractor{fail: map[string]bool{abs("broken.ts"): true}}
	reporter := &recordingReporter{}
	engine := newTestEngine(t, extractor, reader, Options{Progress: reporter})

	files := fileEntries("a.ts", "broken.ts", "missing.ts", "c.ts")
	result, err := engine.Compact(context.Background(), testRoot, files)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "## a.ts\n## c.ts", result.Output)
	assert.Equal(t, 2, result.Files)
	assert.Equal(t, []string{"broken.ts", "missing.ts"}, result.Skipped)
	assert.Equal(t, utf8.RuneCountInString(lines(3))+utf8.RuneCountInString(lines(4)), result.OriginalSize)
	assert.Equal(t, TierCounts{PathOnly: 2}, result.Tiers)
	assert.ElementsMatch(t, []string{abs("broken.ts"), abs("missing.ts")}, reporter.skipped)
}

func TestEngine_CompactEmpty(t *testing.T) {
	t.Parallel()

	reporter := &recordingReporter{}
	engine := newTestEngine(t, &fakeExtractor{}, &mapReader{}, Options{Progress: reporter})

	result, err := engine.Compact(context.Background(), testRoot, fileEntries("README.md", "go.sum"))
	require.NoError(t, err)
	assert.Nil(t, result)

	require.NotEmpty(t, reporter.progress)
	assert.Equal(t, PhaseEmpty, reporter.progress[len(reporter.progress)-1].Phase)
	assert.Zero(t, reporter.complete)

	result, err = engine.Compact(context.Background(), testRoot, nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestEngine_CompactBusy(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	reader := ContentReaderFunc(func(ctx context.Context, p string) (string, error) {
		<-release
		return lines(2), nil
	})
	engine := newTestEngine(t, &fakeExtractor{}, reader, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := engine.Compact(context.Background(), testRoot, fileEntries("a.ts"))
		done <- err
	}()

	require.Eventually(t, engine.Running, time.Second, 5*time.Millisecond)

	_, err := engine.Compact(context.Background(), testRoot, fileEntries("b.ts"))
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, engine.Running())

	// Engine is reusable once the first run finished.
	result, err := engine.Compact(context.Background(), testRoot, fileEntries("b.ts"))
	require.NoError(t, err)
	assert.Equal(t, "## b.ts", result.Output)
}

func TestEngine_CompactCancelled(t *testing.T) {
	t.Parallel()

	reader := &mapReader{contents: map[string]string{abs("a.ts"): lines(2)}}
	engine := newTestEngine(t, &fakeExtractor{}, reader, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Compact(ctx, testRoot, fileEntries("a.ts"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.False(t, engine.Running())

	_, ok := engine.Progress()
	assert.False(t, ok)
}

func TestEngine_CompactProgressPhases(t *testing.T) {
	t.Parallel()

	reader := &mapReader{contents: map[string]string{
		abs("a.ts"): lines(1),
		abs("b.ts"): lines(1),
		abs("c.ts"): lines(1),
	}}
	reporter := &recordingReporter{}
	engine := newTestEngine(t, &fakeExtractor{}, reader, Options{
		BatchSize:  2,
		BatchDelay: time.Millisecond,
		Progress:   reporter,
	})

	_, err := engine.Compact(context.Background(), testRoot, fileEntries("a.ts", "b.ts", "c.ts"))
	require.NoError(t, err)

	assert.Equal(t, []Progress{
		{Phase: PhaseScanning},
		{Current: 0, Total: 3, Phase: PhaseParsing},
		{Current: 2, Total: 3, Phase: PhaseParsing},
		{Current: 3, Total: 3, Phase: PhaseParsing},
		{Current: 3, Total: 3, Phase: PhaseFinishing},
	}, reporter.progress)
	assert.Equal(t, 1, reporter.complete)
}

func TestEngine_FragmentCache(t *testing.T) {
	t.Parallel()

	reader := &mapReader{contents: map[string]string{
		abs("big.ts"): lines(900),
		abs("mid.ts"): lines(400),
	}}
	extractor := &fakeExtractor{}
	engine := newTestEngine(t, extractor, reader, Options{})
	files := fileEntries("big.ts", "mid.ts")

	first, err := engine.Compact(context.Background(), testRoot, files)
	require.NoError(t, err)
	second, err := engine.Compact(context.Background(), testRoot, files)
	require.NoError(t, err)

	assert.Equal(t, first.Output, second.Output)
	skeletons, signatures := extractor.calls()
	assert.Equal(t, 1, skeletons, "second run should hit the cache")
	assert.Equal(t, 1, signatures)

	// Changed content misses the cache.
	reader.mu.Lock()
	reader.contents[abs("big.ts")] = lines(901)
	reader.mu.Unlock()

	_, err = engine.Compact(context.Background(), testRoot, files)
	require.NoError(t, err)
	skeletons, _ = extractor.calls()
	assert.Equal(t, 2, skeletons)
}

func TestEngine_CacheDisabled(t *testing.T) {
	t.Parallel()

	reader := &mapReader{contents: map[string]string{abs("big.ts"): lines(900)}}
	extractor := &fakeExtractor{}
	engine := newTestEngine(t, extractor, reader, Options{CacheSize: -1})

	for i := 0; i < 2; i++ {
		_, err := engine.Compact(context.Background(), testRoot, fileEntries("big.ts"))
		require.NoError(t, err)
	}
	skeletons, _ := extractor.calls()
	assert.Equal(t, 2, skeletons)
}

func TestEngine_CompactStyle(t *testing.T) {
	t.Parallel()

	reader := &mapReader{contents: map[string]string{abs("big.py"): lines(850)}}
	engine := newTestEngine(t, &fakeExtractor{}, reader, Options{Style: digest.StyleCompact})

	result, err := engine.Compact(context.Background(), testRoot, fileEntries("big.py"))
	require.NoError(t, err)
	assert.Equal(t, "## big.py\nfn: big:1", result.Output)
}

func TestNewEngine_InvalidIgnore(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(&fakeExtractor{}, &mapReader{}, Options{Ignore: []string{"[unclosed"}})
	assert.Error(t, err)
}
