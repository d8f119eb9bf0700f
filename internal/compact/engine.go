package compact

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sort"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/code-digest/internal/digest"
	"github.com/mvp-joe/code-digest/internal/extract"
)

// ErrBusy is returned when Compact is called while a run is in flight.
var ErrBusy = errors.New("compaction already running")

// DefaultBatchSize is the number of files processed concurrently per batch.
const DefaultBatchSize = 10

// Extractor produces skeletons and signatures per file. *extract.Registry
// implements it.
type Extractor interface {
	Supports(path string) bool
	Skeleton(ctx context.Context, path string, source []byte) (*extract.Skeleton, error)
	Signatures(ctx context.Context, path string, source []byte) ([]extract.Signature, error)
}

// Engine state machine: idle -> running -> idle.
const (
	stateIdle int32 = iota
	stateRunning
)

// Engine compacts a project listing into a digest. At most one run is
// active per engine.
type Engine struct {
	extractor  Extractor
	reader     ContentReader
	filter     *Filter
	cache      *fragmentCache
	progress   ProgressReporter
	batchSize  int
	batchDelay time.Duration
	style      digest.Style

	state    atomic.Int32
	snapshot atomic.Pointer[Progress]
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	// Ignore holds extra glob patterns excluded from compaction.
	Ignore []string
	Style  digest.Style
	// CacheSize bounds the fragment cache in characters; negative disables it.
	CacheSize int
	Progress  ProgressReporter
}

// NewEngine creates an engine over an extractor and a content reader.
func NewEngine(extractor Extractor, reader ContentReader, opts Options) (*Engine, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Style == "" {
		opts.Style = digest.StyleLabeled
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Progress == nil {
		opts.Progress = &NoOpProgressReporter{}
	}

	filter, err := NewFilter(opts.Ignore, extractor.Supports)
	if err != nil {
		return nil, fmt.Errorf("invalid ignore pattern: %w", err)
	}

	var cache *fragmentCache
	if opts.CacheSize > 0 {
		cache, err = newFragmentCache(opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create fragment cache: %w", err)
		}
	}

	return &Engine{
		extractor:  extractor,
		reader:     reader,
		filter:     filter,
		cache:      cache,
		progress:   opts.Progress,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		style:      opts.Style,
	}, nil
}

// Running reports whether a run is in flight.
func (e *Engine) Running() bool {
	return e.state.Load() == stateRunning
}

// Progress returns the latest progress of the active run.
func (e *Engine) Progress() (Progress, bool) {
	p := e.snapshot.Load()
	if p == nil {
		return Progress{}, false
	}
	return *p, true
}

// Close releases the fragment cache.
func (e *Engine) Close() {
	e.cache.close()
}

// fileResult is the contribution of one processed file.
type fileResult struct {
	fragment digest.Fragment
	size     int
	tier     digest.Tier
}

// Compact filters files, processes them in sequential batches and returns
// the composed digest. It returns (nil, nil) when no file is eligible and
// (nil, ErrBusy) when another run is in flight. Files that cannot be read
// or extracted are skipped.
func (e *Engine) Compact(ctx context.Context, root string, files []FileEntry) (*Result, error) {
	if !e.state.CompareAndSwap(stateIdle, stateRunning) {
		return nil, ErrBusy
	}
	defer func() {
		e.snapshot.Store(nil)
		e.state.Store(stateIdle)
	}()

	startTime := time.Now()
	runID := uuid.New().String()

	e.report(Progress{Phase: PhaseScanning})
	eligible := e.filter.Apply(root, files)
	if len(eligible) == 0 {
		e.report(Progress{Phase: PhaseEmpty})
		log.Printf("Compaction %s: no eligible files in %d entries\n", runID, len(files))
		return nil, nil
	}

	total := len(eligible)
	e.report(Progress{Total: total, Phase: PhaseParsing})

	result := &Result{RunID: runID}
	var fragments []digest.Fragment

	for start := 0; start < total; start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+e.batchSize, total)
		batch := eligible[start:end]
		results := make([]*fileResult, len(batch))
		skipped := make([]error, len(batch))

		var g errgroup.Group
		for i, file := range batch {
			g.Go(func() error {
				r, err := e.processFile(ctx, root, file)
				if err != nil {
					skipped[i] = err
					return nil
				}
				results[i] = r
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i, r := range results {
			if r == nil {
				log.Printf("Warning: failed to process %s: %v\n", batch[i].Path, skipped[i])
				e.progress.OnFileSkipped(batch[i].Path, skipped[i])
				result.Skipped = append(result.Skipped, relativePath(root, batch[i].Path))
				continue
			}
			fragments = append(fragments, r.fragment)
			result.OriginalSize += r.size
			result.Tiers.add(r.tier)
		}

		e.report(Progress{Current: end, Total: total, Phase: PhaseParsing})

		if end < total {
			if err := e.yield(ctx); err != nil {
				return nil, err
			}
		}
	}

	e.report(Progress{Current: total, Total: total, Phase: PhaseFinishing})

	sort.Slice(fragments, func(i, j int) bool { return fragments[i].Path < fragments[j].Path })
	result.Output = digest.Join(fragments)
	result.Files = len(fragments)
	result.TokenEstimate = digest.Compose(result.Output, nil).TokenEstimate
	result.Duration = time.Since(startTime)

	log.Printf("[TIMING] Compaction %s: %v (%d files, %d skipped)\n",
		runID, result.Duration, result.Files, len(result.Skipped))
	e.progress.OnComplete(result)
	return result, nil
}

// yield gives other goroutines a turn between batches.
func (e *Engine) yield(ctx context.Context) error {
	runtime.Gosched()
	if e.batchDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(e.batchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) report(p Progress) {
	e.snapshot.Store(&p)
	e.progress.OnProgress(p)
}

// processFile reads one file and renders its fragment for its tier.
func (e *Engine) processFile(ctx context.Context, root string, file FileEntry) (*fileResult, error) {
	content, err := e.reader.ReadFileContent(ctx, file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read: %w", err)
	}

	rel := relativePath(root, file.Path)
	tier := digest.TierFor(digest.LineCount(content))
	r := &fileResult{
		fragment: digest.Fragment{Path: rel},
		size:     utf8.RuneCountInString(content),
		tier:     tier,
	}
	if tier == digest.TierPathOnly {
		return r, nil
	}

	key := cacheKey(rel, tier, e.style, content)
	if body, ok := e.cache.get(key); ok {
		r.fragment.Content = body
		return r, nil
	}

	source := []byte(content)
	switch tier {
	case digest.TierSignatures:
		sigs, err := e.extractor.Signatures(ctx, file.Path, source)
		if err != nil {
			return nil, fmt.Errorf("failed to extract signatures: %w", err)
		}
		r.fragment.Content = digest.FormatSignatures(sigs)
	case digest.TierSkeleton:
		skeleton, err := e.extractor.Skeleton(ctx, file.Path, source)
		if err != nil {
			return nil, fmt.Errorf("failed to extract skeleton: %w", err)
		}
		r.fragment.Content = digest.FormatSkeleton(skeleton, e.style)
	}

	e.cache.set(key, r.fragment.Content)
	return r, nil
}
