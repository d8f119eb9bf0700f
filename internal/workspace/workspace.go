// Package workspace ties one project root to its compaction engine and its
// digest store. The CLI and the MCP server both drive compaction, section
// selection and graph building through a Workspace.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/mvp-joe/code-digest/internal/compact"
	"github.com/mvp-joe/code-digest/internal/config"
	"github.com/mvp-joe/code-digest/internal/depgraph"
	"github.com/mvp-joe/code-digest/internal/digest"
	"github.com/mvp-joe/code-digest/internal/extract"
	"github.com/mvp-joe/code-digest/internal/storage"
)

// DefaultKeep is the number of stored digests retained per root.
const DefaultKeep = 20

// ErrNoDigest is returned when the project has not been compacted yet.
var ErrNoDigest = errors.New("no digest stored; run compact first")

// Options configures Open.
type Options struct {
	Global        *config.GlobalConfig
	Progress      compact.ProgressReporter
	GraphProgress depgraph.ProgressReporter
	// Keep bounds the stored history; zero selects DefaultKeep.
	Keep int
	// Extractor replaces the extractor registry built from the config.
	Extractor compact.Extractor
}

// Workspace is an opened project.
type Workspace struct {
	root     string
	cfg      *config.Config
	registry *extract.Registry
	engine   *compact.Engine
	store    *storage.Store
	graphOpt []depgraph.Option
	keep     int
}

// Open prepares the engine and opens the digest store of root.
func Open(root string, cfg *config.Config, opts Options) (*Workspace, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Keep <= 0 {
		opts.Keep = DefaultKeep
	}

	w := &Workspace{root: absRoot, cfg: cfg, keep: opts.Keep}

	extractor := opts.Extractor
	if extractor == nil {
		w.registry = extract.NewRegistry(cfg.RegistryOptions(opts.Global)...)
		extractor = w.registry
	}

	w.engine, err = compact.NewEngine(extractor, compact.OSReader{}, cfg.EngineOptions(opts.Progress))
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	w.store, err = storage.Open(cfg.DBPath(absRoot))
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to open digest store: %w", err)
	}

	if opts.GraphProgress != nil {
		w.graphOpt = cfg.GraphOptions(depgraph.WithProgress(opts.GraphProgress))
	} else {
		w.graphOpt = cfg.GraphOptions()
	}

	return w, nil
}

// Root returns the absolute project root.
func (w *Workspace) Root() string { return w.root }

// Engine returns the compaction engine.
func (w *Workspace) Engine() *compact.Engine { return w.engine }

// Store returns the digest store.
func (w *Workspace) Store() *storage.Store { return w.store }

// Config returns the project configuration.
func (w *Workspace) Config() *config.Config { return w.cfg }

// Compact walks the project, compacts it and stores the result. A nil
// result (nothing to compact) is returned without storing anything.
func (w *Workspace) Compact(ctx context.Context) (*compact.Result, error) {
	result, err := w.Preview(ctx)
	if err != nil || result == nil {
		return nil, err
	}

	if err := w.Save(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// Preview compacts the project without storing the result.
func (w *Workspace) Preview(ctx context.Context) (*compact.Result, error) {
	files, err := compact.Walk(w.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return w.engine.Compact(ctx, w.root, files)
}

// Save stores a result and prunes the history beyond the retention limit.
func (w *Workspace) Save(ctx context.Context, result *compact.Result) error {
	style := w.cfg.Digest.Style
	if style == "" {
		style = string(digest.StyleLabeled)
	}

	_, err := w.store.SaveDigest(ctx, &storage.DigestRecord{
		Root:          w.root,
		RunID:         result.RunID,
		Style:         style,
		Output:        result.Output,
		OriginalSize:  result.OriginalSize,
		FileCount:     result.Files,
		SkippedCount:  len(result.Skipped),
		TokenEstimate: result.TokenEstimate,
	})
	if err != nil {
		return fmt.Errorf("failed to save digest: %w", err)
	}

	removed, err := w.store.PruneDigests(ctx, w.root, w.keep)
	if err != nil {
		return fmt.Errorf("failed to prune digests: %w", err)
	}
	if removed > 0 {
		log.Printf("Pruned %d old digests", removed)
	}
	return nil
}

// Latest returns the newest stored digest.
func (w *Workspace) Latest(ctx context.Context) (*storage.DigestRecord, error) {
	rec, err := w.store.LatestDigest(ctx, w.root)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoDigest
	}
	return rec, err
}

// Selection loads the newest digest with the persisted disabled paths.
func (w *Workspace) Selection(ctx context.Context) (*digest.Selection, error) {
	rec, err := w.Latest(ctx)
	if err != nil {
		return nil, err
	}
	disabled, err := w.store.DisabledPaths(ctx, w.root)
	if err != nil {
		return nil, err
	}
	return digest.NewSelection(rec.Output, disabled), nil
}

// SaveSelection persists the disabled paths of sel.
func (w *Workspace) SaveSelection(ctx context.Context, sel *digest.Selection) error {
	return w.store.SetDisabledPaths(ctx, w.root, sel.Disabled())
}

// Composed returns the newest digest without its disabled fragments.
func (w *Workspace) Composed(ctx context.Context) (digest.Composition, error) {
	sel, err := w.Selection(ctx)
	if err != nil {
		return digest.Composition{}, err
	}
	return sel.Compose(), nil
}

// Graph builds the dependency graph of the composed digest.
func (w *Workspace) Graph(ctx context.Context) (*depgraph.Graph, error) {
	composed, err := w.Composed(ctx)
	if err != nil {
		return nil, err
	}
	return depgraph.Build(composed.Digest, w.graphOpt...), nil
}

// Close releases the engine, the extractor registry and the store.
func (w *Workspace) Close() error {
	if w.engine != nil {
		w.engine.Close()
	}
	var err error
	if w.store != nil {
		err = w.store.Close()
	}
	if w.registry != nil {
		if cerr := w.registry.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
