package extract

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupported indicates no backend handles a file's extension.
var ErrUnsupported = errors.New("unsupported file type")

// Python backend selections.
const (
	PythonBackendProcess    = "process"
	PythonBackendTreeSitter = "treesitter"
)

// Registry selects a backend by file extension. Selection is a pure
// function of the extension; registries are safe for concurrent use.
type Registry struct {
	byExt   map[string]Backend
	closers []func() error
}

// Option configures a Registry.
type Option func(*registryOptions)

type registryOptions struct {
	heuristics       Heuristics
	pythonBackend    string
	pythonRuntimeDir string
	overrides        map[string]Backend
	withDeclarations bool
}

// WithHeuristics replaces the React naming convention.
func WithHeuristics(h Heuristics) Option {
	return func(o *registryOptions) { o.heuristics = h }
}

// WithPythonBackend selects "process" (embedded CPython) or "treesitter".
// runtimeDir is where the embedded interpreter is extracted.
func WithPythonBackend(kind, runtimeDir string) Option {
	return func(o *registryOptions) {
		o.pythonBackend = kind
		o.pythonRuntimeDir = runtimeDir
	}
}

// WithBackend registers backend for the given extensions, replacing defaults.
func WithBackend(backend Backend, exts ...string) Option {
	return func(o *registryOptions) {
		for _, ext := range exts {
			o.overrides[strings.ToLower(ext)] = backend
		}
	}
}

// WithoutDeclarations limits the registry to JavaScript/TypeScript and Python.
func WithoutDeclarations() Option {
	return func(o *registryOptions) { o.withDeclarations = false }
}

// ECMAScriptExtensions are the extensions handled by the ECMAScript backend.
var ECMAScriptExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

// NewRegistry creates a registry with the default backends.
func NewRegistry(opts ...Option) *Registry {
	o := &registryOptions{
		pythonBackend:    PythonBackendTreeSitter,
		overrides:        map[string]Backend{},
		withDeclarations: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.heuristics == nil {
		o.heuristics = NewConventionHeuristics()
	}

	r := &Registry{byExt: map[string]Backend{}}

	ecma := NewECMAScriptBackend(o.heuristics)
	for _, ext := range ECMAScriptExtensions {
		r.byExt[ext] = ecma
	}

	pyTree := NewPythonTreeSitterBackend(o.heuristics)
	r.byExt[".py"] = pyTree
	if o.pythonBackend == PythonBackendProcess {
		proc := NewPythonProcessBackend(o.pythonRuntimeDir, o.heuristics)
		r.byExt[".py"] = &fallbackBackend{primary: proc, secondary: pyTree}
		r.closers = append(r.closers, proc.Close)
	}

	if o.withDeclarations {
		r.byExt[".rs"] = NewRustBackend()
		r.byExt[".java"] = NewJavaBackend()
		cBackend := NewCBackend()
		r.byExt[".c"] = cBackend
		r.byExt[".h"] = cBackend
		r.byExt[".rb"] = NewRubyBackend()
		r.byExt[".php"] = NewPHPBackend()
	}

	for ext, backend := range o.overrides {
		r.byExt[ext] = backend
	}
	return r
}

// BackendFor returns the backend for path, or nil when unsupported.
func (r *Registry) BackendFor(path string) Backend {
	return r.byExt[strings.ToLower(filepath.Ext(path))]
}

// Supports reports whether some backend recognizes path.
func (r *Registry) Supports(path string) bool {
	return r.BackendFor(path) != nil
}

// Extensions returns the supported extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Skeleton extracts the skeleton of path.
func (r *Registry) Skeleton(ctx context.Context, path string, source []byte) (*Skeleton, error) {
	backend := r.BackendFor(path)
	if backend == nil {
		return nil, ErrUnsupported
	}
	return backend.Skeleton(ctx, path, source)
}

// Signatures extracts the declaration headers of path.
func (r *Registry) Signatures(ctx context.Context, path string, source []byte) ([]Signature, error) {
	backend := r.BackendFor(path)
	if backend == nil {
		return nil, ErrUnsupported
	}
	return backend.Signatures(ctx, path, source)
}

// Extract returns the skeleton of path, or nil when it cannot be parsed.
// Failures are logged and never returned.
func (r *Registry) Extract(ctx context.Context, path string, source []byte) *Skeleton {
	skeleton, err := r.Skeleton(ctx, path, source)
	if err != nil {
		log.Printf("Warning: failed to extract %s: %v", path, err)
		return nil
	}
	return skeleton
}

// Close releases resources held by backends.
func (r *Registry) Close() error {
	var errs []error
	for _, closeFn := range r.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fallbackBackend uses secondary whenever primary's runtime cannot start.
// Parse failures from primary are returned as-is.
type fallbackBackend struct {
	primary   Backend
	secondary Backend
	warnOnce  sync.Once
}

func (f *fallbackBackend) Name() string { return f.primary.Name() }

func (f *fallbackBackend) Skeleton(ctx context.Context, path string, source []byte) (*Skeleton, error) {
	s, err := f.primary.Skeleton(ctx, path, source)
	if errors.Is(err, ErrRuntimeUnavailable) {
		f.warn(err)
		return f.secondary.Skeleton(ctx, path, source)
	}
	return s, err
}

func (f *fallbackBackend) Signatures(ctx context.Context, path string, source []byte) ([]Signature, error) {
	sigs, err := f.primary.Signatures(ctx, path, source)
	if errors.Is(err, ErrRuntimeUnavailable) {
		f.warn(err)
		return f.secondary.Signatures(ctx, path, source)
	}
	return sigs, err
}

func (f *fallbackBackend) warn(err error) {
	f.warnOnce.Do(func() {
		log.Printf("Warning: %v; falling back to in-process %s parser", err, f.secondary.Name())
	})
}
