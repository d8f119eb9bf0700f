package extract

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kluctl/go-embed-python/python"
)

//go:embed python_ast.py
var pythonASTScript []byte

// ErrRuntimeUnavailable indicates the embedded interpreter could not be started.
var ErrRuntimeUnavailable = errors.New("python runtime unavailable")

// pythonProcessBackend runs the standard library ast module in an embedded
// CPython child process, one process per file. Source goes in on stdin and
// the structure comes back as JSON on stdout.
type pythonProcessBackend struct {
	runtimeDir string
	h          Heuristics

	once       sync.Once
	ep         *python.EmbeddedPython
	scriptDir  string
	scriptPath string
	initErr    error
}

// NewPythonProcessBackend creates the out-of-process Python backend. The
// interpreter is extracted under runtimeDir on first use.
func NewPythonProcessBackend(runtimeDir string, h Heuristics) *pythonProcessBackend {
	if h == nil {
		h = NewConventionHeuristics()
	}
	return &pythonProcessBackend{runtimeDir: runtimeDir, h: h}
}

func (b *pythonProcessBackend) Name() string { return "python" }

// Start extracts the interpreter and the parser script. It is safe to call
// more than once; later calls return the first result.
func (b *pythonProcessBackend) Start() error {
	b.once.Do(func() {
		ep, err := python.NewEmbeddedPythonWithTmpDir(b.runtimeDir, true)
		if err != nil {
			b.initErr = fmt.Errorf("%w: failed to create embedded Python: %v", ErrRuntimeUnavailable, err)
			return
		}

		scriptDir, err := os.MkdirTemp("", "digest-pyast-*")
		if err != nil {
			b.initErr = fmt.Errorf("%w: failed to create script dir: %v", ErrRuntimeUnavailable, err)
			return
		}

		scriptPath := filepath.Join(scriptDir, "python_ast.py")
		if err := os.WriteFile(scriptPath, pythonASTScript, 0644); err != nil {
			os.RemoveAll(scriptDir)
			b.initErr = fmt.Errorf("%w: failed to write script: %v", ErrRuntimeUnavailable, err)
			return
		}

		b.ep = ep
		b.scriptDir = scriptDir
		b.scriptPath = scriptPath
	})
	return b.initErr
}

// Close removes the extracted parser script.
func (b *pythonProcessBackend) Close() error {
	if b.scriptDir == "" {
		return nil
	}
	return os.RemoveAll(b.scriptDir)
}

// pythonFacts mirrors the JSON printed by python_ast.py.
type pythonFacts struct {
	Imports []struct {
		Source string   `json:"source"`
		Names  []string `json:"names"`
	} `json:"imports"`
	Exports   []string `json:"exports"`
	Functions []struct {
		Name       string   `json:"name"`
		Line       int      `json:"line"`
		EndLine    int      `json:"end_line"`
		Decorators []string `json:"decorators"`
		Async      bool     `json:"async"`
	} `json:"functions"`
	Classes []struct {
		Name       string   `json:"name"`
		Line       int      `json:"line"`
		EndLine    int      `json:"end_line"`
		Bases      []string `json:"bases"`
		Decorators []string `json:"decorators"`
	} `json:"classes"`
	Types []struct {
		Name    string `json:"name"`
		Line    int    `json:"line"`
		EndLine int    `json:"end_line"`
	} `json:"types"`
	Constants  int      `json:"constants"`
	Calls      []string `json:"calls"`
	Signatures []struct {
		Name      string `json:"name"`
		Signature string `json:"signature"`
		Line      int    `json:"line"`
	} `json:"signatures"`
}

func (b *pythonProcessBackend) run(ctx context.Context, path string, source []byte, mode string) (*pythonFacts, error) {
	if err := b.Start(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd, err := b.ep.PythonCmd(b.scriptPath, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create Python command: %w", err)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(source)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start Python parser: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("failed to parse python file %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
		}
	}

	var facts pythonFacts
	if err := json.Unmarshal(stdout.Bytes(), &facts); err != nil {
		return nil, fmt.Errorf("failed to decode parser output for %s: %w", path, err)
	}
	return &facts, nil
}

func (b *pythonProcessBackend) Skeleton(ctx context.Context, path string, source []byte) (*Skeleton, error) {
	facts, err := b.run(ctx, path, source, "skeleton")
	if err != nil {
		return nil, err
	}

	s := &Skeleton{Constants: facts.Constants}
	for _, imp := range facts.Imports {
		s.Imports = append(s.Imports, Import{Source: imp.Source, Names: imp.Names})
	}
	for _, name := range facts.Exports {
		s.Exports = append(s.Exports, Export{Name: name, Kind: ExportNamed})
	}
	for _, fn := range facts.Functions {
		sym := Symbol{Name: fn.Name, Line: fn.Line, EndLine: fn.EndLine, Decorators: fn.Decorators, Async: fn.Async}
		if b.h.IsComponent(fn.Name) {
			s.Components = append(s.Components, sym)
		} else {
			s.Functions = append(s.Functions, sym)
		}
	}
	for _, c := range facts.Classes {
		s.Classes = append(s.Classes, Class{
			Name:       c.Name,
			Line:       c.Line,
			EndLine:    c.EndLine,
			Bases:      c.Bases,
			Decorators: c.Decorators,
		})
	}
	for _, t := range facts.Types {
		s.Types = append(s.Types, TypeDecl{Name: t.Name, Line: t.Line, EndLine: t.EndLine})
	}

	hooks := newHookCounter(b.h)
	for _, call := range facts.Calls {
		hooks.observe(call)
	}
	s.Hooks = hooks.result()
	return s, nil
}

func (b *pythonProcessBackend) Signatures(ctx context.Context, path string, source []byte) ([]Signature, error) {
	facts, err := b.run(ctx, path, source, "signatures")
	if err != nil {
		return nil, err
	}
	sigs := make([]Signature, 0, len(facts.Signatures))
	for _, sig := range facts.Signatures {
		sigs = append(sigs, Signature{Name: sig.Name, Signature: sig.Signature, Line: sig.Line})
	}
	return sigs, nil
}
