package config

import (
	"path/filepath"
	"strings"

	"github.com/mvp-joe/code-digest/internal/compact"
	"github.com/mvp-joe/code-digest/internal/depgraph"
	"github.com/mvp-joe/code-digest/internal/digest"
	"github.com/mvp-joe/code-digest/internal/extract"
)

// RegistryOptions converts the extract section to registry options. The
// global runtime dir is used when the project does not set one.
func (c *Config) RegistryOptions(global *GlobalConfig) []extract.Option {
	runtimeDir := c.Extract.PythonRuntimeDir
	if runtimeDir == "" && global != nil {
		runtimeDir = global.Runtime.PythonDir
	}

	opts := []extract.Option{
		extract.WithPythonBackend(strings.ToLower(c.Extract.PythonBackend), runtimeDir),
	}
	if !c.Extract.Declarations {
		opts = append(opts, extract.WithoutDeclarations())
	}
	return opts
}

// EngineOptions converts the compact and digest sections to engine options.
func (c *Config) EngineOptions(progress compact.ProgressReporter) compact.Options {
	style, err := digest.ParseStyle(c.Digest.Style)
	if err != nil {
		style = digest.StyleLabeled
	}
	return compact.Options{
		BatchSize:  c.Compact.BatchSize,
		BatchDelay: c.Compact.BatchDelay,
		Ignore:     c.Compact.Ignore,
		Style:      style,
		CacheSize:  c.Compact.CacheSize,
		Progress:   progress,
	}
}

// GraphOptions converts the graph section to build options.
func (c *Config) GraphOptions(opts ...depgraph.Option) []depgraph.Option {
	return append([]depgraph.Option{depgraph.WithSourceRoot(c.Graph.SourceRoot)}, opts...)
}

// DBPath returns the database location, resolving relative paths against rootDir.
func (c *Config) DBPath(rootDir string) string {
	if filepath.IsAbs(c.Storage.DBPath) {
		return c.Storage.DBPath
	}
	return filepath.Join(rootDir, c.Storage.DBPath)
}
