package config

import (
	"time"

	"github.com/mvp-joe/code-digest/internal/compact"
	"github.com/mvp-joe/code-digest/internal/depgraph"
	"github.com/mvp-joe/code-digest/internal/digest"
	"github.com/mvp-joe/code-digest/internal/extract"
)

// Config represents the complete project configuration.
// It can be loaded from .digest/config.yml with environment variable overrides.
type Config struct {
	Compact CompactConfig `yaml:"compact" mapstructure:"compact"`
	Digest  DigestConfig  `yaml:"digest" mapstructure:"digest"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Graph   GraphConfig   `yaml:"graph" mapstructure:"graph"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
}

// CompactConfig tunes the batch pipeline.
type CompactConfig struct {
	BatchSize  int           `yaml:"batch_size" mapstructure:"batch_size"`   // files extracted concurrently
	BatchDelay time.Duration `yaml:"batch_delay" mapstructure:"batch_delay"` // pause between batches, e.g. "10ms"
	Ignore     []string      `yaml:"ignore" mapstructure:"ignore"`           // glob patterns to ignore
	CacheSize  int           `yaml:"cache_size" mapstructure:"cache_size"`   // fragment cache in characters, negative disables
}

// DigestConfig selects how skeletons are rendered.
type DigestConfig struct {
	Style string `yaml:"style" mapstructure:"style"` // "labeled" or "compact"
}

// ExtractConfig selects extraction backends.
type ExtractConfig struct {
	PythonBackend    string `yaml:"python_backend" mapstructure:"python_backend"`         // "process" or "treesitter"
	PythonRuntimeDir string `yaml:"python_runtime_dir" mapstructure:"python_runtime_dir"` // empty means the global runtime dir
	Declarations     bool   `yaml:"declarations" mapstructure:"declarations"`             // Rust, Java, C, Ruby and PHP
}

// GraphConfig configures dependency graph layout.
type GraphConfig struct {
	SourceRoot string `yaml:"source_root" mapstructure:"source_root"`
}

// StorageConfig locates the digest database.
type StorageConfig struct {
	DBPath string `yaml:"db_path" mapstructure:"db_path"` // relative paths resolve against the project root
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Compact: CompactConfig{
			BatchSize:  compact.DefaultBatchSize,
			BatchDelay: 0,
			Ignore: []string{
				"vendor/**",
				"**/*.min.js",
				"**/*.bundle.js",
				"**/*.generated.*",
			},
			CacheSize: compact.DefaultCacheSize,
		},
		Digest: DigestConfig{
			Style: string(digest.StyleLabeled),
		},
		Extract: ExtractConfig{
			PythonBackend:    extract.PythonBackendProcess,
			PythonRuntimeDir: "",
			Declarations:     true,
		},
		Graph: GraphConfig{
			SourceRoot: depgraph.DefaultSourceRoot,
		},
		Storage: StorageConfig{
			DBPath: ".digest/digest.db",
		},
	}
}
