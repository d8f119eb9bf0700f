package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (DIGEST_*), including those from <root>/.env
// 2. Config file (.digest/config.yml or .digest/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	// Variables already set in the environment take precedence over .env
	if err := godotenv.Load(filepath.Join(l.rootDir, ".env")); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".digest")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	// Enable environment variable overrides
	v.SetEnvPrefix("DIGEST")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., DIGEST_COMPACT_BATCH_SIZE)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Compact configuration
	v.BindEnv("compact.batch_size")
	v.BindEnv("compact.batch_delay")
	v.BindEnv("compact.cache_size")

	// Digest configuration
	v.BindEnv("digest.style")

	// Extract configuration
	v.BindEnv("extract.python_backend")
	v.BindEnv("extract.python_runtime_dir")
	v.BindEnv("extract.declarations")

	// Graph and storage configuration
	v.BindEnv("graph.source_root")
	v.BindEnv("storage.db_path")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("compact.batch_size", defaults.Compact.BatchSize)
	v.SetDefault("compact.batch_delay", defaults.Compact.BatchDelay)
	v.SetDefault("compact.ignore", defaults.Compact.Ignore)
	v.SetDefault("compact.cache_size", defaults.Compact.CacheSize)

	v.SetDefault("digest.style", defaults.Digest.Style)

	v.SetDefault("extract.python_backend", defaults.Extract.PythonBackend)
	v.SetDefault("extract.python_runtime_dir", defaults.Extract.PythonRuntimeDir)
	v.SetDefault("extract.declarations", defaults.Extract.Declarations)

	v.SetDefault("graph.source_root", defaults.Graph.SourceRoot)
	v.SetDefault("storage.db_path", defaults.Storage.DBPath)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
