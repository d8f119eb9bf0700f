// Package config provides configuration loading for the code digest tools.
//
// It supports two distinct configuration scopes:
//
// 1. Global Configuration (~/.digest/config.yml)
//   - Machine-wide settings shared by every project
//   - Embedded Python runtime location
//   - Loaded via LoadGlobalConfig()
//
// 2. Project Configuration (.digest/config.yml)
//   - Batch pipeline tuning and ignore globs
//   - Digest style, extraction backends, graph layout
//   - Digest database location
//   - Loaded via Load()
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (DIGEST_*), including a project .env file
//  2. Project config (.digest/config.yml)
//  3. Global config (~/.digest/config.yml), for settings the project leaves empty
//  4. Built-in defaults
//
// Environment Variable Convention:
//   - Prefix: DIGEST_
//   - Nested fields: Use underscores (DIGEST_COMPACT_BATCH_SIZE)
//   - Automatic mapping via Viper's SetEnvKeyReplacer
//
// Example usage:
//
//	cfg, err := config.LoadConfigFromDir(root)
//	if err != nil {
//	    return err
//	}
//	global, err := config.LoadGlobalConfig()
//	if err != nil {
//	    return err
//	}
//	registry := extract.NewRegistry(cfg.RegistryOptions(global)...)
package config

// GlobalConfig holds machine-wide configuration.
// Loaded from ~/.digest/config.yml (not project .digest/config.yml).
type GlobalConfig struct {
	Runtime RuntimeConfig `yaml:"runtime" mapstructure:"runtime"`
}

// RuntimeConfig holds embedded runtime settings.
type RuntimeConfig struct {
	PythonDir string `yaml:"python_dir" mapstructure:"python_dir"` // Where the embedded interpreter is extracted
}
