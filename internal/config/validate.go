package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/code-digest/internal/digest"
	"github.com/mvp-joe/code-digest/internal/extract"
)

var (
	// ErrInvalidBatchSize indicates a non-positive batch size
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrInvalidBatchDelay indicates a negative pause between batches
	ErrInvalidBatchDelay = errors.New("invalid batch delay")

	// ErrInvalidIgnorePattern indicates a glob that does not compile
	ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")

	// ErrInvalidStyle indicates an unknown digest style
	ErrInvalidStyle = errors.New("invalid digest style")

	// ErrInvalidPythonBackend indicates an unknown Python backend
	ErrInvalidPythonBackend = errors.New("invalid python backend")

	// ErrEmptyDBPath indicates a missing database path
	ErrEmptyDBPath = errors.New("empty database path")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateCompact(&cfg.Compact); err != nil {
		errs = append(errs, err)
	}

	if _, err := digest.ParseStyle(cfg.Digest.Style); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidStyle, err))
	}

	if err := validateExtract(&cfg.Extract); err != nil {
		errs = append(errs, err)
	}

	// Graph source root may be empty: every directory is then labelled

	if strings.TrimSpace(cfg.Storage.DBPath) == "" {
		errs = append(errs, fmt.Errorf("%w: db_path is required", ErrEmptyDBPath))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateCompact(cfg *CompactConfig) error {
	var errs []error

	if cfg.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidBatchSize, cfg.BatchSize))
	}

	if cfg.BatchDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: batch_delay cannot be negative, got %s", ErrInvalidBatchDelay, cfg.BatchDelay))
	}

	for _, pattern := range cfg.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidIgnorePattern, pattern, err))
		}
	}

	// Zero cache size means the default; negative disables the cache

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateExtract(cfg *ExtractConfig) error {
	backend := strings.ToLower(cfg.PythonBackend)
	if backend != extract.PythonBackendProcess && backend != extract.PythonBackendTreeSitter {
		return fmt.Errorf("%w: must be '%s' or '%s', got '%s'",
			ErrInvalidPythonBackend, extract.PythonBackendProcess, extract.PythonBackendTreeSitter, cfg.PythonBackend)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
