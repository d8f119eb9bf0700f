package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the version written by CreateSchema.
const SchemaVersion = "1"

// CreateSchema creates all tables and indexes for the digest store.
// Uses a transaction for atomicity and is safe to call on an existing
// database.
//
// Schema includes:
//   - digests: one row per stored compaction run
//   - digest_files: per-fragment token counts of each run
//   - disabled_paths: the section selection per project root
//   - store_metadata: schema version bookkeeping
//
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"digests", createDigestsTable},
		{"digest_files", createDigestFilesTable},
		{"disabled_paths", createDisabledPathsTable},
		{"store_metadata", createStoreMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO store_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap store_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion retrieves the schema version from store_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='store_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check store_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil // New database
	}

	var version string
	err = db.QueryRow("SELECT value FROM store_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in store_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createDigestsTable = `
CREATE TABLE IF NOT EXISTS digests (
    digest_id INTEGER PRIMARY KEY AUTOINCREMENT,
    root TEXT NOT NULL,                          -- Absolute project root
    run_id TEXT NOT NULL UNIQUE,                 -- Compaction run UUID
    style TEXT NOT NULL,                         -- labeled or compact
    output TEXT NOT NULL,                        -- Full digest text
    original_size INTEGER NOT NULL DEFAULT 0,    -- Characters of contributing files
    file_count INTEGER NOT NULL DEFAULT 0,
    skipped_count INTEGER NOT NULL DEFAULT 0,
    token_estimate INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL                     -- ISO 8601
)
`

const createDigestFilesTable = `
CREATE TABLE IF NOT EXISTS digest_files (
    digest_id INTEGER NOT NULL,
    file_path TEXT NOT NULL,                     -- Fragment path, relative to root
    tokens INTEGER NOT NULL DEFAULT 0,           -- Estimated tokens of the fragment
    PRIMARY KEY (digest_id, file_path),
    FOREIGN KEY (digest_id) REFERENCES digests(digest_id) ON DELETE CASCADE
)
`

const createDisabledPathsTable = `
CREATE TABLE IF NOT EXISTS disabled_paths (
    root TEXT NOT NULL,
    file_path TEXT NOT NULL,
    PRIMARY KEY (root, file_path)
)
`

const createStoreMetadataTable = `
CREATE TABLE IF NOT EXISTS store_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_digests_root_created ON digests(root, created_at)`,
}
