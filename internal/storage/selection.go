package storage

import (
	"context"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
)

// DisabledPaths returns the disabled section paths of root, sorted.
func (s *Store) DisabledPaths(ctx context.Context, root string) ([]string, error) {
	rows, err := sq.Select("file_path").
		From("disabled_paths").
		Where(sq.Eq{"root": root}).
		OrderBy("file_path").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query disabled paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan disabled path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// SetDisabledPaths replaces the disabled section paths of root.
func (s *Store) SetDisabledPaths(ctx context.Context, root string, paths []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	if _, err := sq.Delete("disabled_paths").
		Where(sq.Eq{"root": root}).
		RunWith(tx).
		ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to clear disabled paths: %w", err)
	}

	if len(paths) > 0 {
		sorted := append([]string(nil), paths...)
		sort.Strings(sorted)

		insert := sq.Insert("disabled_paths").
			Columns("root", "file_path").
			Options("OR IGNORE")
		for _, p := range sorted {
			insert = insert.Values(root, p)
		}
		if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to insert disabled paths: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit disabled paths: %w", err)
	}
	return nil
}
