package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/code-digest/internal/digest"
)

// DigestRecord is one stored compaction run.
type DigestRecord struct {
	ID            int64     `json:"id"`
	Root          string    `json:"root"`
	RunID         string    `json:"run_id"`
	Style         string    `json:"style"`
	Output        string    `json:"output"`
	OriginalSize  int       `json:"original_size"`
	FileCount     int       `json:"file_count"`
	SkippedCount  int       `json:"skipped_count"`
	TokenEstimate int       `json:"token_estimate"`
	CreatedAt     time.Time `json:"created_at"`
}

// FileRecord is the stored token count of one fragment.
type FileRecord struct {
	Path   string `json:"path"`
	Tokens int    `json:"tokens"`
}

var digestColumns = []string{
	"digest_id", "root", "run_id", "style", "output",
	"original_size", "file_count", "skipped_count", "token_estimate", "created_at",
}

// SaveDigest stores a run and the token count of each of its fragments.
// CreatedAt defaults to now. Returns the new digest ID.
func (s *Store) SaveDigest(ctx context.Context, rec *DigestRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	res, err := sq.Insert("digests").
		Columns(digestColumns[1:]...).
		Values(
			rec.Root,
			rec.RunID,
			rec.Style,
			rec.Output,
			rec.OriginalSize,
			rec.FileCount,
			rec.SkippedCount,
			rec.TokenEstimate,
			rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to insert digest %s: %w", rec.RunID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get digest id: %w", err)
	}

	fragments := digest.Parse(rec.Output)
	if len(fragments) > 0 {
		// Build the query once with Squirrel, then get SQL for preparation
		sqlStr, _, err := sq.Insert("digest_files").
			Columns("digest_id", "file_path", "tokens").
			Values(0, "", 0).
			Options("OR REPLACE").
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("failed to build SQL: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, sqlStr)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, f := range fragments {
			if _, err := stmt.ExecContext(ctx, id, f.Path, digest.EstimateTokens(f.Text())); err != nil {
				return 0, fmt.Errorf("failed to insert file %s: %w", f.Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit digest: %w", err)
	}

	rec.ID = id
	return id, nil
}

// LatestDigest returns the most recent digest stored for root.
func (s *Store) LatestDigest(ctx context.Context, root string) (*DigestRecord, error) {
	row := sq.Select(digestColumns...).
		From("digests").
		Where(sq.Eq{"root": root}).
		OrderBy("digest_id DESC").
		Limit(1).
		RunWith(s.db).
		QueryRowContext(ctx)

	rec, err := scanDigest(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w for %s", ErrNotFound, root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest digest: %w", err)
	}
	return rec, nil
}

// GetDigest returns a digest by ID.
func (s *Store) GetDigest(ctx context.Context, id int64) (*DigestRecord, error) {
	row := sq.Select(digestColumns...).
		From("digests").
		Where(sq.Eq{"digest_id": id}).
		RunWith(s.db).
		QueryRowContext(ctx)

	rec, err := scanDigest(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query digest %d: %w", id, err)
	}
	return rec, nil
}

// ListDigests returns the digests stored for root, newest first, without
// their output. A limit of zero or less returns all of them.
func (s *Store) ListDigests(ctx context.Context, root string, limit int) ([]DigestRecord, error) {
	query := sq.Select(digestColumns...).
		From("digests").
		Where(sq.Eq{"root": root}).
		OrderBy("digest_id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list digests: %w", err)
	}
	defer rows.Close()

	var records []DigestRecord
	for rows.Next() {
		rec, err := scanDigest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan digest: %w", err)
		}
		rec.Output = ""
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// DigestFiles returns the fragments of a stored digest in path order.
func (s *Store) DigestFiles(ctx context.Context, id int64) ([]FileRecord, error) {
	rows, err := sq.Select("file_path", "tokens").
		From("digest_files").
		Where(sq.Eq{"digest_id": id}).
		OrderBy("file_path").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query digest files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.Path, &f.Tokens); err != nil {
			return nil, fmt.Errorf("failed to scan digest file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// PruneDigests deletes all but the newest keep digests of root and returns
// how many were removed.
func (s *Store) PruneDigests(ctx context.Context, root string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	keepQuery := sq.Select("digest_id").
		From("digests").
		Where(sq.Eq{"root": root}).
		OrderBy("digest_id DESC").
		Limit(uint64(keep))
	keepSQL, keepArgs, err := keepQuery.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL: %w", err)
	}

	res, err := sq.Delete("digests").
		Where(sq.Eq{"root": root}).
		Where("digest_id NOT IN ("+keepSQL+")", keepArgs...).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to prune digests: %w", err)
	}
	return res.RowsAffected()
}

// scanDigest scans one row selected with digestColumns.
func scanDigest(row sq.RowScanner) (*DigestRecord, error) {
	var (
		rec       DigestRecord
		createdAt string
	)
	err := row.Scan(
		&rec.ID, &rec.Root, &rec.RunID, &rec.Style, &rec.Output,
		&rec.OriginalSize, &rec.FileCount, &rec.SkippedCount, &rec.TokenEstimate, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return &rec, nil
}
