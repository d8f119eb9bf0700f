package storage

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates an in-memory SQLite database with the full schema.
//
// The database includes:
//   - Foreign key constraints enabled (required for cascade deletes)
//   - A single connection, so every query sees the same in-memory database
//   - Automatic cleanup registered with t.Cleanup()
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    store := storage.NewStore(storage.NewTestDB(t))
//	    // ... test code ...
//	}
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db := NewTestDBMinimal(t)
	require.NoError(t, CreateSchema(db))
	return db
}

// NewTestDBMinimal creates an in-memory SQLite database without schema.
// Use it to test schema creation itself.
func NewTestDBMinimal(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	return db
}
