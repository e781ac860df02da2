package db

import (
	"database/sql"
	"testing"
)

// NewTestDB returns a migrated in-memory database that is closed when the
// test ends.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	database, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := Migrate(database); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return database
}

// MustExec runs a statement against a test database and fails the test on error.
func MustExec(t testing.TB, database *sql.DB, query string, args ...any) sql.Result {
	t.Helper()

	res, err := database.Exec(query, args...)
	if err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
	return res
}
