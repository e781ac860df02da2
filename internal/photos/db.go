package photos

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/erazemk/izposoja/internal/store"
)

// DBPath is the API route prefix that serves photos stored in the database.
const DBPath = "/api/photos/"

// DB keeps photos in the SQLite photos table.
type DB struct {
	db      *sql.DB
	baseURL string
}

// NewDB returns a database-backed store whose URLs start with baseURL.
func NewDB(db *sql.DB, baseURL string) *DB {
	return &DB{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

func (d *DB) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading photo: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := store.PutPhoto(ctx, d.db, key, data, contentType); err != nil {
		return "", err
	}
	return d.baseURL + DBPath + key, nil
}

func (d *DB) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	return store.DeletePhoto(ctx, d.db, key)
}

func (d *DB) KeyFromURL(url string) (string, bool) {
	return keyAfter(url, d.baseURL+DBPath)
}

var _ Storage = (*DB)(nil)
