package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PutPhoto stores an encoded photo under key, replacing any previous blob.
func PutPhoto(ctx context.Context, db *sql.DB, key string, data []byte, contentType string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO photos (key, data, content_type) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, content_type = excluded.content_type`,
		key, data, contentType,
	)
	if err != nil {
		return fmt.Errorf("storing photo: %w", err)
	}
	return nil
}

// GetPhoto returns a photo's bytes and content type. Returns nil data if not found.
func GetPhoto(ctx context.Context, db *sql.DB, key string) ([]byte, string, error) {
	var data []byte
	var contentType string
	err := db.QueryRowContext(ctx,
		`SELECT data, content_type FROM photos WHERE key = ?`, key,
	).Scan(&data, &contentType)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting photo: %w", err)
	}
	return data, contentType, nil
}

// DeletePhoto removes a stored photo. Missing keys are not an error.
func DeletePhoto(ctx context.Context, db *sql.DB, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM photos WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting photo: %w", err)
	}
	return nil
}
