// Package photos stores item photos and hands out public URLs for them.
package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned for empty or path-like object keys.
var ErrInvalidKey = errors.New("invalid photo key")

// Storage accepts photo blobs keyed by owner and filename.
type Storage interface {
	// Upload stores the content under key and returns its public URL.
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	// Delete removes the object. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// KeyFromURL recovers the key of a URL returned by Upload.
	KeyFromURL(url string) (string, bool)
}

// NewKey returns a fresh object key for an owner's photo.
func NewKey(ownerID int64) string {
	return fmt.Sprintf("%d-%s.jpg", ownerID, uuid.NewString())
}

func cleanKey(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return key, nil
}

// keyAfter returns the remainder of url after prefix when it is a valid key.
func keyAfter(url, prefix string) (string, bool) {
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key, err := cleanKey(strings.TrimPrefix(url, prefix))
	if err != nil {
		return "", false
	}
	return key, true
}
