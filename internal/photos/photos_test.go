package photos

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/store"
)

func TestNewKey(t *testing.T) {
	a, b := NewKey(7), NewKey(7)
	if !strings.HasPrefix(a, "7-") || !strings.HasSuffix(a, ".jpg") {
		t.Errorf("unexpected key %q", a)
	}
	if a == b {
		t.Error("expected unique keys")
	}
}

func TestDBUploadAndDelete(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	storage := NewDB(database, "http://localhost:8080/")

	url, err := storage.Upload(ctx, "7-abc.jpg", strings.NewReader("jpeg bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "http://localhost:8080/api/photos/7-abc.jpg" {
		t.Errorf("unexpected url %q", url)
	}

	key, ok := storage.KeyFromURL(url)
	if !ok || key != "7-abc.jpg" {
		t.Errorf("KeyFromURL: got %q, %v", key, ok)
	}

	data, contentType, _ := store.GetPhoto(ctx, database, "7-abc.jpg")
	if string(data) != "jpeg bytes" || contentType != "image/jpeg" {
		t.Errorf("unexpected stored photo %q %q", data, contentType)
	}

	if err := storage.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if data, _, _ := store.GetPhoto(ctx, database, key); data != nil {
		t.Error("expected photo to be deleted")
	}
}

func TestInvalidKeys(t *testing.T) {
	storage := NewDB(db.NewTestDB(t), "http://localhost")
	for _, key := range []string{"", "  ", "a/b.jpg", "../x.jpg"} {
		if _, err := storage.Upload(context.Background(), key, strings.NewReader("x"), "image/jpeg"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Upload(%q): expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestKeyFromForeignURL(t *testing.T) {
	storage := NewDB(db.NewTestDB(t), "http://localhost")
	for _, u := range []string{
		"https://cdn.example.com/api/photos/x.jpg",
		"http://localhost/api/photos/",
		"http://localhost/api/photos/a/b.jpg",
	} {
		if key, ok := storage.KeyFromURL(u); ok {
			t.Errorf("KeyFromURL(%q) = %q, expected no match", u, key)
		}
	}
}

func TestS3Config(t *testing.T) {
	if _, err := NewS3(S3Config{Bucket: "photos"}); err == nil {
		t.Error("expected error without endpoint")
	}
	if _, err := NewS3(S3Config{Endpoint: "localhost:9000"}); err == nil {
		t.Error("expected error without bucket")
	}

	s, err := NewS3(S3Config{Endpoint: "http://localhost:9000", Bucket: "photos", AccessKey: "k", SecretKey: "s"})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	want := "http://localhost:9000/photos/1-x.jpg"
	if got := s.objectURL("1-x.jpg"); got != want {
		t.Errorf("objectURL = %q, want %q", got, want)
	}
	if key, ok := s.KeyFromURL(want); !ok || key != "1-x.jpg" {
		t.Errorf("KeyFromURL = %q, %v", key, ok)
	}
}
