package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

func TestLevelRouter(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := slog.New(&levelRouter{
		stdout: newHandler(config.LogText, &out, false),
		stderr: newHandler(config.LogJSON, &errOut, false),
	})

	logger.Info("booking created", "booking_id", 1)
	logger.Warn("publish failed")
	logger.Error("query failed")
	logger.Debug("ignored")

	if !strings.Contains(out.String(), "booking created") || !strings.Contains(out.String(), "publish failed") {
		t.Errorf("expected info and warn on stdout, got %q", out.String())
	}
	if strings.Contains(out.String(), "query failed") {
		t.Error("expected errors to stay off stdout")
	}
	if !strings.Contains(errOut.String(), `"msg":"query failed"`) {
		t.Errorf("expected JSON error on stderr, got %q", errOut.String())
	}
	if strings.Contains(out.String()+errOut.String(), "ignored") {
		t.Error("expected debug to be dropped")
	}
}

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := generatePassword(16)
	if len(a) != 16 || a == b {
		t.Errorf("expected distinct 16 character passwords, got %q and %q", a, b)
	}
}

func TestInitDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "izposoja.sqlite3")
	database, password, err := initDatabase(path, "Admin")
	if err != nil {
		t.Fatalf("initDatabase: %v", err)
	}
	defer database.Close()

	user, err := store.GetUserByUsername(context.Background(), database, "Admin")
	if err != nil || user == nil {
		t.Fatalf("expected admin user, got %v (%v)", user, err)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("expected admin role, got %q", user.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		t.Error("expected printed password to match the stored hash")
	}
}

func TestNewPublisherWithoutBrokers(t *testing.T) {
	p, err := newPublisher(&config.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(context.Background(), events.Event{}); err != nil {
		t.Errorf("expected no-op publisher, got %v", err)
	}
}
