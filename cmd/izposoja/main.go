package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/izposoja/internal/api"
	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/booking"
	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/photos"
	"github.com/erazemk/izposoja/internal/report"
	"github.com/erazemk/izposoja/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.LogPath, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		database, password, err := initDatabase(cfg.DBPath, cfg.AdminUser)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.DBPath, cfg.AdminUser, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	// Schema and migrations are idempotent.
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	photoStorage, err := newPhotoStorage(cfg, database)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	sessions := auth.NewBroker(64)
	audit := sessions.Subscribe()
	auditDone := make(chan struct{})
	go func() {
		defer close(auditDone)
		for e := range audit.Events() {
			slog.Info("session event", "kind", e.Kind, "user", e.Session.Username, "role", e.Session.Role, "at", e.At)
		}
	}()

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go purgeRevokedTokens(janitorCtx, database, time.Hour)

	format := report.DefaultFormat()
	format.Symbol = cfg.Currency
	format.PDFSymbol = cfg.PDFCurrency

	router := api.NewRouter(api.Options{
		DB:        database,
		JWTSecret: jwtSecret,
		Bookings:  &booking.Service{DB: database, Events: publisher},
		Photos:    photoStorage,
		Sessions:  sessions,
		Format:    format,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "photos", cfg.Photos, "events", len(cfg.KafkaBrokers) > 0)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	sessions.Close()
	audit.Close()
	<-auditDone

	slog.Info("server stopped, closing database")
	return nil
}

// purgeRevokedTokens drops expired revocations every interval until ctx ends.
func purgeRevokedTokens(ctx context.Context, database *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeExpiredTokens(ctx, database, now)
			if err != nil {
				slog.Warn("failed to purge revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged revoked tokens", "count", n)
			}
		}
	}
}

// newPhotoStorage returns the configured photo backend.
func newPhotoStorage(cfg *config.Config, database *sql.DB) (photos.Storage, error) {
	if cfg.Photos != config.PhotosS3 {
		return photos.NewDB(database, cfg.BaseURL), nil
	}
	s3, err := photos.NewS3(photos.S3Config{
		Endpoint:      cfg.S3.Endpoint,
		UseSSL:        cfg.S3.UseSSL,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		Bucket:        cfg.S3.Bucket,
		PublicBaseURL: cfg.S3.PublicURL,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("photo storage", "backend", "s3", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
	return s3, nil
}

// newPublisher returns a Kafka publisher when brokers are configured.
func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Noop{}, nil
	}
	k, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, err
	}
	slog.Info("booking events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	return k, nil
}

// initDatabase creates a new database, ensures the schema, and creates the admin user.
func initDatabase(path, adminUsername string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(step string, err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("%s: %w", step, err)
	}

	if err := db.Migrate(database); err != nil {
		return fail("ensuring schema", err)
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail("generating password", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail("hashing password", err)
	}

	if _, err := store.CreateUser(context.Background(), database, adminUsername, string(hash), model.RoleAdmin); err != nil {
		return fail("creating admin user", err)
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
