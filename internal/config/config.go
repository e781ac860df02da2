// Package config reads server settings from flags, the environment and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Log formats.
const (
	LogText = "text"
	LogJSON = "json"
	LogTint = "tint"
)

// Photo backends.
const (
	PhotosDB = "db"
	PhotosS3 = "s3"
)

// Config holds every server setting.
type Config struct {
	DBPath    string
	Addr      string
	AdminUser string
	LogPath   string
	LogFormat string

	Currency    string
	PDFCurrency string
	BaseURL     string

	Photos string
	S3     S3

	KafkaBrokers []string
	KafkaTopic   string
}

// S3 holds the object storage settings used by the s3 photo backend.
type S3 struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// EnvFile is loaded before flags are parsed when it exists. Variables already
// set in the environment win.
const EnvFile = ".env"

// Load parses args (without the program name). Every flag defaults to its
// IZPOSOJA_* environment variable. Returns flag.ErrHelp for -h.
func Load(args []string, usage io.Writer) (*Config, error) {
	envFile := os.Getenv("IZPOSOJA_ENV_FILE")
	if envFile == "" {
		envFile = EnvFile
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	fs := flag.NewFlagSet("izposoja", flag.ContinueOnError)
	fs.SetOutput(usage)

	stringVar(fs, &cfg.DBPath, "db", "d", "DB", "izposoja.sqlite3")
	stringVar(fs, &cfg.Addr, "addr", "a", "ADDR", ":8080")
	stringVar(fs, &cfg.AdminUser, "user", "u", "ADMIN_USER", "Admin")
	stringVar(fs, &cfg.LogPath, "log", "l", "LOG", "")
	stringVar(fs, &cfg.LogFormat, "log-format", "f", "LOG_FORMAT", LogText)
	stringVar(fs, &cfg.Currency, "currency", "c", "CURRENCY", "₹")
	stringVar(fs, &cfg.PDFCurrency, "pdf-currency", "", "PDF_CURRENCY", "Rs.")
	stringVar(fs, &cfg.BaseURL, "base-url", "b", "BASE_URL", "http://localhost:8080")
	stringVar(fs, &cfg.Photos, "photos", "p", "PHOTOS", PhotosDB)
	stringVar(fs, &cfg.S3.Endpoint, "s3-endpoint", "", "S3_ENDPOINT", "")
	stringVar(fs, &cfg.S3.AccessKey, "s3-access-key", "", "S3_ACCESS_KEY", "")
	stringVar(fs, &cfg.S3.SecretKey, "s3-secret-key", "", "S3_SECRET_KEY", "")
	stringVar(fs, &cfg.S3.Bucket, "s3-bucket", "", "S3_BUCKET", "item-photos")
	stringVar(fs, &cfg.S3.PublicURL, "s3-public-url", "", "S3_PUBLIC_URL", "")
	stringVar(fs, &cfg.KafkaTopic, "kafka-topic", "", "KAFKA_TOPIC", "izposoja.bookings")

	useSSL, err := envBool("S3_USE_SSL")
	if err != nil {
		return nil, err
	}
	fs.BoolVar(&cfg.S3.UseSSL, "s3-ssl", useSSL, "")

	var brokers string
	stringVar(fs, &brokers, "kafka-brokers", "k", "KAFKA_BROKERS", "")

	fs.Usage = func() { fmt.Fprint(usage, usageText) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and backend prerequisites.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case LogText, LogJSON, LogTint:
	default:
		return fmt.Errorf("unknown log format %q (text, json or tint)", c.LogFormat)
	}
	switch c.Photos {
	case PhotosDB:
	case PhotosS3:
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return errors.New("s3 photo backend needs -s3-endpoint and -s3-bucket")
		}
	default:
		return fmt.Errorf("unknown photo backend %q (db or s3)", c.Photos)
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	if c.Currency == "" {
		return errors.New("currency symbol is required")
	}
	return nil
}

// stringVar registers a long flag and, if short is set, its one-letter alias,
// both defaulting to IZPOSOJA_<env> when set.
func stringVar(fs *flag.FlagSet, p *string, long, short, env, def string) {
	if v, ok := os.LookupEnv("IZPOSOJA_" + env); ok {
		def = v
	}
	fs.StringVar(p, long, def, "")
	if short != "" {
		fs.StringVar(p, short, def, "")
	}
}

func envBool(env string) (bool, error) {
	v, ok := os.LookupEnv("IZPOSOJA_" + env)
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("IZPOSOJA_%s: %w", env, err)
	}
	return b, nil
}

const usageText = `Usage: izposoja [flags]

Flags (each defaults to the IZPOSOJA_* variable in brackets):
  -d, -db <path>            SQLite database path [DB] (default: izposoja.sqlite3)
  -a, -addr <host:port>     listen address [ADDR] (default: :8080)
  -u, -user <name>          admin username on first run [ADMIN_USER] (default: Admin)
  -l, -log <path>           log file path [LOG] (default: stdout/stderr only)
  -f, -log-format <fmt>     text, json or tint [LOG_FORMAT] (default: text)
  -c, -currency <symbol>    currency symbol for amounts [CURRENCY] (default: ₹)
      -pdf-currency <text>  PDF fallback when the symbol has no glyph [PDF_CURRENCY] (default: Rs.)
  -b, -base-url <url>       public base URL of this server [BASE_URL]
  -p, -photos <backend>     db or s3 [PHOTOS] (default: db)
      -s3-endpoint <url>    S3 endpoint [S3_ENDPOINT]
      -s3-access-key <key>  S3 access key [S3_ACCESS_KEY]
      -s3-secret-key <key>  S3 secret key [S3_SECRET_KEY]
      -s3-bucket <name>     S3 bucket [S3_BUCKET] (default: item-photos)
      -s3-public-url <url>  public URL prefix of the bucket host [S3_PUBLIC_URL]
      -s3-ssl               use TLS for S3 [S3_USE_SSL]
  -k, -kafka-brokers <list> comma-separated brokers for booking events [KAFKA_BROKERS]
      -kafka-topic <name>   booking events topic [KAFKA_TOPIC] (default: izposoja.bookings)
  -h, -help                 show this help and exit

A .env file in the working directory (or IZPOSOJA_ENV_FILE) is loaded first.
`
