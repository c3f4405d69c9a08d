// Package config loads process settings from .env files, the environment and
// command-line flags.
package config

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/finantrack/internal/infra/bigquery"
	"github.com/dvloznov/finantrack/internal/infra/postgres"
	"github.com/dvloznov/finantrack/internal/locale"
	"github.com/dvloznov/finantrack/internal/store"
	"github.com/dvloznov/finantrack/internal/suggest"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Supported backends.
const (
	BackendPostgres = "postgres"
	BackendBigQuery = "bigquery"
)

// EnvFiles are loaded in order; variables already set are never overridden,
// so the first file to define a variable wins.
var EnvFiles = []string{".env.local", ".env"}

// Config holds every setting of the API, the CLI and the migrate tool.
type Config struct {
	Port    string
	Backend string

	DatabaseURL string

	GCPProject   string
	BQDataset    string
	GCSBucket    string
	ExportPrefix string

	GeminiAPIKey string
	GeminiModel  string

	Locale   string
	Currency string
	Timezone string
	LogLevel string

	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins string
}

// LoadEnvFiles loads the given dotenv files, ignoring missing ones.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("LoadEnvFiles: %s: %w", f, err)
		}
	}
	return nil
}

// RegisterFlags binds c to fs. Defaults come from the environment, so env
// files must be loaded first.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Port, "port", env("PORT", "8080"), "HTTP listen port")
	fs.StringVar(&c.Backend, "backend", env("BACKEND", BackendPostgres), "storage backend: postgres or bigquery")
	fs.StringVar(&c.DatabaseURL, "database-url", env("DATABASE_URL", ""), "PostgreSQL connection string")
	fs.StringVar(&c.GCPProject, "project", env("GCP_PROJECT", ""), "GCP project id")
	fs.StringVar(&c.BQDataset, "dataset", env("BQ_DATASET", bigquery.DefaultDataset), "BigQuery dataset")
	fs.StringVar(&c.GCSBucket, "bucket", env("GCS_BUCKET", ""), "GCS bucket for history exports")
	fs.StringVar(&c.ExportPrefix, "export-prefix", env("EXPORT_PREFIX", "exports"), "object prefix for history exports")
	fs.StringVar(&c.GeminiAPIKey, "gemini-api-key", env("GEMINI_API_KEY", ""), "Gemini API key; empty disables category suggestions")
	fs.StringVar(&c.GeminiModel, "gemini-model", env("GEMINI_MODEL", suggest.DefaultModelName), "Gemini model name")
	fs.StringVar(&c.Locale, "locale", env("LOCALE", locale.Default.Tag), "display language (es, en)")
	fs.StringVar(&c.Currency, "currency", env("CURRENCY", "USD"), "ISO 4217 currency code for labels")
	fs.StringVar(&c.Timezone, "timezone", env("TIMEZONE", "UTC"), "IANA time zone for dates")
	fs.StringVar(&c.LogLevel, "log-level", env("LOG_LEVEL", "info"), "log level")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", envFloat("RATE_LIMIT_RPS", 10), "requests per second per client")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", envInt("RATE_LIMIT_BURST", 20), "rate limiter burst")
	fs.StringVar(&c.AllowedOrigins, "allowed-origins", env("ALLOWED_ORIGINS", "*"), "comma-separated CORS origins")
}

// Load reads the env files, then parses args over the environment defaults.
func Load(args []string) (*Config, error) {
	if err := LoadEnvFiles(EnvFiles...); err != nil {
		return nil, err
	}
	c := &Config{}
	fs := flag.NewFlagSet("finantrack", flag.ContinueOnError)
	c.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the settings required by the selected backend.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendBigQuery:
		if c.GCPProject == "" {
			errs = append(errs, errors.New("GCP_PROJECT is required for the bigquery backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q", c.Timezone))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("Validate: %w", err)
	}
	return nil
}

// Location returns the configured time zone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Lang returns the configured locale.
func (c *Config) Lang() locale.Locale {
	return locale.Lookup(c.Locale)
}

// Origins splits AllowedOrigins.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// OpenBackend constructs the configured backend. The caller closes it.
func OpenBackend(ctx context.Context, c *Config, log zerolog.Logger) (store.Backend, error) {
	switch c.Backend {
	case BackendPostgres:
		repo, err := postgres.New(ctx, c.DatabaseURL, postgres.DefaultOptions, log)
		if err != nil {
			return nil, fmt.Errorf("OpenBackend: %w", err)
		}
		return repo, nil
	case BackendBigQuery:
		repo, err := bigquery.New(ctx, c.GCPProject, c.BQDataset)
		if err != nil {
			return nil, fmt.Errorf("OpenBackend: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("OpenBackend: unknown backend %q", c.Backend)
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
