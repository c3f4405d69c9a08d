// Command migrate applies the versioned SQL migrations embedded in the
// binary to the BigQuery dataset or the PostgreSQL database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/finantrack/internal/config"
	"github.com/dvloznov/finantrack/internal/infra/bigquery"
	"github.com/dvloznov/finantrack/internal/logger"
	"github.com/rs/zerolog"
)

// applier runs migrations against one backend.
type applier interface {
	ensure(ctx context.Context) error
	applied(ctx context.Context) ([]AppliedMigration, error)
	apply(ctx context.Context, m Migration, appliedBy string) error
	Close() error
}

type options struct {
	backend     string
	projectID   string
	datasetID   string
	databaseURL string
	appliedBy   string
	dryRun      bool
	allowDrift  bool
}

func main() {
	if err := config.LoadEnvFiles(config.EnvFiles...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var opts options
	flag.StringVar(&opts.backend, "backend", envOr("BACKEND", config.BackendBigQuery), "bigquery or postgres")
	flag.StringVar(&opts.projectID, "project", os.Getenv("GCP_PROJECT"), "GCP project ID (or set GCP_PROJECT)")
	flag.StringVar(&opts.datasetID, "dataset", envOr("BQ_DATASET", bigquery.DefaultDataset), "BigQuery dataset ID")
	flag.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (or set DATABASE_URL)")
	flag.StringVar(&opts.appliedBy, "applied-by", "migrate-cli", "Name of the tool applying migrations")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "list pending migrations without applying them")
	flag.BoolVar(&opts.allowDrift, "allow-drift", false, "continue when an applied migration file has changed")
	flag.Parse()

	log := logger.New()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := run(ctx, opts, log); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func run(ctx context.Context, opts options, log zerolog.Logger) error {
	var (
		a    applier
		dir  string
		vars map[string]string
		err  error
	)
	switch opts.backend {
	case config.BackendBigQuery:
		if opts.projectID == "" {
			return fmt.Errorf("-project is required for the bigquery backend")
		}
		dir = "migrations/bigquery"
		vars = map[string]string{"PROJECT_ID": opts.projectID, "DATASET_ID": opts.datasetID}
		a, err = newBigQueryApplier(ctx, opts.projectID, opts.datasetID)
	case config.BackendPostgres:
		if opts.databaseURL == "" {
			return fmt.Errorf("-database-url is required for the postgres backend")
		}
		dir = "migrations/postgres"
		a, err = newPostgresApplier(ctx, opts.databaseURL)
	default:
		return fmt.Errorf("unknown backend %q", opts.backend)
	}
	if err != nil {
		return err
	}
	defer a.Close()

	log = log.With().Str("backend", opts.backend).Logger()

	migrations, skipped, err := readMigrations(embedded, dir, vars)
	if err != nil {
		return err
	}
	for _, name := range skipped {
		log.Warn().Str("file", name).Msg("Skipping file with invalid format")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	if err := a.ensure(ctx); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}
	applied, err := a.applied(ctx)
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}
	log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	pending, drift := plan(migrations, applied)
	for _, d := range drift {
		log.Warn().
			Str("migration", d.Migration.Label()).
			Str("applied_checksum", d.Applied.Checksum).
			Str("file_checksum", d.Migration.Checksum).
			Msg("Applied migration has changed")
	}
	if len(drift) > 0 && !opts.allowDrift {
		return fmt.Errorf("%d applied migration(s) changed; rerun with -allow-drift to continue", len(drift))
	}

	if opts.dryRun {
		for _, m := range pending {
			fmt.Printf("[PENDING] %s\n", m.Label())
		}
		log.Info().Int("pending", len(pending)).Msg("Dry run, nothing applied")
		return nil
	}

	for _, m := range pending {
		log.Info().Str("migration", m.Label()).Msg("Applying migration")
		if err := a.apply(ctx, m, opts.appliedBy); err != nil {
			return fmt.Errorf("apply %s: %w", m.Label(), err)
		}
	}

	if len(pending) == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	} else {
		log.Info().Int("applied", len(pending)).Msg("Successfully applied migrations")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
