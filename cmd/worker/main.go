// Command worker exports the history of one or more users to GCS in a single
// run, using the same queue and export handler as the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/finantrack/internal/config"
	"github.com/dvloznov/finantrack/internal/gcsuploader"
	"github.com/dvloznov/finantrack/internal/jobs"
	"github.com/dvloznov/finantrack/internal/jobs/inmemory"
	"github.com/dvloznov/finantrack/internal/ledger"
	"github.com/dvloznov/finantrack/internal/logger"
	"github.com/dvloznov/finantrack/internal/service"
	"github.com/rs/zerolog"
)

func main() {
	if err := config.LoadEnvFiles(config.EnvFiles...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var (
		cfg     config.Config
		users   = flag.String("users", "", "comma-separated user ids to export (required)")
		typ     = flag.String("type", "", "only income or expense")
		from    = flag.String("from", "", "first day, YYYY-MM-DD")
		to      = flag.String("to", "", "last day, YYYY-MM-DD")
		workers = flag.Int("workers", inmemory.DefaultWorkers, "concurrent exports")
		timeout = flag.Duration("timeout", 10*time.Minute, "overall deadline")
	)
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	userIDs := splitUsers(*users)
	if len(userIDs) == 0 {
		log.Fatal().Msg("Error: -users is required")
	}
	if cfg.GCSBucket == "" {
		log.Fatal().Msg("Error: -bucket (or GCS_BUCKET) is required")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	filter, err := ledger.ParseFilter(url.Values{"type": {*typ}, "from": {*from}, "to": {*to}})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid filter")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := config.OpenBackend(ctx, &cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open backend")
	}
	defer backend.Close()

	uploader, err := gcsuploader.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer uploader.Close()

	svc := service.New(backend, nil, service.Options{
		Locale:   cfg.Lang(),
		Location: cfg.Location(),
		Currency: cfg.Currency,
	}, log)

	results, err := exportAll(ctx, jobs.NewExporter(svc, uploader, log).Handle, userIDs, filter, cfg, *workers, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Export run failed")
	}

	failed := 0
	for _, job := range results {
		if job.Status != jobs.JobStatusCompleted {
			failed++
			fmt.Printf("%s\t%s\t%s\n", job.UserID, job.Status, job.Error)
			continue
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", job.UserID, job.Status, job.ChartURI, job.CSVURI)
	}
	if failed > 0 {
		log.Error().Int("failed", failed).Int("total", len(results)).Msg("Some exports failed")
		os.Exit(1)
	}
	log.Info().Int("total", len(results)).Msg("All exports completed")
}

const pollInterval = 500 * time.Millisecond

func splitUsers(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// exportAll publishes one job per user, runs them on an in-memory queue and
// returns the final state of every job in input order.
func exportAll(ctx context.Context, handler jobs.JobHandler, userIDs []string, filter ledger.Filter, cfg config.Config, workers int, log zerolog.Logger) ([]*jobs.ExportHistoryJob, error) {
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(len(userIDs), store, inmemory.WithWorkers(workers), inmemory.WithLogger(log))

	if err := queue.Start(ctx, handler); err != nil {
		return nil, fmt.Errorf("start queue: %w", err)
	}

	ids := make([]string, len(userIDs))
	for i, u := range userIDs {
		job := &jobs.ExportHistoryJob{UserID: u, Filter: filter, Bucket: cfg.GCSBucket, Prefix: cfg.ExportPrefix}
		if err := queue.PublishExportHistory(ctx, job); err != nil {
			return nil, fmt.Errorf("publish export of %s: %w", u, err)
		}
		ids[i] = job.JobID
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for !allDone(ctx, store, ids) {
		select {
		case <-ctx.Done():
			queue.Stop(context.Background())
			return collect(store, ids), ctx.Err()
		case <-ticker.C:
		}
	}

	if err := queue.Stop(ctx); err != nil {
		return nil, fmt.Errorf("stop queue: %w", err)
	}
	return collect(store, ids), nil
}

func allDone(ctx context.Context, store jobs.JobStore, ids []string) bool {
	for _, id := range ids {
		job, err := store.GetJob(ctx, id)
		if err != nil {
			return false
		}
		if job.Status != jobs.JobStatusCompleted && job.Status != jobs.JobStatusFailed {
			return false
		}
	}
	return true
}

func collect(store jobs.JobStore, ids []string) []*jobs.ExportHistoryJob {
	out := make([]*jobs.ExportHistoryJob, 0, len(ids))
	for _, id := range ids {
		if job, err := store.GetJob(context.Background(), id); err == nil {
			out = append(out, job)
		}
	}
	return out
}
