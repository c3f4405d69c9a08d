package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/dvloznov/finantrack/internal/chart"
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/ledger"
	"github.com/dvloznov/finantrack/internal/locale"
	"github.com/dvloznov/finantrack/internal/service"
	"github.com/rs/zerolog"
)

// Artifact names inside a job's folder.
const (
	ChartObject = "balance.svg"
	CSVObject   = "history.csv"
)

// HistorySource loads histories and lays out their charts.
type HistorySource interface {
	History(ctx context.Context, userID string, f ledger.Filter) (service.HistoryView, error)
	ChartOf(view service.HistoryView) chart.Chart
	Locale() locale.Locale
}

// Uploader stores an artifact and returns its URI.
type Uploader interface {
	Upload(ctx context.Context, bucket, object string, data []byte, contentType string) (string, error)
}

// Exporter is the JobHandler of ExportHistoryJob.
type Exporter struct {
	src HistorySource
	up  Uploader
	log zerolog.Logger
}

// NewExporter creates an exporter.
func NewExporter(src HistorySource, up Uploader, log zerolog.Logger) *Exporter {
	return &Exporter{src: src, up: up, log: log}
}

// Handle renders and uploads the job's artifacts, recording their URIs on job.
func (e *Exporter) Handle(ctx context.Context, job *ExportHistoryJob) error {
	log := e.log.With().
		Str("job_id", job.JobID).
		Str("user_id", job.UserID).
		Str("filter", job.Filter.Values().Encode()).
		Logger()

	view, err := e.src.History(ctx, job.UserID, job.Filter)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return backoff.Permanent(err)
		}
		return fmt.Errorf("Handle: load history: %w", err)
	}

	svg, err := chart.RenderSVG(e.src.ChartOf(view))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("Handle: render chart: %w", err))
	}
	var csv bytes.Buffer
	if err := ledger.WriteCSV(&csv, view.Transactions, e.src.Locale()); err != nil {
		return backoff.Permanent(fmt.Errorf("Handle: write csv: %w", err))
	}

	chartURI, err := e.up.Upload(ctx, job.Bucket, job.ObjectPath(ChartObject), svg, "image/svg+xml")
	if err != nil {
		return fmt.Errorf("Handle: upload chart: %w", err)
	}
	csvURI, err := e.up.Upload(ctx, job.Bucket, job.ObjectPath(CSVObject), csv.Bytes(), "text/csv; charset=utf-8")
	if err != nil {
		return fmt.Errorf("Handle: upload csv: %w", err)
	}

	job.ChartURI = chartURI
	job.CSVURI = csvURI
	job.TransactionCount = len(view.Transactions)
	job.Skipped = len(view.Rejected)

	log.Info().
		Str("chart_uri", chartURI).
		Str("csv_uri", csvURI).
		Int("transactions", job.TransactionCount).
		Msg("Exported history")
	return nil
}
