// Package jobs defines background export jobs and the queue interfaces
// that run them.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/ledger"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExportHistory renders a user's history and uploads it to GCS.
	JobTypeExportHistory JobType = "export_history"
)

// DefaultMaxRetries is used when a job does not set MaxRetries.
const DefaultMaxRetries = 3

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ParseJobStatus validates a status name.
func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(s); st {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusRetrying:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown job status %q", domain.ErrInvalidInput, s)
}

// ErrJobNotFound is returned by JobStore.GetJob for unknown ids.
var ErrJobNotFound = fmt.Errorf("job %w", domain.ErrNotFound)

// ErrQueueClosed is returned when publishing to a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

// ExportHistoryJob renders the balance chart and CSV of a user's filtered
// history and uploads both to GCS.
type ExportHistoryJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// UserID is the owner of the exported history.
	UserID string `json:"user_id"`

	// Filter narrows the exported history.
	Filter ledger.Filter `json:"filter"`

	// Bucket and Prefix locate the uploaded artifacts.
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the last attempt failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// Results, set once the job completed.
	ChartURI         string `json:"chart_uri,omitempty"`
	CSVURI           string `json:"csv_uri,omitempty"`
	TransactionCount int    `json:"transaction_count"`
	Skipped          int    `json:"skipped"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ExportHistoryJob) GetID() string { return j.JobID }

// GetType implements the Job interface.
func (j *ExportHistoryJob) GetType() JobType { return JobTypeExportHistory }

// GetStatus implements the Job interface.
func (j *ExportHistoryJob) GetStatus() JobStatus { return j.Status }

// ObjectPath returns the object name of an artifact of the job.
func (j *ExportHistoryJob) ObjectPath(name string) string {
	p := j.UserID + "/" + j.JobID + "/" + name
	if j.Prefix != "" {
		p = j.Prefix + "/" + p
	}
	return p
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishExportHistory publishes a history export job.
	PublishExportHistory(ctx context.Context, job *ExportHistoryJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. Errors are retried unless wrapped with
// backoff.Permanent.
type JobHandler func(ctx context.Context, job *ExportHistoryJob) error

// JobStore defines the interface for storing and retrieving job state.
type JobStore interface {
	SaveJob(ctx context.Context, job *ExportHistoryJob) error
	GetJob(ctx context.Context, jobID string) (*ExportHistoryJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExportHistoryJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID string
	Status JobStatus
	Limit  int
	Offset int
}
