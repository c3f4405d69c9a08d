// Package bigquery implements the storage backend on a BigQuery dataset.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finantrack/internal/store"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DefaultDataset is the dataset holding the ledger tables.
const DefaultDataset = "finance"

const (
	transactionsTable     = "transactions"
	categoriesTable       = "categories"
	associationsTable     = "associations"
	userAssociationsTable = "user_associations"
)

// Repository implements store.Backend. It holds one shared client for the
// lifetime of the process.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

var _ store.Backend = (*Repository)(nil)

// New creates a client for projectID and returns a repository over datasetID.
func New(ctx context.Context, projectID, datasetID string, opts ...option.ClientOption) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery.New: creating client: %w", err)
	}
	return NewWithClient(client, projectID, datasetID), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *bigquery.Client, projectID, datasetID string) *Repository {
	if datasetID == "" {
		datasetID = DefaultDataset
	}
	return &Repository{client: client, projectID: projectID, datasetID: datasetID}
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Client exposes the underlying client, e.g. for migrations.
func (r *Repository) Client() *bigquery.Client { return r.client }

// ref returns the fully qualified, backquoted name of a table or routine.
func (r *Repository) ref(name string) string {
	return qualified(r.projectID, r.datasetID, name)
}

func qualified(projectID, datasetID, name string) string {
	return fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, name)
}

func (r *Repository) query(sql string, params ...bigquery.QueryParameter) *bigquery.Query {
	q := r.client.Query(sql)
	q.Parameters = params
	return q
}

// readAll runs q and loads every row into T.
func readAll[T any](ctx context.Context, op string, q *bigquery.Query) ([]T, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", op, err)
	}

	var rows []T
	for {
		var row T
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iter next: %w", op, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// exec runs a DML statement and returns the number of affected rows.
func exec(ctx context.Context, op string, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: run query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: wait for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("%s: job error: %w", op, err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}
