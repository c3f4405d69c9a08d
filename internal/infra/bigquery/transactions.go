package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/ledger"
	"github.com/google/uuid"
)

// EnrichedRow is a row of the get_transactions_with_users table function.
type EnrichedRow struct {
	ID         string              `bigquery:"id"`
	Type       string              `bigquery:"type"`
	Amount     *big.Rat            `bigquery:"amount"` // NUMERIC
	Note       bigquery.NullString `bigquery:"note"`
	OccurredAt time.Time           `bigquery:"occurred_at"`

	CategoryID    bigquery.NullString `bigquery:"category_id"`
	CategoryName  bigquery.NullString `bigquery:"category_name"`
	CategoryColor bigquery.NullString `bigquery:"category_color"`

	AssociationID   bigquery.NullString `bigquery:"association_id"`
	AssociationName bigquery.NullString `bigquery:"association_name"`

	UserID          string              `bigquery:"user_id"`
	UserDisplayName bigquery.NullString `bigquery:"user_display_name"`
}

// Record converts the row into a ledger record.
func (r EnrichedRow) Record() ledger.EnrichedRecord {
	return ledger.EnrichedRecord{
		ID:              r.ID,
		Type:            r.Type,
		Amount:          numericString(r.Amount),
		Note:            r.Note.StringVal,
		OccurredAt:      r.OccurredAt,
		CategoryID:      r.CategoryID.StringVal,
		CategoryName:    r.CategoryName.StringVal,
		CategoryColor:   r.CategoryColor.StringVal,
		AssociationID:   r.AssociationID.StringVal,
		AssociationName: r.AssociationName.StringVal,
		UserID:          r.UserID,
		UserDisplayName: r.UserDisplayName.StringVal,
	}
}

// JoinedRow is a row of the fallback query with category and association
// columns left joined.
type JoinedRow struct {
	ID         string              `bigquery:"id"`
	Type       string              `bigquery:"type"`
	Amount     *big.Rat            `bigquery:"amount"`
	Note       bigquery.NullString `bigquery:"note"`
	OccurredAt time.Time           `bigquery:"occurred_at"`
	UserID     string              `bigquery:"user_id"`

	CategoryID    bigquery.NullString `bigquery:"category_id"`
	CategoryName  bigquery.NullString `bigquery:"category_name"`
	CategoryColor bigquery.NullString `bigquery:"category_color"`

	AssociationID   bigquery.NullString `bigquery:"association_id"`
	AssociationName bigquery.NullString `bigquery:"association_name"`
}

// Record converts the row into a ledger record.
func (r JoinedRow) Record() ledger.JoinedRecord {
	rec := ledger.JoinedRecord{
		ID:         r.ID,
		Type:       r.Type,
		Amount:     numericString(r.Amount),
		Note:       r.Note.StringVal,
		OccurredAt: r.OccurredAt,
		UserID:     r.UserID,
	}
	if r.CategoryID.Valid {
		rec.Category = &ledger.CategoryRef{
			ID:    r.CategoryID.StringVal,
			Name:  r.CategoryName.StringVal,
			Color: r.CategoryColor.StringVal,
		}
	}
	if r.AssociationID.Valid {
		rec.Association = &ledger.AssociationRef{
			ID:   r.AssociationID.StringVal,
			Name: r.AssociationName.StringVal,
		}
	}
	return rec
}

// TransactionRow is the stored shape of finance.transactions.
type TransactionRow struct {
	ID            string              `bigquery:"id"`          // REQUIRED
	UserID        string              `bigquery:"user_id"`     // REQUIRED
	Type          string              `bigquery:"type"`        // REQUIRED
	Amount        *big.Rat            `bigquery:"amount"`      // REQUIRED NUMERIC
	Note          bigquery.NullString `bigquery:"note"`        // NULLABLE
	CategoryID    bigquery.NullString `bigquery:"category_id"` // NULLABLE
	AssociationID bigquery.NullString `bigquery:"association_id"`
	OccurredAt    time.Time           `bigquery:"occurred_at"` // REQUIRED
	CreatedTS     time.Time           `bigquery:"created_ts"`  // REQUIRED
}

// NewTransactionRow builds the row stored for tx under a fresh id.
func NewTransactionRow(tx domain.NewTransaction, now time.Time) (*TransactionRow, error) {
	amount, ok := new(big.Rat).SetString(tx.Amount.String())
	if !ok {
		return nil, fmt.Errorf("%w: amount %q", domain.ErrInvalidInput, tx.Amount.String())
	}
	occurredAt := tx.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return &TransactionRow{
		ID:            uuid.NewString(),
		UserID:        tx.UserID,
		Type:          string(tx.Type),
		Amount:        amount,
		Note:          nullString(tx.Note),
		CategoryID:    nullString(tx.CategoryID),
		AssociationID: nullString(tx.AssociationID),
		OccurredAt:    occurredAt.UTC(),
		CreatedTS:     now.UTC(),
	}, nil
}

// ListEnriched reads the get_transactions_with_users table function.
func (r *Repository) ListEnriched(ctx context.Context, userID string) ([]ledger.EnrichedRecord, error) {
	q := r.query(fmt.Sprintf(`
		SELECT
			id,
			type,
			amount,
			note,
			occurred_at,
			category_id,
			category_name,
			category_color,
			association_id,
			association_name,
			user_id,
			user_display_name
		FROM %s(@user_id)
		ORDER BY occurred_at DESC
	`, r.ref("get_transactions_with_users")),
		bigquery.QueryParameter{Name: "user_id", Value: userID},
	)

	rows, err := readAll[EnrichedRow](ctx, "ListEnriched", q)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.EnrichedRecord, len(rows))
	for i, row := range rows {
		out[i] = row.Record()
	}
	return out, nil
}

// ListJoined reads the user's own and association transactions with a plain
// join.
func (r *Repository) ListJoined(ctx context.Context, userID string) ([]ledger.JoinedRecord, error) {
	q := r.query(fmt.Sprintf(`
		SELECT
			t.id,
			t.type,
			t.amount,
			t.note,
			t.occurred_at,
			t.user_id,
			c.id AS category_id,
			c.name AS category_name,
			c.color AS category_color,
			a.id AS association_id,
			a.name AS association_name
		FROM %s t
		LEFT JOIN %s c ON c.id = t.category_id
		LEFT JOIN %s a ON a.id = t.association_id
		WHERE t.user_id = @user_id
		   OR t.association_id IN (
			SELECT association_id FROM %s WHERE user_id = @user_id
		   )
		ORDER BY t.occurred_at DESC
	`, r.ref(transactionsTable), r.ref(categoriesTable), r.ref(associationsTable), r.ref(userAssociationsTable)),
		bigquery.QueryParameter{Name: "user_id", Value: userID},
	)

	rows, err := readAll[JoinedRow](ctx, "ListJoined", q)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.JoinedRecord, len(rows))
	for i, row := range rows {
		out[i] = row.Record()
	}
	return out, nil
}

// InsertTransaction streams one row into finance.transactions.
func (r *Repository) InsertTransaction(ctx context.Context, tx domain.NewTransaction) (string, error) {
	row, err := NewTransactionRow(tx, time.Now())
	if err != nil {
		return "", fmt.Errorf("InsertTransaction: %w", err)
	}

	inserter := r.client.DatasetInProject(r.projectID, r.datasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, []*TransactionRow{row}); err != nil {
		return "", fmt.Errorf("InsertTransaction: inserting row: %w", err)
	}
	return row.ID, nil
}

func numericString(r *big.Rat) string {
	if r == nil {
		return ""
	}
	return bigquery.NumericString(r)
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
