package postgres

import (
	"context"
	"time"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/ledger"
	"github.com/jackc/pgx/v5"
)

const enrichedQuery = `
	SELECT
		id::text,
		type,
		amount::text,
		note,
		occurred_at,
		category_id::text,
		category_name,
		category_color,
		association_id::text,
		association_name,
		user_id::text,
		user_display_name
	FROM get_transactions_with_users($1)
	ORDER BY occurred_at DESC`

const joinedQuery = `
	SELECT
		t.id::text,
		t.type,
		t.amount::text,
		t.note,
		t.occurred_at,
		t.user_id::text,
		c.id::text,
		c.name,
		c.color,
		a.id::text,
		a.name
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id
	LEFT JOIN associations a ON a.id = t.association_id
	WHERE t.user_id = $1
	   OR t.association_id IN (
		SELECT association_id FROM user_associations WHERE user_id = $1
	   )
	ORDER BY t.occurred_at DESC`

const insertTransaction = `
	INSERT INTO transactions (user_id, type, amount, note, category_id, association_id, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id::text`

// ListEnriched calls get_transactions_with_users for userID.
func (r *Repository) ListEnriched(ctx context.Context, userID string) ([]ledger.EnrichedRecord, error) {
	rows, err := r.pool.Query(ctx, enrichedQuery, userID)
	if err != nil {
		return nil, mapError("ListEnriched", err)
	}
	out, err := pgx.CollectRows(rows, scanEnriched)
	if err != nil {
		return nil, mapError("ListEnriched", err)
	}
	return out, nil
}

func scanEnriched(row pgx.CollectableRow) (ledger.EnrichedRecord, error) {
	var (
		rec                                     ledger.EnrichedRecord
		note, catID, catName, catColor          *string
		assocID, assocName, displayName, amount *string
	)
	err := row.Scan(
		&rec.ID, &rec.Type, &amount, &note, &rec.OccurredAt,
		&catID, &catName, &catColor,
		&assocID, &assocName,
		&rec.UserID, &displayName,
	)
	if err != nil {
		return rec, err
	}
	rec.Amount = deref(amount)
	rec.Note = deref(note)
	rec.CategoryID, rec.CategoryName, rec.CategoryColor = deref(catID), deref(catName), deref(catColor)
	rec.AssociationID, rec.AssociationName = deref(assocID), deref(assocName)
	rec.UserDisplayName = deref(displayName)
	return rec, nil
}

// ListJoined reads the user's own and association transactions with their
// category and association joined.
func (r *Repository) ListJoined(ctx context.Context, userID string) ([]ledger.JoinedRecord, error) {
	rows, err := r.pool.Query(ctx, joinedQuery, userID)
	if err != nil {
		return nil, mapError("ListJoined", err)
	}
	out, err := pgx.CollectRows(rows, scanJoined)
	if err != nil {
		return nil, mapError("ListJoined", err)
	}
	return out, nil
}

func scanJoined(row pgx.CollectableRow) (ledger.JoinedRecord, error) {
	var (
		rec                      ledger.JoinedRecord
		amount, note             *string
		catID, catName, catColor *string
		assocID, assocName       *string
	)
	err := row.Scan(
		&rec.ID, &rec.Type, &amount, &note, &rec.OccurredAt, &rec.UserID,
		&catID, &catName, &catColor,
		&assocID, &assocName,
	)
	if err != nil {
		return rec, err
	}
	rec.Amount = deref(amount)
	rec.Note = deref(note)
	if catID != nil {
		rec.Category = &ledger.CategoryRef{ID: *catID, Name: deref(catName), Color: deref(catColor)}
	}
	if assocID != nil {
		rec.Association = &ledger.AssociationRef{ID: *assocID, Name: deref(assocName)}
	}
	return rec, nil
}

// InsertTransaction stores tx and returns its generated id.
func (r *Repository) InsertTransaction(ctx context.Context, tx domain.NewTransaction) (string, error) {
	occurredAt := tx.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	var id string
	err := r.pool.QueryRow(ctx, insertTransaction,
		tx.UserID,
		string(tx.Type),
		tx.Amount.String(),
		nullable(tx.Note),
		nullable(tx.CategoryID),
		nullable(tx.AssociationID),
		occurredAt,
	).Scan(&id)
	if err != nil {
		return "", mapError("InsertTransaction", err)
	}
	return id, nil
}
