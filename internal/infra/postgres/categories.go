package postgres

import (
	"context"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ListCategories returns the user's categories ordered by name, optionally
// restricted to one type.
func (r *Repository) ListCategories(ctx context.Context, userID string, typ *domain.TransactionType) ([]domain.Category, error) {
	query := `
		SELECT id::text, user_id::text, name, type, color, created_at
		FROM categories
		WHERE user_id = $1`
	args := []any{userID}
	if typ != nil {
		query += ` AND type = $2`
		args = append(args, string(*typ))
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("ListCategories", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		var t string
		err := row.Scan(&c.ID, &c.UserID, &c.Name, &t, &c.Color, &c.CreatedAt)
		c.Type = domain.TransactionType(t)
		return c, err
	})
	if err != nil {
		return nil, mapError("ListCategories", err)
	}
	return out, nil
}

// CreateCategory inserts c and returns its id.
func (r *Repository) CreateCategory(ctx context.Context, c domain.Category) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO categories (user_id, name, type, color)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text`,
		c.UserID, c.Name, string(c.Type), c.Color,
	).Scan(&id)
	if err != nil {
		return "", mapError("CreateCategory", err)
	}
	return id, nil
}

// UpdateCategory renames and recolours one of the user's categories.
func (r *Repository) UpdateCategory(ctx context.Context, userID, id, name, color string) error {
	err := r.WithTransaction(ctx, func(tx pgx.Tx) error {
		var owner string
		err := tx.QueryRow(ctx,
			`SELECT user_id::text FROM categories WHERE id = $1 FOR UPDATE`, id,
		).Scan(&owner)
		if err != nil {
			return err
		}
		if owner != userID {
			return pgx.ErrNoRows
		}
		_, err = tx.Exec(ctx,
			`UPDATE categories SET name = $1, color = $2 WHERE id = $3`,
			name, color, id,
		)
		return err
	})
	return mapError("UpdateCategory", err)
}

// DeleteCategory removes one of the user's categories.
func (r *Repository) DeleteCategory(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return mapError("DeleteCategory", err)
	}
	if tag.RowsAffected() == 0 {
		return mapError("DeleteCategory", pgx.ErrNoRows)
	}
	return nil
}
