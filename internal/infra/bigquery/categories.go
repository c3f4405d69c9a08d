package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/google/uuid"
)

// CategoryRow is the stored shape of finance.categories.
type CategoryRow struct {
	ID        string                 `bigquery:"id"`         // REQUIRED
	UserID    string                 `bigquery:"user_id"`    // REQUIRED
	Name      string                 `bigquery:"name"`       // REQUIRED
	Type      string                 `bigquery:"type"`       // REQUIRED
	Color     string                 `bigquery:"color"`      // REQUIRED
	CreatedTS bigquery.NullTimestamp `bigquery:"created_ts"` // NULLABLE
}

// Category converts the row into a domain category.
func (r CategoryRow) Category() domain.Category {
	c := domain.Category{
		ID:     r.ID,
		UserID: r.UserID,
		Name:   r.Name,
		Type:   domain.TransactionType(r.Type),
		Color:  r.Color,
	}
	if r.CreatedTS.Valid {
		c.CreatedAt = r.CreatedTS.Timestamp
	}
	return c
}

// ListCategories returns the user's categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context, userID string, typ *domain.TransactionType) ([]domain.Category, error) {
	sql := fmt.Sprintf(`
		SELECT id, user_id, name, type, color, created_ts
		FROM %s
		WHERE user_id = @user_id`, r.ref(categoriesTable))
	params := []bigquery.QueryParameter{{Name: "user_id", Value: userID}}
	if typ != nil {
		sql += `
		  AND type = @type`
		params = append(params, bigquery.QueryParameter{Name: "type", Value: string(*typ)})
	}
	sql += `
		ORDER BY name`

	rows, err := readAll[CategoryRow](ctx, "ListCategories", r.query(sql, params...))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, len(rows))
	for i, row := range rows {
		out[i] = row.Category()
	}
	return out, nil
}

// CreateCategory inserts c with DML rather than streaming so the row can be
// updated or deleted right away.
func (r *Repository) CreateCategory(ctx context.Context, c domain.Category) (string, error) {
	id := uuid.NewString()
	q := r.query(fmt.Sprintf(`
		INSERT %s (id, user_id, name, type, color, created_ts)
		VALUES (@id, @user_id, @name, @type, @color, @created_ts)
	`, r.ref(categoriesTable)),
		bigquery.QueryParameter{Name: "id", Value: id},
		bigquery.QueryParameter{Name: "user_id", Value: c.UserID},
		bigquery.QueryParameter{Name: "name", Value: c.Name},
		bigquery.QueryParameter{Name: "type", Value: string(c.Type)},
		bigquery.QueryParameter{Name: "color", Value: c.Color},
		bigquery.QueryParameter{Name: "created_ts", Value: time.Now().UTC()},
	)
	if _, err := exec(ctx, "CreateCategory", q); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateCategory renames and recolours one of the user's categories.
func (r *Repository) UpdateCategory(ctx context.Context, userID, id, name, color string) error {
	q := r.query(fmt.Sprintf(`
		UPDATE %s
		SET name = @name, color = @color
		WHERE id = @id AND user_id = @user_id
	`, r.ref(categoriesTable)),
		bigquery.QueryParameter{Name: "name", Value: name},
		bigquery.QueryParameter{Name: "color", Value: color},
		bigquery.QueryParameter{Name: "id", Value: id},
		bigquery.QueryParameter{Name: "user_id", Value: userID},
	)
	n, err := exec(ctx, "UpdateCategory", q)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("UpdateCategory: %w", domain.ErrNotFound)
	}
	return nil
}

// DeleteCategory removes one of the user's categories.
func (r *Repository) DeleteCategory(ctx context.Context, userID, id string) error {
	q := r.query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = @id AND user_id = @user_id
	`, r.ref(categoriesTable)),
		bigquery.QueryParameter{Name: "id", Value: id},
		bigquery.QueryParameter{Name: "user_id", Value: userID},
	)
	n, err := exec(ctx, "DeleteCategory", q)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("DeleteCategory: %w", domain.ErrNotFound)
	}
	return nil
}
