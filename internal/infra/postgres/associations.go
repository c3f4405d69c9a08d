package postgres

import (
	"context"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ListAssociations returns every association by name. Passwords never leave
// the database.
func (r *Repository) ListAssociations(ctx context.Context) ([]domain.Association, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, name FROM associations ORDER BY name`)
	if err != nil {
		return nil, mapError("ListAssociations", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Association, error) {
		var a domain.Association
		err := row.Scan(&a.ID, &a.Name)
		return a, err
	})
	if err != nil {
		return nil, mapError("ListAssociations", err)
	}
	return out, nil
}

// ListMemberships returns the associations userID belongs to.
func (r *Repository) ListMemberships(ctx context.Context, userID string) (domain.Memberships, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id::text, a.name, ua.display_name
		FROM user_associations ua
		JOIN associations a ON a.id = ua.association_id
		WHERE ua.user_id = $1
		ORDER BY a.name`, userID)
	if err != nil {
		return nil, mapError("ListMemberships", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Membership, error) {
		var m domain.Membership
		var display *string
		err := row.Scan(&m.Association.ID, &m.Association.Name, &display)
		m.DisplayName = deref(display)
		return m, err
	})
	if err != nil {
		return nil, mapError("ListMemberships", err)
	}
	return out, nil
}

// CreateAssociation calls create_association, which hashes the password.
func (r *Repository) CreateAssociation(ctx context.Context, name, password, createdBy string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx,
		`SELECT create_association($1, $2, $3)::text`, name, password, createdBy,
	).Scan(&id)
	if err != nil {
		return "", mapError("CreateAssociation", err)
	}
	return id, nil
}

// JoinAssociation calls join_association. A wrong password is raised by the
// function and reported as domain.ErrForbidden.
func (r *Repository) JoinAssociation(ctx context.Context, name, password, displayName, userID string) (string, error) {
	var id *string
	err := r.pool.QueryRow(ctx,
		`SELECT join_association($1, $2, $3, $4)::text`, name, password, displayName, userID,
	).Scan(&id)
	if err != nil {
		return "", mapError("JoinAssociation", err)
	}
	if id == nil {
		return "", mapError("JoinAssociation", pgx.ErrNoRows)
	}
	return *id, nil
}
