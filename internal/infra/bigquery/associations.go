package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finantrack/internal/domain"
)

// AssociationRow is the public part of finance.associations.
type AssociationRow struct {
	ID   string `bigquery:"id"`
	Name string `bigquery:"name"`
}

// MembershipRow joins user_associations with the association name.
type MembershipRow struct {
	AssociationID   string              `bigquery:"association_id"`
	AssociationName string              `bigquery:"association_name"`
	DisplayName     bigquery.NullString `bigquery:"display_name"`
}

type procedureResult struct {
	ID bigquery.NullString `bigquery:"id"`
}

// ListAssociations returns every association by name.
func (r *Repository) ListAssociations(ctx context.Context) ([]domain.Association, error) {
	q := r.query(fmt.Sprintf(`SELECT id, name FROM %s ORDER BY name`, r.ref(associationsTable)))
	rows, err := readAll[AssociationRow](ctx, "ListAssociations", q)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Association, len(rows))
	for i, row := range rows {
		out[i] = domain.Association{ID: row.ID, Name: row.Name}
	}
	return out, nil
}

// ListMemberships returns the associations userID belongs to.
func (r *Repository) ListMemberships(ctx context.Context, userID string) (domain.Memberships, error) {
	q := r.query(fmt.Sprintf(`
		SELECT
			ua.association_id,
			a.name AS association_name,
			ua.display_name
		FROM %s ua
		JOIN %s a ON a.id = ua.association_id
		WHERE ua.user_id = @user_id
		ORDER BY a.name
	`, r.ref(userAssociationsTable), r.ref(associationsTable)),
		bigquery.QueryParameter{Name: "user_id", Value: userID},
	)
	rows, err := readAll[MembershipRow](ctx, "ListMemberships", q)
	if err != nil {
		return nil, err
	}
	out := make(domain.Memberships, len(rows))
	for i, row := range rows {
		out[i] = domain.Membership{
			Association: domain.Association{ID: row.AssociationID, Name: row.AssociationName},
			DisplayName: row.DisplayName.StringVal,
		}
	}
	return out, nil
}

// CreateAssociation calls the create_association procedure, whose last
// statement selects the new id.
func (r *Repository) CreateAssociation(ctx context.Context, name, password, createdBy string) (string, error) {
	q := r.query(fmt.Sprintf(`CALL %s(@name, @password, @created_by)`, r.ref("create_association")),
		bigquery.QueryParameter{Name: "name", Value: name},
		bigquery.QueryParameter{Name: "password", Value: password},
		bigquery.QueryParameter{Name: "created_by", Value: createdBy},
	)
	return callForID(ctx, "CreateAssociation", q, domain.ErrInvalidInput)
}

// JoinAssociation calls the join_association procedure. It selects a NULL id
// when the name and password do not match.
func (r *Repository) JoinAssociation(ctx context.Context, name, password, displayName, userID string) (string, error) {
	q := r.query(fmt.Sprintf(`CALL %s(@name, @password, @display_name, @user_id)`, r.ref("join_association")),
		bigquery.QueryParameter{Name: "name", Value: name},
		bigquery.QueryParameter{Name: "password", Value: password},
		bigquery.QueryParameter{Name: "display_name", Value: displayName},
		bigquery.QueryParameter{Name: "user_id", Value: userID},
	)
	return callForID(ctx, "JoinAssociation", q, domain.ErrForbidden)
}

// callForID runs a procedure and returns the id of its final SELECT, or
// onNull when the procedure selected nothing.
func callForID(ctx context.Context, op string, q *bigquery.Query, onNull error) (string, error) {
	rows, err := readAll[procedureResult](ctx, op, q)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 || !rows[0].ID.Valid {
		return "", fmt.Errorf("%s: %w", op, onNull)
	}
	return rows[0].ID.StringVal, nil
}
