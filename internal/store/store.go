// Package store defines the persistence interfaces shared by the postgres and
// bigquery backends.
package store

import (
	"context"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/ledger"
)

// TransactionRepository lists and records transactions.
type TransactionRepository interface {
	// ListEnriched calls the get_transactions_with_users procedure.
	ListEnriched(ctx context.Context, userID string) ([]ledger.EnrichedRecord, error)
	// ListJoined runs the plain joined query used when the procedure fails.
	ListJoined(ctx context.Context, userID string) ([]ledger.JoinedRecord, error)
	// InsertTransaction stores tx and returns the new id.
	InsertTransaction(ctx context.Context, tx domain.NewTransaction) (string, error)
}

// CategoryRepository manages a user's categories. Every call is scoped to
// the owner; a category of another user is reported as domain.ErrNotFound.
type CategoryRepository interface {
	// ListCategories returns the user's categories, optionally of one type,
	// ordered by name.
	ListCategories(ctx context.Context, userID string, typ *domain.TransactionType) ([]domain.Category, error)
	CreateCategory(ctx context.Context, c domain.Category) (string, error)
	// UpdateCategory changes name and colour. The type is immutable.
	UpdateCategory(ctx context.Context, userID, id, name, color string) error
	DeleteCategory(ctx context.Context, userID, id string) error
}

// AssociationRepository manages shared ledgers and their members.
type AssociationRepository interface {
	ListAssociations(ctx context.Context) ([]domain.Association, error)
	ListMemberships(ctx context.Context, userID string) (domain.Memberships, error)
	// CreateAssociation creates an association protected by password and
	// returns its id.
	CreateAssociation(ctx context.Context, name, password, createdBy string) (string, error)
	// JoinAssociation adds userID to the association called name when the
	// password matches, and returns the association id.
	JoinAssociation(ctx context.Context, name, password, displayName, userID string) (string, error)
}

// Backend is a complete storage backend.
type Backend interface {
	TransactionRepository
	CategoryRepository
	AssociationRepository
	Close() error
}
