// Package storetest provides a function-field mock of store.Backend.
package storetest

import (
	"context"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/ledger"
	"github.com/dvloznov/finantrack/internal/store"
)

// MockBackend implements store.Backend. Nil funcs return zero values.
type MockBackend struct {
	ListEnrichedFunc      func(ctx context.Context, userID string) ([]ledger.EnrichedRecord, error)
	ListJoinedFunc        func(ctx context.Context, userID string) ([]ledger.JoinedRecord, error)
	InsertTransactionFunc func(ctx context.Context, tx domain.NewTransaction) (string, error)

	ListCategoriesFunc func(ctx context.Context, userID string, typ *domain.TransactionType) ([]domain.Category, error)
	CreateCategoryFunc func(ctx context.Context, c domain.Category) (string, error)
	UpdateCategoryFunc func(ctx context.Context, userID, id, name, color string) error
	DeleteCategoryFunc func(ctx context.Context, userID, id string) error

	ListAssociationsFunc  func(ctx context.Context) ([]domain.Association, error)
	ListMembershipsFunc   func(ctx context.Context, userID string) (domain.Memberships, error)
	CreateAssociationFunc func(ctx context.Context, name, password, createdBy string) (string, error)
	JoinAssociationFunc   func(ctx context.Context, name, password, displayName, userID string) (string, error)

	Closed bool
}

var _ store.Backend = (*MockBackend)(nil)

func (m *MockBackend) ListEnriched(ctx context.Context, userID string) ([]ledger.EnrichedRecord, error) {
	if m.ListEnrichedFunc != nil {
		return m.ListEnrichedFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockBackend) ListJoined(ctx context.Context, userID string) ([]ledger.JoinedRecord, error) {
	if m.ListJoinedFunc != nil {
		return m.ListJoinedFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockBackend) InsertTransaction(ctx context.Context, tx domain.NewTransaction) (string, error) {
	if m.InsertTransactionFunc != nil {
		return m.InsertTransactionFunc(ctx, tx)
	}
	return "mock-transaction-id", nil
}

func (m *MockBackend) ListCategories(ctx context.Context, userID string, typ *domain.TransactionType) ([]domain.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx, userID, typ)
	}
	return nil, nil
}

func (m *MockBackend) CreateCategory(ctx context.Context, c domain.Category) (string, error) {
	if m.CreateCategoryFunc != nil {
		return m.CreateCategoryFunc(ctx, c)
	}
	return "mock-category-id", nil
}

func (m *MockBackend) UpdateCategory(ctx context.Context, userID, id, name, color string) error {
	if m.UpdateCategoryFunc != nil {
		return m.UpdateCategoryFunc(ctx, userID, id, name, color)
	}
	return nil
}

func (m *MockBackend) DeleteCategory(ctx context.Context, userID, id string) error {
	if m.DeleteCategoryFunc != nil {
		return m.DeleteCategoryFunc(ctx, userID, id)
	}
	return nil
}

func (m *MockBackend) ListAssociations(ctx context.Context) ([]domain.Association, error) {
	if m.ListAssociationsFunc != nil {
		return m.ListAssociationsFunc(ctx)
	}
	return nil, nil
}

func (m *MockBackend) ListMemberships(ctx context.Context, userID string) (domain.Memberships, error) {
	if m.ListMembershipsFunc != nil {
		return m.ListMembershipsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockBackend) CreateAssociation(ctx context.Context, name, password, createdBy string) (string, error) {
	if m.CreateAssociationFunc != nil {
		return m.CreateAssociationFunc(ctx, name, password, createdBy)
	}
	return "mock-association-id", nil
}

func (m *MockBackend) JoinAssociation(ctx context.Context, name, password, displayName, userID string) (string, error) {
	if m.JoinAssociationFunc != nil {
		return m.JoinAssociationFunc(ctx, name, password, displayName, userID)
	}
	return "mock-association-id", nil
}

func (m *MockBackend) Close() error {
	m.Closed = true
	return nil
}

// Enriched returns a backend whose procedure listing returns recs.
func Enriched(recs ...ledger.EnrichedRecord) *MockBackend {
	return &MockBackend{
		ListEnrichedFunc: func(context.Context, string) ([]ledger.EnrichedRecord, error) {
			return recs, nil
		},
	}
}
