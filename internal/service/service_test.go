package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/ledger"
	"github.com/dvloznov/finantrack/internal/store/storetest"
	"github.com/dvloznov/finantrack/internal/suggest"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0  = time.Date(2024, time.November, 5, 10, 0, 0, 0, time.UTC)
	now = time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
)

func newService(repo *storetest.MockBackend) *Service {
	return New(repo, nil, Options{Now: func() time.Time { return now }}, zerolog.Nop())
}

func history() *storetest.MockBackend {
	return storetest.Enriched(
		ledger.EnrichedRecord{ID: "1", Type: "income", Amount: "100", OccurredAt: t0, UserID: "u1", Note: "Sueldo"},
		ledger.EnrichedRecord{ID: "2", Type: "expense", Amount: "30", OccurredAt: t0.Add(24 * time.Hour), UserID: "u1", CategoryName: "Comida"},
		ledger.EnrichedRecord{ID: "3", Type: "income", Amount: "10", OccurredAt: t0.Add(48 * time.Hour), UserID: "u2"},
		ledger.EnrichedRecord{ID: "bad", Type: "expense", Amount: "abc", OccurredAt: t0, UserID: "u1"},
	)
}

func TestHistory(t *testing.T) {
	svc := newService(history())

	view, err := svc.History(context.Background(), "u1", ledger.Filter{})
	require.NoError(t, err)

	ids := make([]string, len(view.Transactions))
	for i, tx := range view.Transactions {
		ids[i] = tx.ID
	}
	assert.Equal(t, []string{"3", "2", "1"}, ids)
	assert.Equal(t, "Tú", view.Transactions[2].UserName)
	assert.Equal(t, "Usuario", view.Transactions[0].UserName)
	assert.True(t, view.Summary.Balance.Equal(decimal.NewFromInt(80)))
	assert.Len(t, view.Rejected, 1)
	assert.Equal(t, ledger.SourceRPC, view.Source)
}

func TestHistory_Filtered(t *testing.T) {
	svc := newService(history())

	view, err := svc.History(context.Background(), "u1", ledger.Filter{Type: domain.Expense})
	require.NoError(t, err)
	require.Len(t, view.Transactions, 1)
	assert.Equal(t, "2", view.Transactions[0].ID)
	assert.Equal(t, 1, view.Summary.Count)
}

func TestHistory_Errors(t *testing.T) {
	svc := newService(&storetest.MockBackend{
		ListEnrichedFunc: func(context.Context, string) ([]ledger.EnrichedRecord, error) {
			return nil, errors.New("function does not exist")
		},
		ListJoinedFunc: func(context.Context, string) ([]ledger.JoinedRecord, error) {
			return nil, errors.New("permission denied")
		},
	})

	_, err := svc.History(context.Background(), "u1", ledger.Filter{})
	assert.ErrorContains(t, err, "permission denied")

	_, err = svc.History(context.Background(), "", ledger.Filter{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChart(t *testing.T) {
	svc := newService(history())

	c, err := svc.Chart(context.Background(), "u1", ledger.Filter{})
	require.NoError(t, err)
	assert.Len(t, c.Points, 3)
	assert.Equal(t, 1, c.Skipped)
	assert.True(t, c.MaxBalance.Equal(decimal.NewFromInt(100)))

	c, err = svc.Chart(context.Background(), "u1", ledger.Filter{Query: "nothing matches"})
	require.NoError(t, err)
	assert.True(t, c.Empty)
}

func TestExportCSV(t *testing.T) {
	svc := newService(history())

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), "u1", ledger.Filter{Type: domain.Income}, &buf))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"fecha","tipo","monto","categoria","nota"`, lines[0])
	assert.Equal(t, `"2024-11-07T10:00:00.000Z","income","10.00","",""`, lines[1])
}

func TestRecordTransaction(t *testing.T) {
	member := domain.Memberships{{Association: domain.Association{ID: "a1", Name: "Casa"}, DisplayName: "Ana"}}
	twoMember := domain.Memberships{
		{Association: domain.Association{ID: "a1", Name: "Casa"}, DisplayName: "Ana"},
		{Association: domain.Association{ID: "a3", Name: "Oficina"}, DisplayName: "Ana"},
	}
	food := []domain.Category{{ID: "food", Name: "Comida", Type: domain.Expense}}

	tests := []struct {
		name        string
		in          domain.NewTransaction
		memberships domain.Memberships
		wantErr     error
		check       func(t *testing.T, got domain.NewTransaction)
	}{
		{
			name: "defaults",
			in:   domain.NewTransaction{UserID: "u1", Type: domain.Expense, Amount: decimal.NewFromInt(12), Note: "  taxi  "},
			check: func(t *testing.T, got domain.NewTransaction) {
				assert.Equal(t, "taxi", got.Note)
				assert.Equal(t, now, got.OccurredAt)
			},
		},
		{
			name:        "association member",
			in:          domain.NewTransaction{UserID: "u1", Type: domain.Income, Amount: decimal.NewFromInt(1), AssociationID: "a1", OccurredAt: t0},
			memberships: member,
			check: func(t *testing.T, got domain.NewTransaction) {
				assert.Equal(t, "a1", got.AssociationID)
				assert.Equal(t, t0, got.OccurredAt)
			},
		},
		{
			name: "with category",
			in:   domain.NewTransaction{UserID: "u1", Type: domain.Expense, Amount: decimal.NewFromInt(5), CategoryID: "food"},
			check: func(t *testing.T, got domain.NewTransaction) {
				assert.Equal(t, "food", got.CategoryID)
			},
		},
		{
			name:    "unknown category",
			in:      domain.NewTransaction{UserID: "u1", Type: domain.Expense, Amount: decimal.NewFromInt(5), CategoryID: "rent"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "zero amount",
			in:      domain.NewTransaction{UserID: "u1", Type: domain.Expense, Amount: decimal.Zero},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "negative amount",
			in:      domain.NewTransaction{UserID: "u1", Type: domain.Expense, Amount: decimal.NewFromInt(-3)},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "bad type",
			in:      domain.NewTransaction{UserID: "u1", Type: "transfer", Amount: decimal.NewFromInt(3)},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:        "single association selected",
			in:          domain.NewTransaction{UserID: "u1", Type: domain.Expense, Amount: decimal.NewFromInt(5)},
			memberships: member,
			check: func(t *testing.T, got domain.NewTransaction) {
				assert.Equal(t, "a1", got.AssociationID)
			},
		},
		{
			name:        "association missing",
			in:          domain.NewTransaction{UserID: "u1", Type: domain.Expense, Amount: decimal.NewFromInt(3)},
			memberships: twoMember,
			wantErr:     domain.ErrAssociationRequired,
		},
		{
			name:        "foreign association",
			in:          domain.NewTransaction{UserID: "u1", Type: domain.Expense, Amount: decimal.NewFromInt(3), AssociationID: "a2"},
			memberships: member,
			wantErr:     domain.ErrAssociationRequired,
		},
		{
			name:    "association without membership",
			in:      domain.NewTransaction{UserID: "u1", Type: domain.Expense, Amount: decimal.NewFromInt(3), AssociationID: "a2"},
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "no user",
			in:      domain.NewTransaction{Type: domain.Expense, Amount: decimal.NewFromInt(3)},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inserted *domain.NewTransaction
			repo := &storetest.MockBackend{
				ListMembershipsFunc: func(context.Context, string) (domain.Memberships, error) {
					return tt.memberships, nil
				},
				ListCategoriesFunc: func(_ context.Context, _ string, typ *domain.TransactionType) ([]domain.Category, error) {
					require.NotNil(t, typ)
					return food, nil
				},
				InsertTransactionFunc: func(_ context.Context, tx domain.NewTransaction) (string, error) {
					inserted = &tx
					return "new-id", nil
				},
			}

			id, err := newService(repo).RecordTransaction(context.Background(), tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, inserted)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "new-id", id)
			require.NotNil(t, inserted)
			tt.check(t, *inserted)
		})
	}
}

func TestCreateCategory(t *testing.T) {
	var stored domain.Category
	svc := newService(&storetest.MockBackend{
		CreateCategoryFunc: func(_ context.Context, c domain.Category) (string, error) {
			stored = c
			return "cat-1", nil
		},
	})

	got, err := svc.CreateCategory(context.Background(), "u1", domain.Category{Name: "  Comida ", Type: domain.Expense})
	require.NoError(t, err)
	assert.Equal(t, "cat-1", got.ID)
	assert.Equal(t, "Comida", stored.Name)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, domain.DefaultColor, stored.Color)

	_, err = svc.CreateCategory(context.Background(), "u1", domain.Category{Name: "x", Type: domain.Expense, Color: "#123456"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateCategory(context.Background(), "u1", domain.Category{Name: "", Type: domain.Expense})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateCategory(t *testing.T) {
	var gotName, gotColor string
	repo := &storetest.MockBackend{
		UpdateCategoryFunc: func(_ context.Context, userID, id, name, color string) error {
			if id != "cat-1" {
				return domain.ErrNotFound
			}
			gotName, gotColor = name, color
			return nil
		},
		ListCategoriesFunc: func(context.Context, string, *domain.TransactionType) ([]domain.Category, error) {
			return []domain.Category{{ID: "cat-1", Name: gotName, Color: gotColor, Type: domain.Income}}, nil
		},
	}
	svc := newService(repo)

	got, err := svc.UpdateCategory(context.Background(), "u1", "cat-1", " Sueldo ", "#3B82F6")
	require.NoError(t, err)
	assert.Equal(t, "Sueldo", gotName)
	assert.Equal(t, "#3b82f6", gotColor)
	assert.Equal(t, domain.Income, got.Type)

	_, err = svc.UpdateCategory(context.Background(), "u1", "missing", "x", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListCategories_InvalidType(t *testing.T) {
	typ := domain.TransactionType("transfer")
	_, err := newService(&storetest.MockBackend{}).ListCategories(context.Background(), "u1", &typ)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	cats, err := newService(&storetest.MockBackend{}).ListCategories(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.NotNil(t, cats)
}

func TestAssociations(t *testing.T) {
	var joined []string
	repo := &storetest.MockBackend{
		CreateAssociationFunc: func(_ context.Context, name, password, createdBy string) (string, error) {
			return "a-" + name, nil
		},
		JoinAssociationFunc: func(_ context.Context, name, password, displayName, userID string) (string, error) {
			if password != "secret" {
				return "", domain.ErrForbidden
			}
			joined = append(joined, displayName)
			return "a-" + name, nil
		},
	}
	svc := newService(repo)
	ctx := context.Background()

	id, err := svc.CreateAssociation(ctx, "u1", CreateAssociationInput{Name: " Casa ", Password: "secret", DisplayName: " Ana "})
	require.NoError(t, err)
	assert.Equal(t, "a-Casa", id)
	assert.Equal(t, []string{"Ana"}, joined)

	_, err = svc.CreateAssociation(ctx, "u1", CreateAssociationInput{Name: "Casa"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.JoinAssociation(ctx, "u2", JoinAssociationInput{Name: "Casa", Password: "secret"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.JoinAssociation(ctx, "u2", JoinAssociationInput{Name: "Casa", Password: "wrong", DisplayName: "Bo"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	memberships, err := svc.Memberships(ctx, "u3")
	require.NoError(t, err)
	assert.NotNil(t, memberships)
}

type suggesterFunc func(ctx context.Context, note string, typ domain.TransactionType, cats []domain.Category) (suggest.Suggestion, error)

func (f suggesterFunc) Suggest(ctx context.Context, note string, typ domain.TransactionType, cats []domain.Category) (suggest.Suggestion, error) {
	return f(ctx, note, typ, cats)
}

func TestSuggestCategory(t *testing.T) {
	repo := &storetest.MockBackend{
		ListCategoriesFunc: func(_ context.Context, _ string, typ *domain.TransactionType) ([]domain.Category, error) {
			return []domain.Category{{ID: "food", Name: "Comida", Type: *typ}}, nil
		},
	}

	_, err := newService(repo).SuggestCategory(context.Background(), "u1", "pan", domain.Expense)
	assert.ErrorIs(t, err, suggest.ErrDisabled)

	svc := New(repo, suggesterFunc(func(_ context.Context, note string, _ domain.TransactionType, cats []domain.Category) (suggest.Suggestion, error) {
		return suggest.Suggestion{CategoryID: cats[0].ID, Category: cats[0].Name, Confidence: 0.8}, nil
	}), Options{}, zerolog.Nop())

	got, err := svc.SuggestCategory(context.Background(), "u1", "pan", domain.Expense)
	require.NoError(t, err)
	assert.Equal(t, "food", got.CategoryID)

	_, err = svc.SuggestCategory(context.Background(), "u1", "pan", "gift")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
