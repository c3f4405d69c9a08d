package ledger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/locale"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var es = locale.Lookup("es")

// mockSource is a function-field mock of Source.
type mockSource struct {
	ListEnrichedFunc func(ctx context.Context, userID string) ([]EnrichedRecord, error)
	ListJoinedFunc   func(ctx context.Context, userID string) ([]JoinedRecord, error)
}

func (m *mockSource) ListEnriched(ctx context.Context, userID string) ([]EnrichedRecord, error) {
	if m.ListEnrichedFunc != nil {
		return m.ListEnrichedFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockSource) ListJoined(ctx context.Context, userID string) ([]JoinedRecord, error) {
	if m.ListJoinedFunc != nil {
		return m.ListJoinedFunc(ctx, userID)
	}
	return nil, nil
}

func at(day int) time.Time {
	return time.Date(2025, time.March, day, 10, 0, 0, 0, time.UTC)
}

func TestNormalize_EnrichedUserName(t *testing.T) {
	tests := []struct {
		name string
		rec  EnrichedRecord
		want string
	}{
		{"association display name wins", EnrichedRecord{UserID: "u2", AssociationID: "a1", UserDisplayName: "Ana"}, "Ana"},
		{"own row without association", EnrichedRecord{UserID: "u1", UserDisplayName: "Ana"}, "Tú"},
		{"other row without display name", EnrichedRecord{UserID: "u2", AssociationID: "a1"}, "Usuario"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := Normalize("u1", es, tt.rec)
			assert.Equal(t, tt.want, raw.UserName)
		})
	}
}

func TestNormalize_Joined(t *testing.T) {
	rec := JoinedRecord{
		ID:          "t1",
		Type:        "expense",
		Amount:      "12.50",
		UserID:      "u2",
		OccurredAt:  at(1),
		Category:    &CategoryRef{ID: "c1", Name: "Comida", Color: "#ef4444"},
		Association: &AssociationRef{ID: "a1", Name: "Casa"},
	}

	raw := Normalize("u1", es, rec)

	assert.Equal(t, "Comida", raw.Category)
	assert.Equal(t, "#ef4444", raw.CategoryColor)
	assert.Equal(t, "Casa", raw.AssociationName)
	assert.Equal(t, "Usuario", raw.UserName)

	bare := Normalize("u2", es, JoinedRecord{ID: "t2", UserID: "u2"})
	assert.Empty(t, bare.Category)
	assert.Equal(t, "Tú", bare.UserName)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawTransaction
		wantErr bool
	}{
		{"valid income", RawTransaction{ID: "1", Type: "income", Amount: "100", OccurredAt: at(1)}, false},
		{"valid with spaces", RawTransaction{ID: "2", Type: "expense", Amount: " 3.25 ", OccurredAt: at(1)}, false},
		{"unknown type", RawTransaction{ID: "3", Type: "transfer", Amount: "1", OccurredAt: at(1)}, true},
		{"non numeric amount", RawTransaction{ID: "4", Type: "income", Amount: "abc", OccurredAt: at(1)}, true},
		{"negative amount", RawTransaction{ID: "5", Type: "income", Amount: "-4", OccurredAt: at(1)}, true},
		{"missing date", RawTransaction{ID: "6", Type: "income", Amount: "4"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := Parse(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidInput))
				var re *RejectError
				require.ErrorAs(t, err, &re)
				assert.Equal(t, tt.raw.ID, re.ID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw.ID, tx.ID)
		})
	}
}

func TestValidate_KeepsOrderAndCollectsRejections(t *testing.T) {
	raws := []RawTransaction{
		{ID: "a", Type: "income", Amount: "10", OccurredAt: at(1)},
		{ID: "b", Type: "income", Amount: "NaN?", OccurredAt: at(2)},
		{ID: "c", Type: "expense", Amount: "4", OccurredAt: at(3)},
	}

	txs, rejected := Validate(raws)

	require.Len(t, txs, 2)
	assert.Equal(t, "a", txs[0].ID)
	assert.Equal(t, "c", txs[1].ID)
	require.Len(t, rejected, 1)
	assert.Equal(t, "b", rejected[0].ID)
	assert.Contains(t, rejected[0].Reason, "not a number")
}

func TestLoader_UsesProcedure(t *testing.T) {
	src := &mockSource{
		ListEnrichedFunc: func(ctx context.Context, userID string) ([]EnrichedRecord, error) {
			assert.Equal(t, "u1", userID)
			return []EnrichedRecord{
				{ID: "t1", Type: "income", Amount: "5", OccurredAt: at(1), UserID: "u1"},
				{ID: "t2", Type: "bogus", Amount: "5", OccurredAt: at(2), UserID: "u1"},
			}, nil
		},
		ListJoinedFunc: func(ctx context.Context, userID string) ([]JoinedRecord, error) {
			t.Fatal("fallback must not run when the procedure succeeds")
			return nil, nil
		},
	}

	res, err := NewLoader(src, es, zerolog.New(io.Discard)).Load(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, SourceRPC, res.Source)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Tú", res.Transactions[0].UserName)
	require.Len(t, res.Rejected, 1)
}

func TestLoader_FallsBackOnProcedureError(t *testing.T) {
	src := &mockSource{
		ListEnrichedFunc: func(ctx context.Context, userID string) ([]EnrichedRecord, error) {
			return nil, errors.New("function does not exist")
		},
		ListJoinedFunc: func(ctx context.Context, userID string) ([]JoinedRecord, error) {
			return []JoinedRecord{{ID: "t1", Type: "expense", Amount: "2", OccurredAt: at(1), UserID: "u9"}}, nil
		},
	}

	res, err := NewLoader(src, es, zerolog.New(io.Discard)).Load(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Usuario", res.Transactions[0].UserName)
}

func TestLoader_BothPathsFail(t *testing.T) {
	src := &mockSource{
		ListEnrichedFunc: func(ctx context.Context, userID string) ([]EnrichedRecord, error) {
			return nil, errors.New("rpc down")
		},
		ListJoinedFunc: func(ctx context.Context, userID string) ([]JoinedRecord, error) {
			return nil, errors.New("query down")
		},
	}

	_, err := NewLoader(src, es, zerolog.New(io.Discard)).Load(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query down")
	assert.Contains(t, err.Error(), "rpc down")
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(url.Values{"type": {"expense"}, "q": {"Pan"}, "from": {"2025-03-01"}, "to": {"2025-03-31"}})
	require.NoError(t, err)
	assert.Equal(t, domain.Expense, f.Type)
	assert.Equal(t, "Pan", f.Query)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.March, Day: 1}, f.From)
	assert.Equal(t, f, mustParse(t, f.Values()))

	_, err = ParseFilter(url.Values{"from": {"03/01/2025"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ParseFilter(url.Values{"type": {"gift"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func mustParse(t *testing.T, v url.Values) Filter {
	t.Helper()
	f, err := ParseFilter(v)
	require.NoError(t, err)
	return f
}

func TestFilter_Match(t *testing.T) {
	tx := domain.Transaction{
		Type:       domain.Expense,
		Amount:     decimal.NewFromInt(5),
		Note:       "Pan y leche",
		Category:   "Supermercado",
		OccurredAt: time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC),
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"type mismatch", Filter{Type: domain.Income}, false},
		{"query in note", Filter{Query: "LECHE"}, true},
		{"query in category", Filter{Query: "super"}, true},
		{"query missing", Filter{Query: "gasolina"}, false},
		{"to is inclusive until 23:59:59", Filter{To: civil.Date{Year: 2025, Month: time.March, Day: 31}}, true},
		{"to excludes next day", Filter{To: civil.Date{Year: 2025, Month: time.March, Day: 30}}, false},
		{"from excludes earlier rows", Filter{From: civil.Date{Year: 2025, Month: time.April, Day: 1}}, false},
		{"from same day", Filter{From: civil.Date{Year: 2025, Month: time.March, Day: 31}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tx, time.UTC))
		})
	}

	late := tx
	late.OccurredAt = late.OccurredAt.Add(500 * time.Millisecond)
	assert.False(t, Filter{To: civil.Date{Year: 2025, Month: time.March, Day: 31}}.Match(late, time.UTC))
}

func TestFilter_MatchAcrossDSTChanges(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		to   civil.Date
		want bool
	}{
		{
			name: "23-hour day ends at local midnight",
			at:   time.Date(2025, time.March, 10, 0, 30, 0, 0, ny),
			to:   civil.Date{Year: 2025, Month: time.March, Day: 9},
			want: false,
		},
		{
			name: "25-hour day keeps its last hour",
			at:   time.Date(2025, time.November, 2, 23, 30, 0, 0, ny),
			to:   civil.Date{Year: 2025, Month: time.November, Day: 2},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := domain.Transaction{Type: domain.Expense, Amount: decimal.NewFromInt(1), OccurredAt: tt.at}
			assert.Equal(t, tt.want, Filter{To: tt.to}.Match(tx, ny))
		})
	}
}

func TestSummarize(t *testing.T) {
	txs := []domain.Transaction{
		{Type: domain.Income, Amount: decimal.RequireFromString("100.50")},
		{Type: domain.Expense, Amount: decimal.RequireFromString("30.25")},
		{Type: domain.Income, Amount: decimal.RequireFromString("10")},
	}

	s := Summarize(txs)

	assert.Equal(t, "110.5", s.Income.String())
	assert.Equal(t, "30.25", s.Expense.String())
	assert.Equal(t, "80.25", s.Balance.String())
	assert.Equal(t, 3, s.Count)

	empty := Summarize(nil)
	assert.True(t, empty.Balance.IsZero())
}

func TestWriteCSV(t *testing.T) {
	txs := []domain.Transaction{
		{
			Type:       domain.Expense,
			Amount:     decimal.RequireFromString("3.5"),
			Category:   "Comida",
			Note:       `dijo "hola"`,
			OccurredAt: time.Date(2025, time.March, 1, 12, 30, 0, 0, time.FixedZone("ART", -3*3600)),
		},
		{
			Type:       domain.Income,
			Amount:     decimal.NewFromInt(100),
			OccurredAt: time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, txs, es))

	want := `"fecha","tipo","monto","categoria","nota"` + "\n" +
		`"2025-03-01T15:30:00.000Z","expense","3.50","Comida","dijo ""hola"""` + "\n" +
		`"2025-03-02T00:00:00.000Z","income","100.00","",""`
	assert.Equal(t, want, buf.String())
}
