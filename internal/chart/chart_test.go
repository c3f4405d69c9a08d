package chart

import (
	"encoding/xml"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/locale"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, time.November, 5, 10, 0, 0, 0, time.UTC)

func tx(id string, typ domain.TransactionType, amount int64, at time.Time) domain.Transaction {
	return domain.Transaction{ID: id, Type: typ, Amount: decimal.NewFromInt(amount), OccurredAt: at}
}

func balances(points []BalancePoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Balance.String()
	}
	return out
}

func TestBuildSeries(t *testing.T) {
	tests := []struct {
		name string
		txs  []domain.Transaction
		want []string
	}{
		{
			name: "empty",
			txs:  nil,
			want: []string{},
		},
		{
			name: "mixed in order",
			txs: []domain.Transaction{
				tx("a", domain.Income, 100, t0),
				tx("b", domain.Expense, 30, t0.Add(time.Hour)),
				tx("c", domain.Income, 10, t0.Add(2*time.Hour)),
			},
			want: []string{"100", "70", "80"},
		},
		{
			name: "unsorted input",
			txs: []domain.Transaction{
				tx("c", domain.Income, 10, t0.Add(2*time.Hour)),
				tx("a", domain.Income, 100, t0),
				tx("b", domain.Expense, 30, t0.Add(time.Hour)),
			},
			want: []string{"100", "70", "80"},
		},
		{
			name: "all expenses",
			txs: []domain.Transaction{
				tx("a", domain.Expense, 20, t0),
				tx("b", domain.Expense, 5, t0.Add(time.Hour)),
			},
			want: []string{"-20", "-25"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSeries(tt.txs)
			assert.Len(t, got, len(tt.txs))
			assert.Equal(t, tt.want, balances(got))
		})
	}
}

func TestBuildSeries_StableOnTies(t *testing.T) {
	txs := []domain.Transaction{
		tx("first", domain.Income, 5, t0),
		tx("second", domain.Expense, 3, t0),
		tx("third", domain.Income, 1, t0),
	}
	got := BuildSeries(txs)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"5", "2", "3"}, balances(got))
	assert.Equal(t, domain.Expense, got[1].Type)
}

func TestBuildSeries_PermutationInvariant(t *testing.T) {
	txs := []domain.Transaction{
		tx("a", domain.Income, 40, t0),
		tx("b", domain.Expense, 15, t0.Add(time.Minute)),
		tx("c", domain.Expense, 60, t0.Add(2*time.Minute)),
		tx("d", domain.Income, 7, t0.Add(3*time.Minute)),
	}
	want := balances(BuildSeries(txs))

	perms := [][]int{{3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}
	for _, perm := range perms {
		shuffled := make([]domain.Transaction, len(txs))
		for i, j := range perm {
			shuffled[i] = txs[j]
		}
		assert.Equal(t, want, balances(BuildSeries(shuffled)))
	}
}

func TestBuildSeries_FinalBalanceIsNetTotal(t *testing.T) {
	txs := []domain.Transaction{
		tx("a", domain.Income, 250, t0),
		tx("b", domain.Expense, 75, t0.Add(time.Hour)),
		tx("c", domain.Expense, 300, t0.Add(2*time.Hour)),
		tx("d", domain.Income, 12, t0.Add(3*time.Hour)),
	}
	points := BuildSeries(txs)
	require.NotEmpty(t, points)
	assert.Equal(t, "-113", points[len(points)-1].Balance.String())
}

func TestBuildSeries_DoesNotMutateInput(t *testing.T) {
	txs := []domain.Transaction{
		tx("b", domain.Expense, 1, t0.Add(time.Hour)),
		tx("a", domain.Income, 1, t0),
	}
	BuildSeries(txs)
	assert.Equal(t, "b", txs[0].ID)
}

func TestPoints_Restartable(t *testing.T) {
	seq := Points([]domain.Transaction{
		tx("a", domain.Income, 3, t0),
		tx("b", domain.Income, 4, t0.Add(time.Hour)),
	})

	var first, second []string
	for p := range seq {
		first = append(first, p.Balance.String())
	}
	for p := range seq {
		second = append(second, p.Balance.String())
	}
	assert.Equal(t, []string{"3", "7"}, first)
	assert.Equal(t, first, second)

	for range seq {
		break
	}
}

func TestCompute_Scenario(t *testing.T) {
	c := New([]domain.Transaction{
		tx("a", domain.Income, 100, t0),
		tx("b", domain.Expense, 30, t0.Add(time.Hour)),
		tx("c", domain.Income, 10, t0.Add(2*time.Hour)),
	}, Options{})

	require.False(t, c.Empty)
	assert.True(t, c.MinBalance.Equal(decimal.Zero))
	assert.True(t, c.MaxBalance.Equal(decimal.NewFromInt(100)))

	require.Len(t, c.Points, 3)
	wantXY := [][2]float64{{20, 20}, {280, 92}, {540, 68}}
	for i, p := range c.Points {
		assert.InDelta(t, wantXY[i][0], p.X, 1e-9, "x of point %d", i)
		assert.InDelta(t, wantXY[i][1], p.Y, 1e-9, "y of point %d", i)
	}

	require.Len(t, c.Segments, 2)
	assert.False(t, c.Segments[0].Up)
	assert.True(t, c.Segments[1].Up)

	require.Len(t, c.YTicks, 6)
	labels := make([]string, len(c.YTicks))
	for i, tick := range c.YTicks {
		labels[i] = tick.Label
	}
	assert.Equal(t, []string{"$0", "$20", "$40", "$60", "$80", "$100"}, labels)
	assert.InDelta(t, 260, c.YTicks[0].Y, 1e-9)
	assert.InDelta(t, 20, c.YTicks[5].Y, 1e-9)

	require.Len(t, c.XTicks, 3)
	assert.Equal(t, "5 nov", c.XTicks[0].Label)
	assert.InDelta(t, 280, c.XTicks[1].X, 1e-9)
}

func TestCompute_AllExpenses(t *testing.T) {
	c := New([]domain.Transaction{
		tx("a", domain.Expense, 20, t0),
		tx("b", domain.Expense, 5, t0.Add(time.Hour)),
	}, Options{})

	assert.True(t, c.MinBalance.Equal(decimal.NewFromInt(-25)))
	assert.True(t, c.MaxBalance.Equal(decimal.Zero))
	for _, s := range c.Segments {
		assert.False(t, s.Up)
	}
	require.Len(t, c.Points, 2)
	assert.InDelta(t, 212, c.Points[0].Y, 1e-9)
	assert.InDelta(t, 260, c.Points[1].Y, 1e-9)
	assert.Equal(t, "-$25", c.YTicks[0].Label)
}

func TestCompute_Empty(t *testing.T) {
	c := Compute(nil, Options{})
	assert.True(t, c.Empty)
	assert.Equal(t, locale.Default.NoData, c.Placeholder)
	assert.Empty(t, c.Points)
	assert.Empty(t, c.Segments)
	assert.Empty(t, c.YTicks)
	assert.Empty(t, c.XTicks)
}

func TestCompute_SinglePoint(t *testing.T) {
	tests := []struct {
		name  string
		tx    domain.Transaction
		wantY float64
	}{
		{name: "income", tx: tx("a", domain.Income, 50, t0), wantY: 20},
		{name: "expense", tx: tx("a", domain.Expense, 50, t0), wantY: 260},
		{name: "zero", tx: tx("a", domain.Income, 0, t0), wantY: 260},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New([]domain.Transaction{tt.tx}, Options{})
			require.Len(t, c.Points, 1)
			p := c.Points[0]
			assert.False(t, math.IsNaN(p.X) || math.IsNaN(p.Y))
			assert.InDelta(t, 20, p.X, 1e-9)
			assert.InDelta(t, tt.wantY, p.Y, 1e-9)
			assert.Empty(t, c.Segments)
			require.Len(t, c.XTicks, 1)
			assert.Len(t, c.YTicks, 6)
		})
	}
}

func TestCompute_Properties(t *testing.T) {
	var txs []domain.Transaction
	for i := range 23 {
		typ := domain.Income
		if i%3 == 0 {
			typ = domain.Expense
		}
		txs = append(txs, tx("t", typ, int64(10+i*7%40), t0.Add(time.Duration(i*i)*time.Minute)))
	}
	c := New(txs, Options{})

	assert.Len(t, c.Points, len(txs))
	assert.True(t, c.MinBalance.LessThanOrEqual(decimal.Zero))
	for i := 1; i < len(c.Points); i++ {
		assert.GreaterOrEqual(t, c.Points[i].X, c.Points[i-1].X)
	}
	for _, p := range c.Points {
		assert.GreaterOrEqual(t, p.Y, c.Padding.Top-1e-9)
		assert.LessOrEqual(t, p.Y, c.Height-c.Padding.Bottom+1e-9)
	}

	require.Len(t, c.XTicks, 5)
	wantIdx := []int{0, 6, 11, 17, 22}
	for i, tick := range c.XTicks {
		assert.Equal(t, c.Points[wantIdx[i]].Timestamp, tick.Timestamp)
	}
}

func TestCompute_LocaleAndZone(t *testing.T) {
	late := time.Date(2024, time.March, 31, 23, 30, 0, 0, time.UTC)
	c := New([]domain.Transaction{tx("a", domain.Income, 1, late)}, Options{
		Locale:   locale.Lookup("en"),
		Location: time.FixedZone("CEST", 2*60*60),
		Currency: "EUR",
	})
	require.Len(t, c.XTicks, 1)
	assert.Equal(t, "Apr 1", c.XTicks[0].Label)
	assert.Contains(t, c.YTicks[5].Label, "€")
}

func TestCompute_Skipped(t *testing.T) {
	c := Compute(nil, Options{Skipped: 2})
	assert.Equal(t, 2, c.Skipped)
	assert.Equal(t, "2 registros omitidos", c.SkippedNote)

	out, err := RenderSVG(c)
	require.NoError(t, err)
	assert.Contains(t, string(out), `font-size="10">2 registros omitidos</text>`)

	out, err = RenderSVG(Compute(nil, Options{}))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "omitidos")
}

func TestRenderSVG(t *testing.T) {
	c := New([]domain.Transaction{
		tx("a", domain.Income, 100, t0),
		tx("b", domain.Expense, 30, t0.Add(time.Hour)),
		tx("c", domain.Income, 10, t0.Add(2*time.Hour)),
	}, Options{})

	out, err := RenderSVG(c)
	require.NoError(t, err)
	svg := string(out)

	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, `viewBox="0 0 600 300"`)
	assert.Contains(t, svg, `preserveAspectRatio="xMidYMid meet"`)
	assert.Equal(t, 3, strings.Count(svg, "<circle"))
	assert.Equal(t, 6+2, strings.Count(svg, "<line"))

	// Segment colours follow the trend; markers follow the type.
	assert.Contains(t, svg, `<line x1="20" y1="20" x2="280" y2="92" stroke="#ef4444"`)
	assert.Contains(t, svg, `<line x1="280" y1="92" x2="540" y2="68" stroke="#22c55e"`)
	assert.Contains(t, svg, `<circle cx="280" cy="92" r="4" fill="#ef4444" stroke="#ffffff" stroke-width="2">`)
	assert.Contains(t, svg, `<circle cx="540" cy="68" r="4" fill="#22c55e" stroke="#ffffff" stroke-width="2">`)

	assert.Contains(t, svg, `<text x="550" y="24" fill="#71717a" font-size="11" text-anchor="start">$100</text>`)
	assert.Contains(t, svg, `<text x="20" y="290" fill="#71717a" font-size="10" text-anchor="middle">5 nov</text>`)

	var doc struct {
		XMLName xml.Name `xml:"svg"`
	}
	require.NoError(t, xml.Unmarshal(out, &doc))
}

func TestRenderSVG_Empty(t *testing.T) {
	out, err := RenderSVG(Compute(nil, Options{}))
	require.NoError(t, err)
	svg := string(out)

	assert.Contains(t, svg, "No hay datos para mostrar")
	assert.NotContains(t, svg, "<line")
	assert.NotContains(t, svg, "<circle")
}

func TestRenderSVG_EscapesText(t *testing.T) {
	c := Compute(nil, Options{})
	c.Placeholder = "<none> & more"
	out, err := RenderSVG(c)
	require.NoError(t, err)
	assert.Contains(t, string(out), "&lt;none&gt; &amp; more")
}
