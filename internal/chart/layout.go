package chart

import (
	"math"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/locale"
	"github.com/shopspring/decimal"
)

// Canvas size in SVG user units.
const (
	Width  = 600
	Height = 300
)

const (
	yTickIntervals = 5
	maxXTicks      = 5
)

// Padding is the space kept around the plot area.
type Padding struct {
	Top, Right, Bottom, Left float64
}

// DefaultPadding leaves room on the right for value labels and below for dates.
var DefaultPadding = Padding{Top: 20, Right: 60, Bottom: 40, Left: 20}

// Theme holds the colours of the chart.
type Theme struct {
	Positive   string `json:"positive"`
	Negative   string `json:"negative"`
	Grid       string `json:"grid"`
	Text       string `json:"text"`
	Background string `json:"background"`
}

// DefaultTheme matches the application palette.
var DefaultTheme = Theme{
	Positive:   "#22c55e",
	Negative:   "#ef4444",
	Grid:       "#a1a1aa",
	Text:       "#71717a",
	Background: "#ffffff",
}

// Options configures Compute.
type Options struct {
	Theme    Theme
	Currency string
	Locale   locale.Locale
	Location *time.Location

	// Skipped is the number of records dropped before the series was built.
	Skipped int
}

func (o Options) withDefaults() Options {
	if o.Theme == (Theme{}) {
		o.Theme = DefaultTheme
	}
	if o.Currency == "" {
		o.Currency = money.USD
	}
	if o.Locale.Tag == "" {
		o.Locale = locale.Default
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// ScreenPoint is a balance point mapped onto the canvas.
type ScreenPoint struct {
	X         float64                `json:"x"`
	Y         float64                `json:"y"`
	Balance   decimal.Decimal        `json:"balance"`
	Timestamp time.Time              `json:"timestamp"`
	Type      domain.TransactionType `json:"type"`
}

// Segment joins two consecutive points. Up is true when the balance did not
// decrease.
type Segment struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
	Up bool    `json:"up"`
}

// YTick is a value gridline with its label.
type YTick struct {
	Value decimal.Decimal `json:"value"`
	Y     float64         `json:"y"`
	Label string          `json:"label"`
}

// XTick is a date label under one of the points.
type XTick struct {
	X         float64   `json:"x"`
	Timestamp time.Time `json:"timestamp"`
	Label     string    `json:"label"`
}

// Chart is the fully laid out balance chart.
type Chart struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Padding Padding `json:"-"`
	Theme   Theme   `json:"theme"`

	// Empty is set when there were no transactions; nothing else is computed.
	Empty       bool   `json:"empty"`
	Placeholder string `json:"placeholder,omitempty"`

	MinBalance decimal.Decimal `json:"min_balance"`
	MaxBalance decimal.Decimal `json:"max_balance"`

	Points   []ScreenPoint `json:"points"`
	Segments []Segment     `json:"segments"`
	YTicks   []YTick       `json:"y_ticks"`
	XTicks   []XTick       `json:"x_ticks"`

	Skipped     int    `json:"skipped"`
	SkippedNote string `json:"skipped_note,omitempty"`
}

// PlotWidth is the width of the area points are mapped into.
func (c Chart) PlotWidth() float64 { return c.Width - c.Padding.Left - c.Padding.Right }

// PlotHeight is the height of the area points are mapped into.
func (c Chart) PlotHeight() float64 { return c.Height - c.Padding.Top - c.Padding.Bottom }

// New builds the series of txs and lays it out.
func New(txs []domain.Transaction, opts Options) Chart {
	return Compute(BuildSeries(txs), opts)
}

// Compute lays out a balance series on the canvas. points must be in time
// order, as returned by BuildSeries. The value axis always includes zero.
func Compute(points []BalancePoint, opts Options) Chart {
	opts = opts.withDefaults()

	c := Chart{
		Width:   Width,
		Height:  Height,
		Padding: DefaultPadding,
		Theme:   opts.Theme,
		Skipped: opts.Skipped,
	}
	if opts.Skipped > 0 {
		c.SkippedNote = opts.Locale.Skipped(opts.Skipped)
	}
	if len(points) == 0 {
		c.Empty = true
		c.Placeholder = opts.Locale.NoData
		return c
	}

	plotW, plotH := c.PlotWidth(), c.PlotHeight()

	minBalance, maxBalance := decimal.Zero, decimal.Zero
	minDate, maxDate := points[0].Timestamp.UnixMilli(), points[0].Timestamp.UnixMilli()
	for _, p := range points {
		minBalance = decimal.Min(minBalance, p.Balance)
		maxBalance = decimal.Max(maxBalance, p.Balance)
		ms := p.Timestamp.UnixMilli()
		minDate = min(minDate, ms)
		maxDate = max(maxDate, ms)
	}
	balanceRange := decimal.Max(maxBalance.Sub(minBalance), decimal.NewFromInt(1))
	dateRange := max(maxDate-minDate, 1)
	c.MinBalance, c.MaxBalance = minBalance, maxBalance

	yOf := func(v decimal.Decimal) float64 {
		ratio := v.Sub(minBalance).Div(balanceRange).InexactFloat64()
		return c.Padding.Top + plotH - ratio*plotH
	}

	c.Points = make([]ScreenPoint, len(points))
	for i, p := range points {
		c.Points[i] = ScreenPoint{
			X:         c.Padding.Left + float64(p.Timestamp.UnixMilli()-minDate)/float64(dateRange)*plotW,
			Y:         yOf(p.Balance),
			Balance:   p.Balance,
			Timestamp: p.Timestamp,
			Type:      p.Type,
		}
	}

	for i := 1; i < len(c.Points); i++ {
		prev, curr := c.Points[i-1], c.Points[i]
		c.Segments = append(c.Segments, Segment{
			X1: prev.X, Y1: prev.Y,
			X2: curr.X, Y2: curr.Y,
			Up: curr.Balance.GreaterThanOrEqual(prev.Balance),
		})
	}

	format := labelFormatter(opts.Currency)
	step := balanceRange.Div(decimal.NewFromInt(yTickIntervals))
	for i := 0; i <= yTickIntervals; i++ {
		v := minBalance.Add(step.Mul(decimal.NewFromInt(int64(i))))
		c.YTicks = append(c.YTicks, YTick{
			Value: v,
			Y:     yOf(v),
			Label: format.Format(v.Round(0).IntPart()),
		})
	}

	labelCount := min(maxXTicks, len(c.Points))
	for i := 0; i < labelCount; i++ {
		idx := 0
		if labelCount > 1 {
			idx = int(math.Round(float64((len(c.Points)-1)*i) / float64(labelCount-1)))
		}
		p := c.Points[idx]
		c.XTicks = append(c.XTicks, XTick{
			X:         p.X,
			Timestamp: p.Timestamp,
			Label:     opts.Locale.ShortDate(p.Timestamp.In(opts.Location)),
		})
	}

	return c
}

// labelFormatter formats whole currency units, e.g. "$120" or "-$25".
func labelFormatter(code string) *money.Formatter {
	cur := money.GetCurrency(code)
	if cur == nil {
		cur = money.GetCurrency(money.USD)
	}
	return money.NewFormatter(0, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)
}
