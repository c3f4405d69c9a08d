// Package report renders a history view as Markdown, as an HTML page with the
// balance chart embedded, or for a terminal.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/dvloznov/finantrack/internal/chart"
	"github.com/dvloznov/finantrack/internal/locale"
	"github.com/dvloznov/finantrack/internal/service"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const dateLayout = "2006-01-02 15:04"

// Options controls formatting.
type Options struct {
	Locale   locale.Locale
	Location *time.Location
	Currency string
}

func (o Options) withDefaults() Options {
	if o.Locale.Tag == "" {
		o.Locale = locale.Default
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if money.GetCurrency(o.Currency) == nil {
		o.Currency = money.USD
	}
	return o
}

// Markdown renders the totals and the transaction table of view.
func Markdown(view service.HistoryView, opts Options) string {
	opts = opts.withDefaults()
	loc := opts.Locale
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", loc.Title)

	fmt.Fprintf(&b, "| %s | %s | %s |\n", loc.Income, loc.Expense, loc.Balance)
	b.WriteString("|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| %s | %s | %s |\n\n",
		formatMoney(view.Summary.Income, opts.Currency),
		formatMoney(view.Summary.Expense, opts.Currency),
		formatMoney(view.Summary.Balance, opts.Currency),
	)

	if n := len(view.Rejected); n > 0 {
		fmt.Fprintf(&b, "_%s_\n\n", loc.Skipped(n))
	}

	if len(view.Transactions) == 0 {
		fmt.Fprintf(&b, "%s\n", loc.NoData)
		return b.String()
	}

	fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n", loc.Date, loc.Type, loc.Amount, loc.Category, loc.Note, loc.By)
	b.WriteString("|---|---|---:|---|---|---|\n")
	for _, tx := range view.Transactions {
		amount := formatMoney(tx.Amount, opts.Currency)
		if tx.Signed().IsNegative() {
			amount = "-" + amount
		}
		by := tx.UserName
		if tx.AssociationName != "" {
			by = fmt.Sprintf("%s (%s)", by, tx.AssociationName)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			tx.OccurredAt.In(opts.Location).Format(dateLayout),
			loc.TypeName(string(tx.Type)),
			amount,
			cell(tx.Category),
			cell(tx.Note),
			cell(by),
		)
	}
	return b.String()
}

// cell escapes text for a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// formatMoney prints amount with the currency's symbol and fraction digits.
func formatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	factor := decimal.New(1, int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), cur.Code).Display()
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 960px; margin: 2rem auto; color: #18181b; }
table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
th, td { padding: .35rem .6rem; border-bottom: 1px solid #e4e4e7; }
figure { margin: 0; }
</style>
</head>
<body>
<figure>{{.Chart}}</figure>
{{.Body}}
</body>
</html>
`))

// HTML writes a standalone page with the chart above the Markdown report.
func HTML(w io.Writer, view service.HistoryView, c chart.Chart, opts Options) error {
	opts = opts.withDefaults()

	svg, err := chart.RenderSVG(c)
	if err != nil {
		return fmt.Errorf("HTML: %w", err)
	}
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(view, opts)), &body); err != nil {
		return fmt.Errorf("HTML: convert markdown: %w", err)
	}

	err = page.Execute(w, struct {
		Lang  string
		Title string
		Chart template.HTML
		Body  template.HTML
	}{
		Lang:  opts.Locale.Tag,
		Title: opts.Locale.Title,
		Chart: template.HTML(svg),
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return fmt.Errorf("HTML: execute template: %w", err)
	}
	return nil
}

// Terminal renders Markdown for a terminal of the given width.
func Terminal(md string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("Terminal: create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("Terminal: render: %w", err)
	}
	return out, nil
}
