package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/finantrack/internal/chart"
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/ledger"
	"github.com/dvloznov/finantrack/internal/locale"
	"github.com/dvloznov/finantrack/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleView() service.HistoryView {
	txs := []domain.Transaction{
		{
			ID: "2", Type: domain.Expense, Amount: decimal.NewFromInt(30),
			OccurredAt: time.Date(2025, 1, 3, 9, 30, 0, 0, time.UTC),
			Category:   "Food", Note: "lunch | dinner", UserName: "Ana", AssociationName: "Home",
		},
		{
			ID: "1", Type: domain.Income, Amount: decimal.NewFromInt(100),
			OccurredAt: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
			Category:   "Salary", UserName: "Ana",
		},
	}
	return service.HistoryView{
		Transactions: txs,
		Summary:      ledger.Summarize(txs),
		Rejected:     []ledger.Rejection{{ID: "3", Reason: "bad amount"}},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleView(), Options{Locale: locale.Lookup("en")})

	assert.True(t, strings.HasPrefix(md, "# History\n"))
	assert.Contains(t, md, "| $100.00 | $30.00 | $70.00 |")
	assert.Contains(t, md, "_1 records skipped_")
	assert.Contains(t, md, "| 2025-01-03 09:30 | Expenses | -$30.00 | Food | lunch \\| dinner | Ana (Home) |")
	assert.Contains(t, md, "| 2025-01-01 08:00 | Income | $100.00 | Salary |  | Ana |")
}

func TestMarkdown_Empty(t *testing.T) {
	md := Markdown(service.HistoryView{Summary: ledger.Summarize(nil)}, Options{})

	assert.Contains(t, md, "# Historial")
	assert.Contains(t, md, "No hay datos para mostrar")
	assert.NotContains(t, md, "omitidos")
}

func TestMarkdown_Location(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*3600)
	md := Markdown(sampleView(), Options{Locale: locale.Lookup("en"), Location: zone})

	assert.Contains(t, md, "| 2025-01-03 04:30 |")
	assert.Contains(t, md, "| 2025-01-01 03:00 |")
}

func TestHTML(t *testing.T) {
	view := sampleView()
	c := chart.New(view.Transactions, chart.Options{})

	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, view, c, Options{Locale: locale.Lookup("en")}))

	out := buf.String()
	assert.Contains(t, out, `<html lang="en">`)
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<h1>History</h1>")
}

func TestTerminal(t *testing.T) {
	out, err := Terminal("# Title\n\nsome text\n", 40)
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "some text")
}
