package ledger

import (
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/locale"
)

// CSVFilename is the suggested download name of an export.
const CSVFilename = "finantrack_historial.csv"

const isoMillis = "2006-01-02T15:04:05.000Z"

// WriteCSV writes txs in order with every field quoted. Rows are separated by
// a single newline and the output has no trailing newline.
func WriteCSV(w io.Writer, txs []domain.Transaction, loc locale.Locale) error {
	rows := make([]string, 0, len(txs)+1)
	rows = append(rows, csvRow(loc.CSVHeader))
	for _, tx := range txs {
		rows = append(rows, csvRow([]string{
			tx.OccurredAt.UTC().Format(isoMillis),
			string(tx.Type),
			tx.Amount.StringFixed(2),
			tx.Category,
			tx.Note,
		}))
	}
	if _, err := io.WriteString(w, strings.Join(rows, "\n")); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	return nil
}

func csvRow(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
