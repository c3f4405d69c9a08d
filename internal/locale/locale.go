// Package locale holds the user-facing strings and date formats used by the
// chart, the CSV export and the reports.
package locale

import (
	"fmt"
	"strings"
	"time"
)

// Locale is a set of translated strings plus a short date layout.
type Locale struct {
	Tag string

	months   [12]string
	dayFirst bool

	NoData    string
	You       string
	User      string
	skipped   string
	CSVHeader []string

	Title    string
	Income   string
	Expense  string
	Balance  string
	Date     string
	Type     string
	Amount   string
	Note     string
	Category string
	By       string
}

// ShortDate formats t as a short month/day label ("5 nov" or "Nov 5").
func (l Locale) ShortDate(t time.Time) string {
	month := l.months[t.Month()-1]
	if l.dayFirst {
		return fmt.Sprintf("%d %s", t.Day(), month)
	}
	return fmt.Sprintf("%s %d", month, t.Day())
}

// Skipped returns the note shown when n records could not be used.
func (l Locale) Skipped(n int) string {
	return fmt.Sprintf(l.skipped, n)
}

// TypeName translates a transaction type name.
func (l Locale) TypeName(t string) string {
	switch t {
	case "income":
		return l.Income
	case "expense":
		return l.Expense
	}
	return t
}

var spanish = Locale{
	Tag:       "es",
	months:    [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"},
	dayFirst:  true,
	NoData:    "No hay datos para mostrar",
	You:       "Tú",
	User:      "Usuario",
	skipped:   "%d registros omitidos",
	CSVHeader: []string{"fecha", "tipo", "monto", "categoria", "nota"},
	Title:     "Historial",
	Income:    "Ingresos",
	Expense:   "Gastos",
	Balance:   "Balance",
	Date:      "Fecha",
	Type:      "Tipo",
	Amount:    "Monto",
	Note:      "Nota",
	Category:  "Categoría",
	By:        "Por",
}

var english = Locale{
	Tag:       "en",
	months:    [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	NoData:    "No data to display",
	You:       "You",
	User:      "User",
	skipped:   "%d records skipped",
	CSVHeader: []string{"date", "type", "amount", "category", "note"},
	Title:     "History",
	Income:    "Income",
	Expense:   "Expenses",
	Balance:   "Balance",
	Date:      "Date",
	Type:      "Type",
	Amount:    "Amount",
	Note:      "Note",
	Category:  "Category",
	By:        "By",
}

// Default is the locale used when none is configured.
var Default = spanish

// Lookup returns the locale for a language tag such as "en" or "es-AR".
// Unknown tags fall back to Default.
func Lookup(tag string) Locale {
	lang, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(tag)), "-")
	switch lang {
	case "en":
		return english
	case "es":
		return spanish
	}
	return Default
}
