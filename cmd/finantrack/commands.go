package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dvloznov/finantrack/internal/chart"
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/ledger"
	"github.com/dvloznov/finantrack/internal/report"
	"github.com/dvloznov/finantrack/internal/service"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// filterFlags are the history filter flags shared by several commands.
type filterFlags struct {
	typ   string
	query string
	from  string
	to    string
}

func (f *filterFlags) set(fs *flag.FlagSet) {
	fs.StringVar(&f.typ, "type", "", "only income or expense")
	fs.StringVar(&f.query, "q", "", "text to search in notes and categories")
	fs.StringVar(&f.from, "from", "", "first day, YYYY-MM-DD")
	fs.StringVar(&f.to, "to", "", "last day, YYYY-MM-DD")
}

func (f *filterFlags) filter() (ledger.Filter, error) {
	v := url.Values{}
	for k, s := range map[string]string{"type": f.typ, "q": f.query, "from": f.from, "to": f.to} {
		if s != "" {
			v.Set(k, s)
		}
	}
	return ledger.ParseFilter(v)
}

// outFlag writes to a file or stdout.
type outFlag string

func (o outFlag) write(data []byte) error {
	if o == "" || o == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(string(o), data, 0o644)
}

// withService parses the filter flags and opens the backend.
func withService(ctx context.Context, ff *filterFlags, fn func(*service.Service, ledger.Filter) error) subcommands.ExitStatus {
	f, err := ff.filter()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid filter: %v\n", err)
		return subcommands.ExitUsageError
	}
	svc, backend, _, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening backend: %v\n", err)
		return subcommands.ExitFailure
	}
	defer backend.Close()

	if err := fn(svc, f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// withHistory opens the backend and loads the filtered history.
func withHistory(ctx context.Context, ff *filterFlags, fn func(*service.Service, service.HistoryView) error) subcommands.ExitStatus {
	return withService(ctx, ff, func(svc *service.Service, f ledger.Filter) error {
		view, err := svc.History(ctx, *userID, f)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		return fn(svc, view)
	})
}

func reportOptions(svc *service.Service) report.Options {
	return report.Options{Locale: svc.Locale(), Location: svc.Location(), Currency: svc.Currency()}
}

type historyCmd struct {
	filterFlags
	asJSON bool
	plain  bool
	width  int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list transactions with their totals" }
func (*historyCmd) Usage() string {
	return `history [-type income|expense] [-q text] [-from date] [-to date] [-json] [-plain]

  Lists the transactions of the user, newest first, with income, expense and
  balance totals.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	c.filterFlags.set(f)
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of a table")
	f.BoolVar(&c.plain, "plain", false, "print raw Markdown")
	f.IntVar(&c.width, "width", 100, "terminal width")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withHistory(ctx, &c.filterFlags, func(svc *service.Service, view service.HistoryView) error {
		if c.asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}
		return printMarkdown(os.Stdout, report.Markdown(view, reportOptions(svc)), c.plain, c.width)
	})
}

// printMarkdown renders md through glamour unless plain is set.
func printMarkdown(w io.Writer, md string, plain bool, width int) error {
	if plain {
		_, err := io.WriteString(w, md)
		return err
	}
	out, err := report.Terminal(md, width)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

type chartCmd struct {
	filterFlags
	out string
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "render the cumulative balance chart as SVG" }
func (*chartCmd) Usage() string {
	return `chart [filters] [-o balance.svg]

  Renders the running balance of the filtered history as an SVG line chart.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	c.filterFlags.set(f)
	f.StringVar(&c.out, "o", "-", "output file, - for stdout")
}

func (c *chartCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withService(ctx, &c.filterFlags, func(svc *service.Service, f ledger.Filter) error {
		ch, err := svc.Chart(ctx, *userID, f)
		if err != nil {
			return err
		}
		svg, err := chart.RenderSVG(ch)
		if err != nil {
			return err
		}
		return outFlag(c.out).write(svg)
	})
}

type exportCmd struct {
	filterFlags
	out string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the history as CSV" }
func (*exportCmd) Usage() string {
	return `export [filters] [-o ` + ledger.CSVFilename + `]

  Writes the filtered history as CSV with every field quoted.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	c.filterFlags.set(f)
	f.StringVar(&c.out, "o", ledger.CSVFilename, "output file, - for stdout")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withService(ctx, &c.filterFlags, func(svc *service.Service, f ledger.Filter) error {
		var buf bytes.Buffer
		if err := svc.ExportCSV(ctx, *userID, f, &buf); err != nil {
			return err
		}
		return outFlag(c.out).write(buf.Bytes())
	})
}

type reportCmd struct {
	filterFlags
	format string
	out    string
	width  int
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "write a history report" }
func (*reportCmd) Usage() string {
	return `report [filters] [-format term|md|html] [-o file]

  Writes the totals and transactions of the filtered history. The html format
  embeds the balance chart.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	c.filterFlags.set(f)
	f.StringVar(&c.format, "format", "term", "term, md or html")
	f.StringVar(&c.out, "o", "-", "output file, - for stdout")
	f.IntVar(&c.width, "width", 100, "terminal width")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	switch c.format {
	case "term", "md", "html":
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q\n", c.format)
		return subcommands.ExitUsageError
	}
	return withHistory(ctx, &c.filterFlags, func(svc *service.Service, view service.HistoryView) error {
		opts := reportOptions(svc)
		var buf bytes.Buffer
		switch c.format {
		case "html":
			if err := report.HTML(&buf, view, svc.ChartOf(view), opts); err != nil {
				return err
			}
		default:
			if err := printMarkdown(&buf, report.Markdown(view, opts), c.format == "md", c.width); err != nil {
				return err
			}
		}
		return outFlag(c.out).write(buf.Bytes())
	})
}

type categoriesCmd struct {
	typ     string
	create  string
	color   string
	remove  string
	suggest string
}

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "list, create, delete or suggest categories" }
func (*categoriesCmd) Usage() string {
	return `categories [-type income|expense] [-create name [-color #hex]] [-delete id] [-suggest note]

  Without action flags, lists the user's categories.
`
}

func (c *categoriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.typ, "type", "", "category type: income or expense")
	f.StringVar(&c.create, "create", "", "name of a category to create (needs -type)")
	f.StringVar(&c.color, "color", "", "palette colour of the new category")
	f.StringVar(&c.remove, "delete", "", "id of a category to delete")
	f.StringVar(&c.suggest, "suggest", "", "note to pick a category for (needs -type and GEMINI_API_KEY)")
}

func (c *categoriesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var typ *domain.TransactionType
	if c.typ != "" {
		t, err := domain.ParseTransactionType(c.typ)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		typ = &t
	}
	if (c.create != "" || c.suggest != "") && typ == nil {
		fmt.Fprintln(os.Stderr, "-type is required with -create and -suggest")
		return subcommands.ExitUsageError
	}

	svc, backend, _, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening backend: %v\n", err)
		return subcommands.ExitFailure
	}
	defer backend.Close()

	switch {
	case c.create != "":
		cat, err := svc.CreateCategory(ctx, *userID, domain.Category{Name: c.create, Type: *typ, Color: c.color})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating category: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Created category %s (%s)\n", cat.Name, cat.ID)
	case c.remove != "":
		if err := svc.DeleteCategory(ctx, *userID, c.remove); err != nil {
			fmt.Fprintf(os.Stderr, "Error deleting category: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Deleted category %s\n", c.remove)
	case c.suggest != "":
		s, err := svc.SuggestCategory(ctx, *userID, c.suggest, *typ)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error suggesting category: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("%s\t%s\t%.2f\n", s.CategoryID, s.Category, s.Confidence)
	default:
		cats, err := svc.ListCategories(ctx, *userID, typ)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing categories: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Print(categoryTable(cats))
	}
	return subcommands.ExitSuccess
}

func categoryTable(cats []domain.Category) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID\tType\tColor\tName\n")
	for _, c := range cats {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", c.ID, c.Type, c.Color, c.Name)
	}
	return b.String()
}

type recordCmd struct {
	typ         string
	amount      string
	note        string
	category    string
	association string
	at          string
}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "record an income or an expense" }
func (*recordCmd) Usage() string {
	return `record -type income|expense -amount 12.50 [-note text] [-category id] [-association id] [-at RFC3339]

  Records a transaction. Members of an association must name one of theirs.
`
}

func (c *recordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.typ, "type", "", "income or expense")
	f.StringVar(&c.amount, "amount", "", "positive amount")
	f.StringVar(&c.note, "note", "", "free text note")
	f.StringVar(&c.category, "category", "", "category id")
	f.StringVar(&c.association, "association", "", "association id")
	f.StringVar(&c.at, "at", "", "when it happened, RFC3339; defaults to now")
}

// newTransaction parses the flags into a transaction of userID.
func (c *recordCmd) newTransaction(userID string) (domain.NewTransaction, error) {
	typ, err := domain.ParseTransactionType(c.typ)
	if err != nil {
		return domain.NewTransaction{}, err
	}
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		return domain.NewTransaction{}, fmt.Errorf("invalid -amount %q", c.amount)
	}
	tx := domain.NewTransaction{
		UserID:        userID,
		Type:          typ,
		Amount:        amount,
		Note:          c.note,
		CategoryID:    c.category,
		AssociationID: c.association,
	}
	if c.at != "" {
		at, err := time.Parse(time.RFC3339, c.at)
		if err != nil {
			return domain.NewTransaction{}, fmt.Errorf("invalid -at %q", c.at)
		}
		tx.OccurredAt = at
	}
	return tx, nil
}

func (c *recordCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	tx, err := c.newTransaction(*userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	svc, backend, log, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening backend: %v\n", err)
		return subcommands.ExitFailure
	}
	defer backend.Close()

	id, err := svc.RecordTransaction(ctx, tx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording transaction: %v\n", err)
		return subcommands.ExitFailure
	}
	log.Debug().Str("transaction_id", id).Msg("Transaction recorded")
	fmt.Println(id)
	return subcommands.ExitSuccess
}
