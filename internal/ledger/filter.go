package ledger

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finantrack/internal/domain"
)

// Filter narrows a history listing. Zero fields do not filter.
type Filter struct {
	Type  domain.TransactionType `json:"type,omitempty"`
	Query string                 `json:"q,omitempty"`
	From  civil.Date             `json:"from,omitempty"`
	To    civil.Date             `json:"to,omitempty"`
}

// ParseFilter reads type, q, from and to from query parameters.
func ParseFilter(v url.Values) (Filter, error) {
	var f Filter
	if s := v.Get("type"); s != "" {
		t, err := domain.ParseTransactionType(s)
		if err != nil {
			return Filter{}, err
		}
		f.Type = t
	}
	f.Query = v.Get("q")

	for _, p := range []struct {
		key string
		dst *civil.Date
	}{{"from", &f.From}, {"to", &f.To}} {
		s := v.Get(p.key)
		if s == "" {
			continue
		}
		d, err := civil.ParseDate(s)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", domain.ErrInvalidInput, p.key)
		}
		*p.dst = d
	}
	return f, nil
}

// Values encodes the filter back into query parameters.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Type != "" {
		v.Set("type", string(f.Type))
	}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if !f.From.IsZero() {
		v.Set("from", f.From.String())
	}
	if !f.To.IsZero() {
		v.Set("to", f.To.String())
	}
	return v
}

// Match reports whether tx passes the filter. Dates are interpreted in loc.
func (f Filter) Match(tx domain.Transaction, loc *time.Location) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Query != "" {
		needle := strings.ToLower(f.Query)
		hay := strings.ToLower(tx.Note + " " + tx.Category)
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	if !f.From.IsZero() && tx.OccurredAt.Before(f.From.In(loc)) {
		return false
	}
	if !f.To.IsZero() && tx.OccurredAt.After(time.Date(f.To.Year, f.To.Month, f.To.Day, 23, 59, 59, 0, loc)) {
		return false
	}
	return true
}

// Apply returns the transactions that match, preserving order.
func (f Filter) Apply(txs []domain.Transaction, loc *time.Location) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx, loc) {
			out = append(out, tx)
		}
	}
	return out
}
