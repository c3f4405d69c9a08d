// Package service implements the application operations shared by the HTTP
// API, the CLI and the export workers.
package service

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/dvloznov/finantrack/internal/chart"
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/ledger"
	"github.com/dvloznov/finantrack/internal/locale"
	"github.com/dvloznov/finantrack/internal/store"
	"github.com/dvloznov/finantrack/internal/suggest"
	"github.com/rs/zerolog"
)

// Suggester picks a category for a note.
type Suggester interface {
	Suggest(ctx context.Context, note string, typ domain.TransactionType, categories []domain.Category) (suggest.Suggestion, error)
}

// Options configures presentation details.
type Options struct {
	Locale   locale.Locale
	Location *time.Location
	Currency string
	Theme    chart.Theme

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service holds the backend and the collaborators of every operation.
type Service struct {
	repo      store.Backend
	loader    *ledger.Loader
	suggester Suggester
	opts      Options
	log       zerolog.Logger
}

// New creates a service over repo. suggester may be nil, which disables
// SuggestCategory.
func New(repo store.Backend, suggester Suggester, opts Options, log zerolog.Logger) *Service {
	if opts.Locale.Tag == "" {
		opts.Locale = locale.Default
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:      repo,
		loader:    ledger.NewLoader(repo, opts.Locale, log),
		suggester: suggester,
		opts:      opts,
		log:       log,
	}
}

// Locale returns the configured locale.
func (s *Service) Locale() locale.Locale { return s.opts.Locale }

// Location returns the zone dates are shown in.
func (s *Service) Location() *time.Location { return s.opts.Location }

// Currency returns the configured currency code.
func (s *Service) Currency() string { return s.opts.Currency }

// HistoryView is a filtered history listing with its totals.
type HistoryView struct {
	Filter       ledger.Filter        `json:"filter"`
	Transactions []domain.Transaction `json:"transactions"`
	Summary      ledger.Summary       `json:"summary"`
	Rejected     []ledger.Rejection   `json:"rejected"`
	Source       string               `json:"source"`
}

// History returns the user's transactions matching f, newest first.
func (s *Service) History(ctx context.Context, userID string, f ledger.Filter) (HistoryView, error) {
	if userID == "" {
		return HistoryView{}, fmt.Errorf("History: %w: user id is required", domain.ErrInvalidInput)
	}
	res, err := s.loader.Load(ctx, userID)
	if err != nil {
		return HistoryView{}, fmt.Errorf("History: %w", err)
	}

	txs := f.Apply(res.Transactions, s.opts.Location)
	slices.SortStableFunc(txs, func(a, b domain.Transaction) int {
		return b.OccurredAt.Compare(a.OccurredAt)
	})

	rejected := res.Rejected
	if rejected == nil {
		rejected = []ledger.Rejection{}
	}
	return HistoryView{
		Filter:       f,
		Transactions: txs,
		Summary:      ledger.Summarize(txs),
		Rejected:     rejected,
		Source:       res.Source,
	}, nil
}

// Chart lays out the balance chart of the user's filtered history.
func (s *Service) Chart(ctx context.Context, userID string, f ledger.Filter) (chart.Chart, error) {
	view, err := s.History(ctx, userID, f)
	if err != nil {
		return chart.Chart{}, err
	}
	return s.ChartOf(view), nil
}

// ChartOf lays out the balance chart of an already loaded view.
func (s *Service) ChartOf(view HistoryView) chart.Chart {
	return chart.New(view.Transactions, chart.Options{
		Theme:    s.opts.Theme,
		Currency: s.opts.Currency,
		Locale:   s.opts.Locale,
		Location: s.opts.Location,
		Skipped:  len(view.Rejected),
	})
}

// ExportCSV writes the user's filtered history as CSV.
func (s *Service) ExportCSV(ctx context.Context, userID string, f ledger.Filter, w io.Writer) error {
	view, err := s.History(ctx, userID, f)
	if err != nil {
		return err
	}
	return ledger.WriteCSV(w, view.Transactions, s.opts.Locale)
}

// RecordTransaction validates and stores a transaction for in.UserID.
func (s *Service) RecordTransaction(ctx context.Context, in domain.NewTransaction) (string, error) {
	if in.UserID == "" {
		return "", fmt.Errorf("RecordTransaction: %w: user id is required", domain.ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return "", fmt.Errorf("RecordTransaction: %w: unknown transaction type %q", domain.ErrInvalidInput, in.Type)
	}
	if !in.Amount.IsPositive() {
		return "", fmt.Errorf("RecordTransaction: %w: amount must be greater than zero", domain.ErrInvalidInput)
	}
	in.Note = strings.TrimSpace(in.Note)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.AssociationID = strings.TrimSpace(in.AssociationID)

	memberships, err := s.repo.ListMemberships(ctx, in.UserID)
	if err != nil {
		return "", fmt.Errorf("RecordTransaction: list memberships: %w", err)
	}
	if len(memberships) == 1 && in.AssociationID == "" {
		in.AssociationID = memberships[0].Association.ID
	}
	switch {
	case len(memberships) > 0 && in.AssociationID == "":
		return "", fmt.Errorf("RecordTransaction: %w", domain.ErrAssociationRequired)
	case len(memberships) > 0 && !memberships.Contains(in.AssociationID):
		return "", fmt.Errorf("RecordTransaction: %w: %q is not one of your associations", domain.ErrAssociationRequired, in.AssociationID)
	case len(memberships) == 0 && in.AssociationID != "":
		return "", fmt.Errorf("RecordTransaction: %w: not a member of %q", domain.ErrForbidden, in.AssociationID)
	}

	if in.CategoryID != "" {
		cats, err := s.repo.ListCategories(ctx, in.UserID, &in.Type)
		if err != nil {
			return "", fmt.Errorf("RecordTransaction: list categories: %w", err)
		}
		if !slices.ContainsFunc(cats, func(c domain.Category) bool { return c.ID == in.CategoryID }) {
			return "", fmt.Errorf("RecordTransaction: %w: unknown %s category %q", domain.ErrInvalidInput, in.Type, in.CategoryID)
		}
	}

	if in.OccurredAt.IsZero() {
		in.OccurredAt = s.opts.Now().UTC()
	}

	id, err := s.repo.InsertTransaction(ctx, in)
	if err != nil {
		return "", fmt.Errorf("RecordTransaction: %w", err)
	}
	s.log.Info().
		Str("transaction_id", id).
		Str("user_id", in.UserID).
		Str("type", string(in.Type)).
		Str("amount", in.Amount.String()).
		Msg("Recorded transaction")
	return id, nil
}
