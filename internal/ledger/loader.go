package ledger

import (
	"context"
	"fmt"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/locale"
	"github.com/rs/zerolog"
)

// Listing sources reported in Result.Source.
const (
	SourceRPC      = "rpc"
	SourceFallback = "fallback"
)

// Source lists the transactions visible to a user through the two listing
// paths of the backend.
type Source interface {
	// ListEnriched calls the get_transactions_with_users procedure.
	ListEnriched(ctx context.Context, userID string) ([]EnrichedRecord, error)

	// ListJoined runs the plain joined query, newest first.
	ListJoined(ctx context.Context, userID string) ([]JoinedRecord, error)
}

// Result is the outcome of loading a user's transactions.
type Result struct {
	Transactions []domain.Transaction
	Rejected     []Rejection
	Source       string
}

// Loader reads, normalizes and validates a user's transactions.
type Loader struct {
	src Source
	loc locale.Locale
	log zerolog.Logger
}

// NewLoader creates a loader over src.
func NewLoader(src Source, loc locale.Locale, log zerolog.Logger) *Loader {
	return &Loader{src: src, loc: loc, log: log}
}

// Load returns the transactions visible to viewerID. When the stored procedure
// fails, the fallback query is used instead.
func (l *Loader) Load(ctx context.Context, viewerID string) (Result, error) {
	var (
		raws   []RawTransaction
		source = SourceRPC
	)

	enriched, rpcErr := l.src.ListEnriched(ctx, viewerID)
	if rpcErr == nil {
		raws = make([]RawTransaction, 0, len(enriched))
		for _, rec := range enriched {
			raws = append(raws, Normalize(viewerID, l.loc, rec))
		}
	} else {
		l.log.Warn().Err(rpcErr).Str("user_id", viewerID).Msg("get_transactions_with_users failed, using fallback query")

		joined, err := l.src.ListJoined(ctx, viewerID)
		if err != nil {
			return Result{}, fmt.Errorf("Load: fallback query: %w (procedure: %v)", err, rpcErr)
		}
		source = SourceFallback
		raws = make([]RawTransaction, 0, len(joined))
		for _, rec := range joined {
			raws = append(raws, Normalize(viewerID, l.loc, rec))
		}
	}

	txs, rejected := Validate(raws)
	if len(rejected) > 0 {
		l.log.Warn().Int("rejected", len(rejected)).Str("user_id", viewerID).Msg("Skipped malformed transactions")
	}

	return Result{Transactions: txs, Rejected: rejected, Source: source}, nil
}
