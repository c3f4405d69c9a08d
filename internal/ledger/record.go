// Package ledger turns listing rows from the backend into validated
// transactions, and filters, totals and exports them.
package ledger

import (
	"time"

	"github.com/dvloznov/finantrack/internal/locale"
)

// Record is one row returned by a transaction listing. It is either an
// EnrichedRecord (stored procedure) or a JoinedRecord (fallback query).
type Record interface {
	isRecord()
}

// EnrichedRecord is the flat row returned by get_transactions_with_users.
type EnrichedRecord struct {
	ID              string
	Type            string
	Amount          string
	Note            string
	OccurredAt      time.Time
	CategoryID      string
	CategoryName    string
	CategoryColor   string
	AssociationID   string
	AssociationName string
	UserID          string
	UserDisplayName string
}

// JoinedRecord is the row of the fallback query, with category and
// association joined as nested references.
type JoinedRecord struct {
	ID          string
	Type        string
	Amount      string
	Note        string
	OccurredAt  time.Time
	UserID      string
	Category    *CategoryRef
	Association *AssociationRef
}

// CategoryRef is the joined category of a JoinedRecord.
type CategoryRef struct {
	ID    string
	Name  string
	Color string
}

// AssociationRef is the joined association of a JoinedRecord.
type AssociationRef struct {
	ID   string
	Name string
}

func (EnrichedRecord) isRecord() {}
func (JoinedRecord) isRecord()   {}

// RawTransaction is the single, unvalidated shape both records normalize to.
// Amount and Type are still text; Parse turns them into a domain.Transaction.
type RawTransaction struct {
	ID              string
	Type            string
	Amount          string
	Note            string
	OccurredAt      time.Time
	CategoryID      string
	Category        string
	CategoryColor   string
	AssociationID   string
	AssociationName string
	UserID          string
	UserName        string
}

// Normalize collapses a listing record into a RawTransaction, resolving the
// name shown for the acting user from the viewer's point of view.
func Normalize(viewerID string, loc locale.Locale, rec Record) RawTransaction {
	switch r := rec.(type) {
	case EnrichedRecord:
		raw := RawTransaction{
			ID:              r.ID,
			Type:            r.Type,
			Amount:          r.Amount,
			Note:            r.Note,
			OccurredAt:      r.OccurredAt,
			CategoryID:      r.CategoryID,
			Category:        r.CategoryName,
			CategoryColor:   r.CategoryColor,
			AssociationID:   r.AssociationID,
			AssociationName: r.AssociationName,
			UserID:          r.UserID,
		}
		if r.AssociationID != "" && r.UserDisplayName != "" {
			raw.UserName = r.UserDisplayName
		} else {
			raw.UserName = ownerLabel(viewerID, r.UserID, loc)
		}
		return raw
	case JoinedRecord:
		raw := RawTransaction{
			ID:         r.ID,
			Type:       r.Type,
			Amount:     r.Amount,
			Note:       r.Note,
			OccurredAt: r.OccurredAt,
			UserID:     r.UserID,
			UserName:   ownerLabel(viewerID, r.UserID, loc),
		}
		if r.Category != nil {
			raw.CategoryID = r.Category.ID
			raw.Category = r.Category.Name
			raw.CategoryColor = r.Category.Color
		}
		if r.Association != nil {
			raw.AssociationID = r.Association.ID
			raw.AssociationName = r.Association.Name
		}
		return raw
	}
	return RawTransaction{}
}

func ownerLabel(viewerID, ownerID string, loc locale.Locale) string {
	if ownerID == viewerID {
		return loc.You
	}
	return loc.User
}
