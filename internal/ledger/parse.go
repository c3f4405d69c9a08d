package ledger

import (
	"fmt"
	"strings"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/shopspring/decimal"
)

// Rejection names a record that could not be turned into a transaction.
type Rejection struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// RejectError is returned by Parse for a malformed record.
type RejectError struct {
	ID     string
	Reason string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("transaction %q rejected: %s", e.ID, e.Reason)
}

func (e *RejectError) Unwrap() error { return domain.ErrInvalidInput }

// Parse validates a raw record and returns the typed transaction.
func Parse(raw RawTransaction) (domain.Transaction, error) {
	typ, err := domain.ParseTransactionType(raw.Type)
	if err != nil {
		return domain.Transaction{}, &RejectError{ID: raw.ID, Reason: fmt.Sprintf("unknown type %q", raw.Type)}
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(raw.Amount))
	if err != nil {
		return domain.Transaction{}, &RejectError{ID: raw.ID, Reason: fmt.Sprintf("amount %q is not a number", raw.Amount)}
	}
	if amount.IsNegative() {
		return domain.Transaction{}, &RejectError{ID: raw.ID, Reason: fmt.Sprintf("amount %s is negative", amount)}
	}

	if raw.OccurredAt.IsZero() {
		return domain.Transaction{}, &RejectError{ID: raw.ID, Reason: "missing occurred_at"}
	}

	return domain.Transaction{
		ID:              raw.ID,
		Type:            typ,
		Amount:          amount,
		OccurredAt:      raw.OccurredAt,
		CategoryID:      raw.CategoryID,
		Category:        raw.Category,
		CategoryColor:   raw.CategoryColor,
		Note:            raw.Note,
		AssociationID:   raw.AssociationID,
		AssociationName: raw.AssociationName,
		UserID:          raw.UserID,
		UserName:        raw.UserName,
	}, nil
}

// Validate parses every record, keeping the valid ones in order and
// collecting a Rejection for each malformed one.
func Validate(raws []RawTransaction) ([]domain.Transaction, []Rejection) {
	txs := make([]domain.Transaction, 0, len(raws))
	var rejected []Rejection
	for _, raw := range raws {
		tx, err := Parse(raw)
		if err != nil {
			reason := err.Error()
			if re, ok := err.(*RejectError); ok {
				reason = re.Reason
			}
			rejected = append(rejected, Rejection{ID: raw.ID, Reason: reason})
			continue
		}
		txs = append(txs, tx)
	}
	return txs, rejected
}
