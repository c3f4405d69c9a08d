// Package domain holds the finantrack entities shared by the ledger, the
// chart renderer and the storage backends.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tells whether a transaction adds to or subtracts from the balance.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// ParseTransactionType parses "income" or "expense" (case-insensitive).
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, s)
}

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool { return t == Income || t == Expense }

// Transaction is a validated, immutable monetary event. Amount is never negative;
// the sign comes from Type.
type Transaction struct {
	ID         string          `json:"id"`
	Type       TransactionType `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`

	CategoryID    string `json:"category_id,omitempty"`
	Category      string `json:"category,omitempty"`
	CategoryColor string `json:"category_color,omitempty"`
	Note          string `json:"note,omitempty"`

	AssociationID   string `json:"association_id,omitempty"`
	AssociationName string `json:"association_name,omitempty"`

	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
}

// Signed returns the balance contribution of the transaction.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Income {
		return t.Amount
	}
	return t.Amount.Neg()
}

// NewTransaction is the input for recording a transaction.
type NewTransaction struct {
	UserID        string          `json:"-"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note,omitempty"`
	CategoryID    string          `json:"category_id,omitempty"`
	AssociationID string          `json:"association_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at,omitempty"`
}
