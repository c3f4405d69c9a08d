package ledger

import (
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/shopspring/decimal"
)

// Summary holds the totals shown above a history listing.
type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Count   int             `json:"count"`
}

// Summarize totals income and expense amounts.
func Summarize(txs []domain.Transaction) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero}
	for _, tx := range txs {
		switch tx.Type {
		case domain.Income:
			s.Income = s.Income.Add(tx.Amount)
		case domain.Expense:
			s.Expense = s.Expense.Add(tx.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	s.Count = len(txs)
	return s
}
