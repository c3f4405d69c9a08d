// Package chart derives a cumulative balance series from transactions and
// renders it as a static SVG line chart.
package chart

import (
	"iter"
	"slices"
	"time"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/shopspring/decimal"
)

// BalancePoint is the running balance right after one transaction.
type BalancePoint struct {
	Timestamp time.Time              `json:"timestamp"`
	Balance   decimal.Decimal        `json:"balance"`
	Type      domain.TransactionType `json:"type"`
	Amount    decimal.Decimal        `json:"amount"`
}

// Points yields the balance series of txs in time order. The input is not
// modified and the sequence can be ranged over any number of times.
func Points(txs []domain.Transaction) iter.Seq[BalancePoint] {
	return func(yield func(BalancePoint) bool) {
		sorted := slices.Clone(txs)
		slices.SortStableFunc(sorted, func(a, b domain.Transaction) int {
			return a.OccurredAt.Compare(b.OccurredAt)
		})

		balance := decimal.Zero
		for _, tx := range sorted {
			balance = balance.Add(tx.Signed())
			p := BalancePoint{
				Timestamp: tx.OccurredAt,
				Balance:   balance,
				Type:      tx.Type,
				Amount:    tx.Amount,
			}
			if !yield(p) {
				return
			}
		}
	}
}

// BuildSeries collects Points into a slice.
func BuildSeries(txs []domain.Transaction) []BalancePoint {
	return slices.Collect(Points(txs))
}
