// Package tools implements the deterministic functions the generator may
// call mid-resolution, plus the registry that dispatches them by name. Every
// computation here runs over loaded records only; nothing reaches the
// network.
package tools

import (
	"math"
	"strings"

	"txcopilot/internal/records"
)

// TxRef is the compact row shape returned by filtering tools and consumed by
// sum_amounts/count_items.
type TxRef struct {
	TransactionID string   `json:"transactionId"`
	Amount        *float64 `json:"amount,omitempty"`
	Type          string   `json:"type,omitempty"`
	Date          string   `json:"date,omitempty"`
	Status        string   `json:"status,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Merchant      string   `json:"merchant,omitempty"`
}

// FilterArgs are the optional predicates for FilterTransactions. Nil fields
// do not constrain.
type FilterArgs struct {
	MinAmount       *float64 `json:"min_amount,omitempty"`
	MaxAmount       *float64 `json:"max_amount,omitempty"`
	TransactionType string   `json:"transaction_type,omitempty"`
	MerchantName    string   `json:"merchant_name,omitempty"`
	Status          string   `json:"status,omitempty"`
}

// FilterTransactions applies every present predicate conjunctively.
func FilterTransactions(txs []records.Transaction, args FilterArgs) []TxRef {
	out := []TxRef{}
	for _, t := range txs {
		if args.TransactionType != "" && !strings.EqualFold(t.TransactionType, args.TransactionType) {
			continue
		}
		if args.MerchantName != "" && !strings.EqualFold(t.MerchantName, args.MerchantName) {
			continue
		}
		if args.Status != "" && !strings.EqualFold(t.TransactionStatus, args.Status) {
			continue
		}
		if args.MinAmount != nil && t.AmountValue() < *args.MinAmount {
			continue
		}
		if args.MaxAmount != nil && t.AmountValue() > *args.MaxAmount {
			continue
		}
		out = append(out, TxRef{
			TransactionID: t.ID(),
			Amount:        t.Amount,
			Type:          t.TransactionType,
			Date:          t.TransactionDateTime,
		})
	}
	return out
}

// SumAmounts totals the amount field across items; absent amounts count as 0.
func SumAmounts(items []TxRef) float64 {
	total := 0.0
	for _, i := range items {
		if i.Amount != nil {
			total += *i.Amount
		}
	}
	return total
}

// CountItems returns the number of items.
func CountItems(items []TxRef) int { return len(items) }

// GetTransactionByID returns the full compact view of one transaction, or
// nil when the id is unknown.
func GetTransactionByID(txs []records.Transaction, id string) *TxRef {
	for _, t := range txs {
		if t.ID() == id {
			return &TxRef{
				TransactionID: t.ID(),
				Amount:        t.Amount,
				Type:          t.TransactionType,
				Date:          t.TransactionDateTime,
				Status:        t.TransactionStatus,
				Currency:      t.CurrencyCode,
				Merchant:      t.MerchantName,
			}
		}
	}
	return nil
}

// matchMonthYear scopes a transaction to a "YYYY-MM" month or "YYYY" year by
// timestamp prefix. Empty scopes always match.
func matchMonthYear(t records.Transaction, month, year string) bool {
	if month == "" && year == "" {
		return true
	}
	s := t.TransactionDateTime
	if month != "" {
		return strings.HasPrefix(s, month)
	}
	return strings.HasPrefix(s, year)
}

// SumCredits totals POSTED credits (indicator == -1) within the scope.
func SumCredits(txs []records.Transaction, month, year string) float64 {
	total := 0.0
	for _, t := range txs {
		if !t.IsPosted() || !t.IsCredit() || !matchMonthYear(t, month, year) {
			continue
		}
		total += t.AmountValue()
	}
	return total
}

// SumDebits totals POSTED debits (indicator == 1) within the scope, summing
// absolute values since upstream feeds disagree on sign.
func SumDebits(txs []records.Transaction, month, year string) float64 {
	total := 0.0
	for _, t := range txs {
		if !t.IsPosted() || !t.IsDebit() || !matchMonthYear(t, month, year) {
			continue
		}
		total += math.Abs(t.AmountValue())
	}
	return total
}

// SumPayments totals POSTED PAYMENT transactions within the scope.
func SumPayments(txs []records.Transaction, month, year string) float64 {
	total := 0.0
	for _, t := range txs {
		if !t.IsPosted() || !strings.EqualFold(t.TransactionType, "PAYMENT") || !matchMonthYear(t, month, year) {
			continue
		}
		total += t.AmountValue()
	}
	return total
}
