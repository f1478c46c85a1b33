package intent

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"txcopilot/internal/nlp"
	"txcopilot/internal/records"
)

// sumInterest totals INTEREST amounts, optionally scoped to one "YYYY-MM"
// month key, and returns the contributing ids in storage order.
func sumInterest(store *records.Store, ym string) (float64, []string) {
	total := 0.0
	var ids []string
	for _, t := range store.Transactions() {
		if !strings.EqualFold(t.TransactionType, "INTEREST") {
			continue
		}
		if ym != "" && nlp.MonthKey(t.TransactionDateTime) != ym {
			continue
		}
		total += t.AmountValue()
		ids = append(ids, t.ID())
	}
	return round2(total), ids
}

// countPurchasesOver counts PURCHASE rows with |amount| strictly above the
// threshold, optionally scoped to one month.
func countPurchasesOver(store *records.Store, threshold float64, ym string) (int, []string) {
	var ids []string
	for _, t := range store.Transactions() {
		if !strings.EqualFold(t.TransactionType, "PURCHASE") {
			continue
		}
		if math.Abs(t.AmountValue()) <= threshold {
			continue
		}
		if ym != "" && nlp.MonthKey(t.TransactionDateTime) != ym {
			continue
		}
		ids = append(ids, t.ID())
	}
	return len(ids), ids
}

// mostRecentMonth returns the lexicographically greatest month key present in
// the data, or "" for an empty store.
func mostRecentMonth(store *records.Store) string {
	max := ""
	for _, t := range store.Transactions() {
		if k := nlp.MonthKey(t.TransactionDateTime); len(k) == 7 && k > max {
			max = k
		}
	}
	return max
}

// windowMonthKeys returns the set of N month keys ending at the most recent
// month present in the data, walking backwards with year rollover.
func windowMonthKeys(store *records.Store, n int) map[string]bool {
	latest := mostRecentMonth(store)
	if latest == "" {
		return nil
	}
	year, _ := strconv.Atoi(latest[:4])
	month, _ := strconv.Atoi(latest[5:])
	keys := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		keys[nlp.FormatMonthKey(year, month)] = true
		year, month = nlp.PrevMonthKey(year, month)
	}
	return keys
}

// sumInterestWindow totals INTEREST over the trailing n-month window, with a
// per-account breakdown.
func sumInterestWindow(store *records.Store, n int) (float64, map[string]float64, []string) {
	keys := windowMonthKeys(store, n)
	total := 0.0
	perAccount := make(map[string]float64)
	var ids []string
	for _, t := range store.Transactions() {
		if !strings.EqualFold(t.TransactionType, "INTEREST") {
			continue
		}
		if !keys[nlp.MonthKey(t.TransactionDateTime)] {
			continue
		}
		amt := t.AmountValue()
		total += amt
		if t.AccountID != "" {
			perAccount[t.AccountID] = round2(perAccount[t.AccountID] + amt)
		}
		ids = append(ids, t.ID())
	}
	return round2(total), perAccount, ids
}

// MonthBucket is one month of a statement summary. Inflow collects
// non-negative amounts, outflow the absolute sum of negatives, so
// inflow - outflow == net always holds.
type MonthBucket struct {
	Month   string
	Inflow  float64
	Outflow float64
	Net     float64
	Count   int
}

// statementWindow buckets the trailing n months by month key, most recent
// first. Months inside the window with no transactions are omitted.
func statementWindow(store *records.Store, n int) ([]MonthBucket, []string) {
	keys := windowMonthKeys(store, n)
	byMonth := make(map[string]*MonthBucket)
	var ids []string
	for _, t := range store.Transactions() {
		k := nlp.MonthKey(t.TransactionDateTime)
		if !keys[k] {
			continue
		}
		b := byMonth[k]
		if b == nil {
			b = &MonthBucket{Month: k}
			byMonth[k] = b
		}
		amt := t.AmountValue()
		if amt >= 0 {
			b.Inflow += amt
		} else {
			b.Outflow += -amt
		}
		b.Count++
		ids = append(ids, t.ID())
	}
	out := make([]MonthBucket, 0, len(byMonth))
	for _, b := range byMonth {
		b.Inflow = round2(b.Inflow)
		b.Outflow = round2(b.Outflow)
		b.Net = round2(b.Inflow - b.Outflow)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out, ids
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatAmount trims trailing zeros so whole totals read as integers.
func formatAmount(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}

func formatPerAccount(perAccount map[string]float64) string {
	accts := make([]string, 0, len(perAccount))
	for a := range perAccount {
		accts = append(accts, a)
	}
	sort.Strings(accts)
	parts := make([]string, 0, len(accts))
	for _, a := range accts {
		parts = append(parts, fmt.Sprintf("%s=%.2f", a, perAccount[a]))
	}
	return strings.Join(parts, ", ")
}
