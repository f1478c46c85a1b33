// Package intent resolves a small family of transaction questions
// deterministically, before any retrieval or generation runs. A resolved
// intent is authoritative: the caller returns it as-is.
package intent

import (
	"fmt"
	"strings"

	"txcopilot/internal/nlp"
	"txcopilot/internal/records"
)

// maxSources caps the citation list on any deterministic answer.
const maxSources = 25

// Result is a grounded answer with its supporting record ids. The same shape
// is produced by the generation path, so the two are interchangeable to
// callers.
type Result struct {
	Answer    string   `json:"answer"`
	Reasoning string   `json:"reasoning"`
	Sources   []string `json:"sources"`
}

// Matcher inspects a query and either produces a full Result from the store
// or declines with nil.
type Matcher struct {
	Name    string
	Resolve func(q string, store *records.Store) *Result
}

// Engine runs its matchers in order; the first non-nil result wins. Matcher
// order is part of the contract: earlier matchers shadow later ones on
// overlapping phrasings.
type Engine struct {
	matchers []Matcher
}

// NewEngine returns the engine with the default matcher order.
func NewEngine() *Engine {
	return &Engine{matchers: []Matcher{
		{Name: "interest_total", Resolve: matchInterestTotal},
		{Name: "purchases_over", Resolve: matchPurchasesOver},
		{Name: "interest_last_n_months", Resolve: matchInterestLastN},
		{Name: "statement_last_n_months", Resolve: matchStatementLastN},
	}}
}

// Resolve returns the first matcher's result, or nil when no deterministic
// intent applies. It never returns an error: an empty store yields zero-valued
// answers, not failures.
func (e *Engine) Resolve(query string, store *records.Store) *Result {
	q := strings.ToLower(query)
	for _, m := range e.matchers {
		if res := m.Resolve(q, store); res != nil {
			return res
		}
	}
	return nil
}

func matchInterestTotal(q string, store *records.Store) *Result {
	if !strings.Contains(q, "interest") {
		return nil
	}
	if strings.Contains(q, "last") && strings.Contains(q, "month") {
		// defer to the windowed matcher
		return nil
	}
	if !strings.Contains(q, "total") && !strings.Contains(q, "sum") && !strings.Contains(q, "amount") {
		return nil
	}
	ym := nlp.MonthScope(q)
	total, ids := sumInterest(store, ym)
	scope := " across all months"
	if ym != "" {
		scope = " in " + ym
	}
	return &Result{
		Answer:    formatAmount(total),
		Reasoning: "Summed INTEREST amounts" + scope,
		Sources:   capSources(ids),
	}
}

func matchPurchasesOver(q string, store *records.Store) *Result {
	if !strings.Contains(q, "purchase") {
		return nil
	}
	threshold, ok := nlp.ParseOverThreshold(q)
	if !ok {
		return nil
	}
	ym := nlp.MonthScope(q)
	if ym == "" && strings.Contains(q, "in a month") {
		ym = mostRecentMonth(store)
	}
	count, ids := countPurchasesOver(store, threshold, ym)
	scope := " across all months"
	if ym != "" {
		scope = " in " + ym
	}
	return &Result{
		Answer:    fmt.Sprintf("%d", count),
		Reasoning: fmt.Sprintf("Counted PURCHASE where |amount| > %s%s.", formatAmount(threshold), scope),
		Sources:   capSources(ids),
	}
}

func matchInterestLastN(q string, store *records.Store) *Result {
	if !strings.Contains(q, "interest") {
		return nil
	}
	n, ok := nlp.ParseLastNMonths(q)
	if !ok {
		return nil
	}
	total, perAccount, ids := sumInterestWindow(store, n)
	reasoning := fmt.Sprintf("Summed INTEREST amounts over the last %d months", n)
	if len(perAccount) > 0 {
		reasoning += "; per account: " + formatPerAccount(perAccount)
	}
	return &Result{
		Answer:    formatAmount(total),
		Reasoning: reasoning,
		Sources:   capSources(ids),
	}
}

func matchStatementLastN(q string, store *records.Store) *Result {
	if !strings.Contains(q, "statement") && !strings.Contains(q, "summary") &&
		!(strings.Contains(q, "inflow") || strings.Contains(q, "outflow") || strings.Contains(q, "net flow")) {
		return nil
	}
	n, ok := nlp.ParseLastNMonths(q)
	if !ok {
		return nil
	}
	buckets, ids := statementWindow(store, n)
	lines := make([]string, 0, len(buckets))
	for _, b := range buckets {
		lines = append(lines, fmt.Sprintf("%s: inflow %.2f, outflow %.2f, net %.2f (%d txns)",
			b.Month, b.Inflow, b.Outflow, b.Net, b.Count))
	}
	answer := strings.Join(lines, "; ")
	if answer == "" {
		answer = "No transactions in the requested window."
	}
	return &Result{
		Answer:    answer,
		Reasoning: fmt.Sprintf("Monthly inflow/outflow/net over the last %d months, most recent first.", n),
		Sources:   capSources(ids),
	}
}

func capSources(ids []string) []string {
	if ids == nil {
		ids = []string{}
	}
	if len(ids) > maxSources {
		ids = ids[:maxSources]
	}
	return ids
}
