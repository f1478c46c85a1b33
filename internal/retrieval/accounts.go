package retrieval

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"txcopilot/internal/records"
)

// accountHints are the phrasings that pull account snapshots into evidence
// alongside transactions.
var accountHints = []string{
	"balance", "current balance", "total balance",
	"credit limit", "available credit", "limit",
	"past due", "minimum due", "payment due", "due date",
	"status", "flags", "overdue", "blocked", "installment",
	"billing cycle", "statement", "opened", "closed",
}

// LooksLikeAccountQuery reports whether the query is asking about account
// state rather than individual transactions.
func LooksLikeAccountQuery(query string) bool {
	q := strings.ToLower(query)
	for _, h := range accountHints {
		if strings.Contains(q, h) {
			return true
		}
	}
	return false
}

// RetrieveAccounts returns up to k account snapshots, one per account id,
// newest lastUpdatedDate first. When an account vector index exists its hits
// are promoted to the front of the ordering.
func (r *Retriever) RetrieveAccounts(ctx context.Context, query string, k int) []records.AccountSummary {
	if k <= 0 {
		k = 12
	}

	promoted := make(map[string]bool)
	if r.indexes != nil && r.embedder != nil && r.indexes.Exists(AcctIndexName) {
		if vec, err := r.embedder.Embed(ctx, query); err == nil {
			if hits, err := r.indexes.Search(ctx, AcctIndexName, vec, k); err == nil {
				for _, h := range hits {
					promoted[h.ID] = true
				}
			} else {
				r.log.Warn("account vector search failed", zap.Error(err))
			}
		}
	}

	seen := make(map[string]bool)
	var hits, rest []records.AccountSummary
	for _, a := range r.store.NewestAccounts() {
		if seen[a.AccountID] {
			continue
		}
		seen[a.AccountID] = true
		if promoted[a.AccountID] {
			hits = append(hits, a)
		} else {
			rest = append(rest, a)
		}
	}

	out := append(hits, rest...)
	if len(out) > k {
		out = out[:k]
	}
	return out
}
