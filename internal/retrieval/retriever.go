package retrieval

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"txcopilot/internal/embedding"
	"txcopilot/internal/index"
	"txcopilot/internal/logging"
	"txcopilot/internal/nlp"
	"txcopilot/internal/records"
)

// TxIndexName and AcctIndexName are the well-known vector index names.
const (
	TxIndexName   = "tx"
	AcctIndexName = "acct"
)

// Retriever produces the evidence set for a query. The index manager and
// embedder are optional; without them retrieval degrades to pinning and
// keyword overlap.
type Retriever struct {
	store    *records.Store
	indexes  *index.Manager
	embedder embedding.Engine
	log      *zap.Logger
}

// New builds a retriever. indexes and embedder may be nil.
func New(store *records.Store, indexes *index.Manager, embedder embedding.Engine) *Retriever {
	return &Retriever{
		store:    store,
		indexes:  indexes,
		embedder: embedder,
		log:      logging.L("retrieval"),
	}
}

// Retrieve runs the staged pipeline and returns at most k ranked candidates.
// It never fails: every stage degrades independently.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) []Candidate {
	if k <= 0 {
		k = 12
	}
	q := strings.ToLower(query)
	ym := nlp.MonthScope(q)

	var cands []Candidate
	cands = append(cands, r.vectorStage(ctx, TxIndexName, query, k)...)
	cands = append(cands, r.pinStage(q, ym)...)

	if len(cands) == 0 {
		cands = r.keywordStage(q, k)
	}
	if len(cands) == 0 {
		cands = r.fallbackStage(k)
	}
	return rank(cands, k)
}

func (r *Retriever) vectorStage(ctx context.Context, name, query string, k int) []Candidate {
	if r.indexes == nil || r.embedder == nil || !r.indexes.Exists(name) {
		return nil
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Warn("query embedding failed, skipping vector stage", zap.Error(err))
		return nil
	}
	hits, err := r.indexes.Search(ctx, name, vec, k)
	if err != nil {
		r.log.Warn("vector search failed, skipping vector stage",
			zap.String("index", name), zap.Error(err))
		return nil
	}
	out := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, Candidate{
			ID:         h.ID,
			Text:       h.Text,
			Score:      h.Score,
			Provenance: ProvenanceVector,
		})
	}
	return out
}

// pinStage deterministically selects records for phrasings where semantic
// similarity is unreliable: recency, balance, and payment questions.
func (r *Retriever) pinStage(q, ym string) []Candidate {
	var out []Candidate

	if strings.Contains(q, "latest transaction") ||
		strings.Contains(q, "most recent transaction") ||
		strings.Contains(q, "last transaction") {
		postedOnly := !strings.Contains(q, "pending")
		if t := r.selectLatest(postedOnly, ym, ""); t != nil {
			out = append(out, pinned(*t, PinLatest))
		}
	}

	if strings.Contains(q, "balance") {
		t := r.selectLatest(true, ym, "")
		if t == nil {
			t = r.selectLatest(false, ym, "")
		}
		if t != nil {
			out = append(out, pinned(*t, PinBalance))
		}
	}

	if strings.Contains(q, "payment") {
		if t := r.selectLatest(true, ym, "PAYMENT"); t != nil {
			out = append(out, pinned(*t, PinPayment))
		}
	}
	return out
}

func pinned(t records.Transaction, reason PinReason) Candidate {
	return Candidate{
		ID:         t.ID(),
		Text:       PackTransaction(t),
		Provenance: ProvenancePinned,
		Pin:        reason,
	}
}

// selectLatest returns the transaction with the greatest timestamp subject to
// the filters, or nil. ISO timestamps compare lexicographically; empty
// timestamps sort lowest.
func (r *Retriever) selectLatest(postedOnly bool, ym, txType string) *records.Transaction {
	var best *records.Transaction
	for _, t := range r.store.Transactions() {
		if postedOnly && !t.IsPosted() {
			continue
		}
		if txType != "" && !strings.EqualFold(t.TransactionType, txType) {
			continue
		}
		if ym != "" && nlp.MonthKey(t.TransactionDateTime) != ym {
			continue
		}
		if best == nil || t.TransactionDateTime > best.TransactionDateTime {
			tt := t
			best = &tt
		}
	}
	return best
}

// keywordStage scores every record by summed occurrence counts of the query
// tokens in its packed text, keeping positive scores only.
func (r *Retriever) keywordStage(q string, k int) []Candidate {
	terms := strings.Fields(q)
	if len(terms) == 0 {
		return nil
	}
	var out []Candidate
	for _, t := range r.store.Transactions() {
		text := PackTransaction(t)
		lower := strings.ToLower(text)
		score := 0
		for _, term := range terms {
			score += strings.Count(lower, term)
		}
		if score > 0 {
			out = append(out, Candidate{
				ID:         t.ID(),
				Text:       text,
				Score:      float64(score),
				Provenance: ProvenanceKeyword,
			})
		}
	}
	return out
}

// fallbackStage hands back the first k records in storage order so the
// generator always has something to refuse over.
func (r *Retriever) fallbackStage(k int) []Candidate {
	var out []Candidate
	for _, t := range r.store.Transactions() {
		out = append(out, Candidate{
			ID:         t.ID(),
			Text:       PackTransaction(t),
			Provenance: ProvenanceFallback,
		})
		if len(out) >= k {
			break
		}
	}
	return out
}
