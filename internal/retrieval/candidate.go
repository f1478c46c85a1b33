// Package retrieval assembles the evidence set for a query: semantic hits
// from the vector index, deterministic pins for high-intent phrasings, and a
// keyword fallback when neither produces anything.
package retrieval

import "sort"

// Provenance records which stage produced a candidate. Ordering between
// stages is decided by Less, not by score arithmetic, so stage priority can
// never be forged by a large similarity value.
type Provenance int

const (
	// ProvenanceVector marks a semantic hit; Score is the inner product.
	ProvenanceVector Provenance = iota
	// ProvenanceKeyword marks a keyword-overlap hit; Score is the overlap count.
	ProvenanceKeyword
	// ProvenancePinned marks a deterministically selected record; Pin holds why.
	ProvenancePinned
	// ProvenanceFallback marks a storage-order filler row with no signal.
	ProvenanceFallback
)

// PinReason orders pinned candidates among themselves.
type PinReason int

const (
	PinNone PinReason = iota
	// PinBalance: latest posted record for a balance question.
	PinBalance
	// PinPayment: latest posted PAYMENT record.
	PinPayment
	// PinLatest: the most recent record outright; strongest pin.
	PinLatest
)

// Candidate is one evidence row offered to the generator.
type Candidate struct {
	ID         string
	Text       string
	Score      float64
	Provenance Provenance
	Pin        PinReason
}

// Less ranks a before b: pins beat every computed score, stronger pins beat
// weaker ones, and within a stage higher scores win.
func Less(a, b Candidate) bool {
	aPinned := a.Provenance == ProvenancePinned
	bPinned := b.Provenance == ProvenancePinned
	if aPinned != bPinned {
		return aPinned
	}
	if aPinned && bPinned && a.Pin != b.Pin {
		return a.Pin > b.Pin
	}
	return a.Score > b.Score
}

// rank sorts candidates by Less, removes duplicate ids keeping the first
// occurrence, and truncates to k.
func rank(cands []Candidate, k int) []Candidate {
	sort.SliceStable(cands, func(i, j int) bool { return Less(cands[i], cands[j]) })
	seen := make(map[string]bool, len(cands))
	out := cands[:0]
	for _, c := range cands {
		if c.ID != "" && seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
		if len(out) >= k {
			break
		}
	}
	return out
}
