// Package verification recomputes numeric claims against the record store.
// A generated total is never trusted: the sum over the cited ids is the
// ground truth, and a disagreeing answer gets a correction appended.
package verification

import (
	"fmt"
	"math"

	"txcopilot/internal/intent"
	"txcopilot/internal/records"
)

const (
	absTolerance = 0.01
	relTolerance = 1e-6
)

// SumByIDs totals the amounts of the cited transactions, rounded to two
// decimals. Unknown ids are skipped, not errors: the model may cite rows
// that were trimmed from evidence.
func SumByIDs(ids []string, store *records.Store) float64 {
	total := 0.0
	for _, id := range ids {
		if t, ok := store.Get(id); ok {
			total += t.AmountValue()
		}
	}
	return math.Round(total*100) / 100
}

// Verifier checks generated results against the store.
type Verifier struct {
	store *records.Store
}

// New builds a verifier over the store.
func New(store *records.Store) *Verifier {
	return &Verifier{store: store}
}

// Check compares the model's declared total with the recomputed sum over the
// cited sources. On mismatch the verified figure is appended to the answer;
// the original sentence is kept so the correction is visible. declared may
// be nil when the model made no numeric claim.
func (v *Verifier) Check(res *intent.Result, declared *float64) {
	if res == nil || declared == nil || len(res.Sources) == 0 {
		return
	}
	verified := SumByIDs(res.Sources, v.store)
	if withinTolerance(verified, *declared) {
		return
	}
	res.Answer = fmt.Sprintf("%s (Verified total: %.2f)", res.Answer, verified)
}

func withinTolerance(a, b float64) bool {
	diff := math.Abs(a - b)
	if diff <= absTolerance {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return scale > 0 && diff/scale <= relTolerance
}
