package records

import (
	"sort"
	"sync"
)

// Store is a read-mostly in-memory snapshot of the loaded records. It is safe
// for concurrent use; all accessors return copies.
type Store struct {
	mu       sync.RWMutex
	txs      []Transaction
	byID     map[string]Transaction
	accounts []AccountSummary
}

// NewStore builds a store over the given records. Transactions without an ID
// are kept (they still participate in keyword retrieval) but are not
// addressable by ID.
func NewStore(txs []Transaction, accounts []AccountSummary) *Store {
	byID := make(map[string]Transaction, len(txs))
	for _, t := range txs {
		if t.TransactionID != "" {
			byID[t.TransactionID] = t
		}
	}
	return &Store{
		txs:      append([]Transaction(nil), txs...),
		byID:     byID,
		accounts: append([]AccountSummary(nil), accounts...),
	}
}

// Len returns the number of transactions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txs)
}

// Transactions returns a copy of every transaction.
func (s *Store) Transactions() []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Transaction(nil), s.txs...)
}

// Get looks up a transaction by ID.
func (s *Store) Get(id string) (Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	return t, ok
}

// Accounts returns a copy of every account snapshot.
func (s *Store) Accounts() []AccountSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AccountSummary(nil), s.accounts...)
}

// NewestAccounts returns account snapshots ordered newest-first by
// lastUpdatedDate. ISO-8601 timestamps order correctly as strings, so no
// parsing is needed; rows without a date sort last.
func (s *Store) NewestAccounts() []AccountSummary {
	out := s.Accounts()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdatedDate > out[j].LastUpdatedDate
	})
	return out
}

// Filter returns the transactions for which keep reports true.
func (s *Store) Filter(keep func(Transaction) bool) []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Transaction
	for _, t := range s.txs {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
