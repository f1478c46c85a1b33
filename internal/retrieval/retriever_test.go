package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txcopilot/internal/records"
)

func testStore() *records.Store {
	return records.NewStore([]records.Transaction{
		{TransactionID: "t1", TransactionType: "PURCHASE", TransactionStatus: "POSTED",
			TransactionDateTime: "2025-08-01T09:00:00Z", Amount: f64(-30), MerchantName: "Grocery Mart"},
		{TransactionID: "t2", TransactionType: "PAYMENT", TransactionStatus: "POSTED",
			TransactionDateTime: "2025-08-10T09:00:00Z", Amount: f64(150)},
		{TransactionID: "t3", TransactionType: "PURCHASE", TransactionStatus: "PENDING",
			TransactionDateTime: "2025-08-20T09:00:00Z", Amount: f64(-12), MerchantName: "Coffee Shop"},
		{TransactionID: "t4", TransactionType: "PURCHASE", TransactionStatus: "POSTED",
			TransactionDateTime: "2025-08-15T09:00:00Z", Amount: f64(-45), EndingBalance: f64(900)},
	}, nil)
}

func TestLatestTransactionPinSkipsPending(t *testing.T) {
	r := New(testStore(), nil, nil)
	got := r.Retrieve(context.Background(), "what was my latest transaction?", 12)
	require.NotEmpty(t, got)
	// t3 is newer but PENDING; t4 is the newest POSTED row
	assert.Equal(t, "t4", got[0].ID)
	assert.Equal(t, ProvenancePinned, got[0].Provenance)
	assert.Equal(t, PinLatest, got[0].Pin)
}

func TestLatestTransactionPinIncludesPendingWhenAsked(t *testing.T) {
	r := New(testStore(), nil, nil)
	got := r.Retrieve(context.Background(), "latest transaction including pending ones", 12)
	require.NotEmpty(t, got)
	assert.Equal(t, "t3", got[0].ID)
}

func TestPinPriorityOrdering(t *testing.T) {
	r := New(testStore(), nil, nil)
	// query triggers latest + balance + payment pins at once
	got := r.Retrieve(context.Background(), "latest transaction, payment and balance please", 12)
	require.GreaterOrEqual(t, len(got), 2)

	assert.Equal(t, PinLatest, got[0].Pin)
	assert.Equal(t, "t4", got[0].ID)
	// payment pin outranks balance pin
	assert.Equal(t, PinPayment, got[1].Pin)
	assert.Equal(t, "t2", got[1].ID)
}

func TestPinDedupeKeepsStrongest(t *testing.T) {
	// latest POSTED row and latest balance row are the same record
	r := New(testStore(), nil, nil)
	got := r.Retrieve(context.Background(), "latest transaction balance", 12)

	seen := map[string]int{}
	for _, c := range got {
		seen[c.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "id %s appears %d times", id, n)
	}
	assert.Equal(t, PinLatest, got[0].Pin)
}

func TestKeywordFallbackWhenNoPins(t *testing.T) {
	r := New(testStore(), nil, nil)
	got := r.Retrieve(context.Background(), "coffee", 12)
	require.Len(t, got, 1)
	assert.Equal(t, "t3", got[0].ID)
	assert.Equal(t, ProvenanceKeyword, got[0].Provenance)
	assert.Greater(t, got[0].Score, 0.0)
}

func TestStorageOrderFallbackForNoSignalQuery(t *testing.T) {
	r := New(testStore(), nil, nil)
	got := r.Retrieve(context.Background(), "zzzzqqqq", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "t2", got[1].ID)
	assert.Equal(t, ProvenanceFallback, got[0].Provenance)
}

func TestRetrieveHonorsTopK(t *testing.T) {
	r := New(testStore(), nil, nil)
	got := r.Retrieve(context.Background(), "purchase", 2)
	assert.LessOrEqual(t, len(got), 2)
}

func TestMonthScopedPin(t *testing.T) {
	store := records.NewStore([]records.Transaction{
		{TransactionID: "july", TransactionType: "PURCHASE", TransactionStatus: "POSTED",
			TransactionDateTime: "2025-07-30T09:00:00Z"},
		{TransactionID: "aug", TransactionType: "PURCHASE", TransactionStatus: "POSTED",
			TransactionDateTime: "2025-08-02T09:00:00Z"},
	}, nil)
	r := New(store, nil, nil)
	got := r.Retrieve(context.Background(), "latest transaction in 2025-07", 12)
	require.NotEmpty(t, got)
	assert.Equal(t, "july", got[0].ID)
}

func TestRetrieveAccountsNewestFirst(t *testing.T) {
	store := records.NewStore(nil, []records.AccountSummary{
		{AccountID: "a1", LastUpdatedDate: "2025-01-01T00:00:00Z"},
		{AccountID: "a2", LastUpdatedDate: "2025-06-01T00:00:00Z"},
		{AccountID: "a2", LastUpdatedDate: "2025-03-01T00:00:00Z"}, // stale duplicate
	})
	r := New(store, nil, nil)
	got := r.RetrieveAccounts(context.Background(), "what is my balance", 12)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].AccountID)
	assert.Equal(t, "2025-06-01T00:00:00Z", got[0].LastUpdatedDate)
	assert.Equal(t, "a1", got[1].AccountID)
}

func TestLooksLikeAccountQuery(t *testing.T) {
	assert.True(t, LooksLikeAccountQuery("what is my credit limit?"))
	assert.True(t, LooksLikeAccountQuery("any past due amount?"))
	assert.False(t, LooksLikeAccountQuery("how much did I spend on coffee"))
}
