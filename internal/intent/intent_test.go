package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txcopilot/internal/records"
)

func f64(v float64) *float64 { return &v }

func fixtureStore() *records.Store {
	return records.NewStore([]records.Transaction{
		{TransactionID: "t1", TransactionType: "INTEREST", Amount: f64(5.0),
			TransactionDateTime: "2025-07-03T10:00:00Z", AccountID: "a1"},
		{TransactionID: "t2", TransactionType: "INTEREST", Amount: f64(2.5),
			TransactionDateTime: "2025-08-11T10:00:00Z", AccountID: "a1"},
		{TransactionID: "t3", TransactionType: "PURCHASE", Amount: f64(-60.0),
			TransactionDateTime: "2025-08-14T09:00:00Z", AccountID: "a1"},
		{TransactionID: "t4", TransactionType: "PURCHASE", Amount: f64(-20.0),
			TransactionDateTime: "2025-08-20T09:00:00Z", AccountID: "a1"},
		{TransactionID: "t5", TransactionType: "PAYMENT", Amount: f64(100.0),
			TransactionDateTime: "2025-07-25T09:00:00Z", AccountID: "a1"},
	}, nil)
}

func TestInterestTotalForMonth(t *testing.T) {
	res := NewEngine().Resolve("What is the total interest in 2025-07?", fixtureStore())
	require.NotNil(t, res)
	assert.Equal(t, "5", res.Answer)
	assert.Equal(t, []string{"t1"}, res.Sources)
}

func TestInterestTotalUnscopedWhenMonthMissing(t *testing.T) {
	res := NewEngine().Resolve("total interest amount", fixtureStore())
	require.NotNil(t, res)
	assert.Equal(t, "7.5", res.Answer)
	assert.ElementsMatch(t, []string{"t1", "t2"}, res.Sources)
}

func TestPurchasesOverThresholdInMonth(t *testing.T) {
	res := NewEngine().Resolve("How many purchases over $50 in Aug 2025?", fixtureStore())
	require.NotNil(t, res)
	assert.Equal(t, "1", res.Answer)
	assert.Equal(t, []string{"t3"}, res.Sources)
}

func TestPurchasesInAMonthScopesToMostRecent(t *testing.T) {
	res := NewEngine().Resolve("how many purchases over $10 in a month", fixtureStore())
	require.NotNil(t, res)
	// most recent month present is 2025-08
	assert.Equal(t, "2", res.Answer)
}

func TestStatementLastTwoMonths(t *testing.T) {
	res := NewEngine().Resolve("statement summary for the last 2 months", fixtureStore())
	require.NotNil(t, res)

	buckets, _ := statementWindow(fixtureStore(), 2)
	require.Len(t, buckets, 2)
	assert.Equal(t, "2025-08", buckets[0].Month)
	assert.Equal(t, "2025-07", buckets[1].Month)
	for _, b := range buckets {
		assert.InDelta(t, b.Net, b.Inflow-b.Outflow, 1e-9,
			"inflow-outflow must equal net for %s", b.Month)
	}
}

func TestInterestLastNMonthsWindow(t *testing.T) {
	res := NewEngine().Resolve("how much interest in the last 2 months", fixtureStore())
	require.NotNil(t, res)
	// window anchored at 2025-08 covers both interest rows
	assert.Equal(t, "7.5", res.Answer)

	res1 := NewEngine().Resolve("how much interest in the last 1 months", fixtureStore())
	require.NotNil(t, res1)
	assert.Equal(t, "2.5", res1.Answer)
}

// Partition consistency: the per-month totals must sum to the unscoped total.
func TestInterestPartitionConsistency(t *testing.T) {
	store := fixtureStore()
	all, _ := sumInterest(store, "")
	july, _ := sumInterest(store, "2025-07")
	august, _ := sumInterest(store, "2025-08")
	assert.InDelta(t, all, july+august, 1e-9)
}

func TestDeterministicResolutionIsIdempotent(t *testing.T) {
	eng := NewEngine()
	store := fixtureStore()
	first := eng.Resolve("total interest in 2025-07", store)
	second := eng.Resolve("total interest in 2025-07", store)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first, second)
}

func TestEmptyStoreYieldsZeroNotError(t *testing.T) {
	empty := records.NewStore(nil, nil)
	eng := NewEngine()

	res := eng.Resolve("total interest in 2025-07", empty)
	require.NotNil(t, res)
	assert.Equal(t, "0", res.Answer)
	assert.Empty(t, res.Sources)

	res = eng.Resolve("purchases over $50", empty)
	require.NotNil(t, res)
	assert.Equal(t, "0", res.Answer)
}

func TestNoMatchReturnsNil(t *testing.T) {
	assert.Nil(t, NewEngine().Resolve("what was my latest transaction?", fixtureStore()))
	assert.Nil(t, NewEngine().Resolve("tell me about my balance", fixtureStore()))
}

func TestSourcesCappedAt25(t *testing.T) {
	var txs []records.Transaction
	for i := 0; i < 40; i++ {
		txs = append(txs, records.Transaction{
			TransactionID:       "t" + string(rune('a'+i%26)) + string(rune('0'+i/26)),
			TransactionType:     "INTEREST",
			Amount:              f64(1),
			TransactionDateTime: "2025-07-01T00:00:00Z",
		})
	}
	res := NewEngine().Resolve("total interest", records.NewStore(txs, nil))
	require.NotNil(t, res)
	assert.Len(t, res.Sources, 25)
}
