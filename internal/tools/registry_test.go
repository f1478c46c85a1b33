package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txcopilot/internal/records"
)

func f64(v float64) *float64 { return &v }

func registryFixture() *Registry {
	store := records.NewStore([]records.Transaction{
		{TransactionID: "t1", TransactionType: "PURCHASE", TransactionStatus: "POSTED",
			Amount: f64(-60), TransactionDateTime: "2025-08-14T09:00:00Z", MerchantName: "Coffee Shop",
			DebitCreditIndicator: records.IndicatorDebit},
		{TransactionID: "t2", TransactionType: "PAYMENT", TransactionStatus: "POSTED",
			Amount: f64(150), TransactionDateTime: "2025-08-10T09:00:00Z",
			DebitCreditIndicator: records.IndicatorCredit},
		{TransactionID: "t3", TransactionType: "PURCHASE", TransactionStatus: "PENDING",
			Amount: f64(-12), TransactionDateTime: "2025-08-20T09:00:00Z"},
	}, nil)
	return NewRegistry(store, &Glossary{
		Fields: map[string]GlossaryField{
			"debitCreditIndicator": {Title: "Debit/Credit Indicator", Description: "-1 credit, 1 debit."},
		},
	})
}

func TestDispatchFilterTransactions(t *testing.T) {
	r := registryFixture()
	out, err := r.Dispatch(context.Background(), "filter_transactions",
		json.RawMessage(`{"transaction_type":"PURCHASE","status":"POSTED"}`))
	require.NoError(t, err)
	refs, ok := out.([]TxRef)
	require.True(t, ok)
	require.Len(t, refs, 1)
	assert.Equal(t, "t1", refs[0].TransactionID)
}

func TestDispatchSumAndCount(t *testing.T) {
	r := registryFixture()
	items := `{"items":[{"transactionId":"t1","amount":-60},{"transactionId":"t2","amount":150}]}`

	sum, err := r.Dispatch(context.Background(), "sum_amounts", json.RawMessage(items))
	require.NoError(t, err)
	assert.Equal(t, 90.0, sum)

	count, err := r.Dispatch(context.Background(), "count_items", json.RawMessage(items))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDispatchGetTransactionByID(t *testing.T) {
	r := registryFixture()
	out, err := r.Dispatch(context.Background(), "get_transaction_by_id",
		json.RawMessage(`{"txn_id":"t2"}`))
	require.NoError(t, err)
	ref, ok := out.(*TxRef)
	require.True(t, ok)
	require.NotNil(t, ref)
	assert.Equal(t, "PAYMENT", ref.Type)

	out, err = r.Dispatch(context.Background(), "get_transaction_by_id",
		json.RawMessage(`{"txn_id":"missing"}`))
	require.NoError(t, err)
	assert.Nil(t, out.(*TxRef))
}

func TestDispatchExplainField(t *testing.T) {
	r := registryFixture()
	out, err := r.Dispatch(context.Background(), "explain_field",
		json.RawMessage(`{"field_name":"debit credit indicator"}`))
	require.NoError(t, err)
	m, ok := out.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, m["explanation"], "Debit/Credit Indicator")
}

func TestDispatchUnknownTool(t *testing.T) {
	r := registryFixture()
	_, err := r.Dispatch(context.Background(), "open_the_vault", nil)
	var unknown *UnknownToolError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "open_the_vault", unknown.Name)
}

func TestDispatchBadArgs(t *testing.T) {
	r := registryFixture()
	_, err := r.Dispatch(context.Background(), "sum_amounts", json.RawMessage(`{"items": 5}`))
	require.Error(t, err)
	var unknown *UnknownToolError
	assert.False(t, errors.As(err, &unknown))
}

// A credit is strictly indicator == -1; a positive amount without the
// indicator must not count.
func TestCreditDefinitionIsIndicatorOnly(t *testing.T) {
	txs := []records.Transaction{
		{TransactionID: "c1", TransactionStatus: "POSTED", Amount: f64(40),
			DebitCreditIndicator: records.IndicatorCredit},
		{TransactionID: "p1", TransactionStatus: "POSTED", Amount: f64(500)}, // no indicator
		{TransactionID: "d1", TransactionStatus: "POSTED", Amount: f64(-25),
			DebitCreditIndicator: records.IndicatorDebit},
		{TransactionID: "c2", TransactionStatus: "PENDING", Amount: f64(10),
			DebitCreditIndicator: records.IndicatorCredit}, // not posted
	}
	assert.Equal(t, 40.0, SumCredits(txs, "", ""))
	assert.Equal(t, 25.0, SumDebits(txs, "", ""))
}

func TestSumPaymentsScopedByMonth(t *testing.T) {
	txs := []records.Transaction{
		{TransactionID: "p1", TransactionType: "PAYMENT", TransactionStatus: "POSTED",
			Amount: f64(100), TransactionDateTime: "2025-07-25T09:00:00Z"},
		{TransactionID: "p2", TransactionType: "PAYMENT", TransactionStatus: "POSTED",
			Amount: f64(50), TransactionDateTime: "2025-08-25T09:00:00Z"},
	}
	assert.Equal(t, 100.0, SumPayments(txs, "2025-07", ""))
	assert.Equal(t, 150.0, SumPayments(txs, "", "2025"))
}

func TestGlossaryMissingFileIsEmptyNotError(t *testing.T) {
	g, err := LoadGlossary("does/not/exist.yaml")
	require.NoError(t, err)
	_, ok := g.FieldDoc("anything")
	assert.False(t, ok)
}
