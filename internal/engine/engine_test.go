package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"txcopilot/internal/llm"
	"txcopilot/internal/records"
	"txcopilot/internal/retrieval"
	"txcopilot/internal/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func f64(v float64) *float64 { return &v }

// fakeClient replays scripted responses and records every conversation it
// was sent.
type fakeClient struct {
	responses []*llm.Response
	err       error
	calls     int
	seen      [][]llm.Message
}

func (f *fakeClient) Generate(ctx context.Context, system string, msgs []llm.Message, defs []llm.ToolDefinition) (*llm.Response, error) {
	f.calls++
	cp := make([]llm.Message, len(msgs))
	copy(cp, msgs)
	f.seen = append(f.seen, cp)
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func testEngine(client llm.Client) (*Engine, *records.Store) {
	store := records.NewStore([]records.Transaction{
		{TransactionID: "t1", TransactionType: "INTEREST", Amount: f64(5),
			TransactionDateTime: "2025-07-03T10:00:00Z", TransactionStatus: "POSTED"},
		{TransactionID: "t2", TransactionType: "PURCHASE", Amount: f64(-60),
			TransactionDateTime: "2025-08-14T09:00:00Z", TransactionStatus: "POSTED",
			MerchantName: "Coffee Shop"},
		{TransactionID: "t3", TransactionType: "PAYMENT", Amount: f64(100),
			TransactionDateTime: "2025-08-20T09:00:00Z", TransactionStatus: "POSTED"},
	}, nil)
	retriever := retrieval.New(store, nil, nil)
	registry := tools.NewRegistry(store, nil)
	return New(store, retriever, registry, client, DefaultConfig()), store
}

func TestDeterministicIntentSkipsGeneration(t *testing.T) {
	fake := &fakeClient{}
	eng, _ := testEngine(fake)

	res, err := eng.Resolve(context.Background(), "total interest in 2025-07", nil)
	require.NoError(t, err)
	assert.Equal(t, "5", res.Answer)
	assert.Equal(t, []string{"t1"}, res.Sources)
	assert.Equal(t, 0, fake.calls, "deterministic path must not call the model")
}

func TestDirectJSONAnswer(t *testing.T) {
	fake := &fakeClient{responses: []*llm.Response{
		{Text: `{"answer":"You spent 60.00 at Coffee Shop.","reasoning":"one matching row","sources":["t2"]}`},
	}}
	eng, _ := testEngine(fake)

	res, err := eng.Resolve(context.Background(), "how much did I spend on coffee?", nil)
	require.NoError(t, err)
	assert.Equal(t, "You spent 60.00 at Coffee Shop.", res.Answer)
	assert.Equal(t, []string{"t2"}, res.Sources)
	assert.Equal(t, 1, fake.calls)
}

func TestJSONExtractedFromFencedOutput(t *testing.T) {
	fake := &fakeClient{responses: []*llm.Response{
		{Text: "Here you go:\n```json\n{\"answer\":\"ok\",\"reasoning\":\"\",\"sources\":[]}\n```"},
	}}
	eng, _ := testEngine(fake)

	res, err := eng.Resolve(context.Background(), "anything about my coffee spending", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Answer)
}

func TestVerifierCorrectsDeclaredTotal(t *testing.T) {
	fake := &fakeClient{responses: []*llm.Response{
		{Text: `{"answer":"Total is 105.00","reasoning":"","sources":["t1","t3"],"sum_guess":105.0}`},
	}}
	eng, _ := testEngine(fake)

	res, err := eng.Resolve(context.Background(), "what came in besides coffee?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Total is 105.00", res.Answer, "5 + 100 actually matches the claim")
}

func TestVerifierAppendsCorrectionOnMismatch(t *testing.T) {
	fake := &fakeClient{responses: []*llm.Response{
		{Text: `{"answer":"Total is 90.00","reasoning":"","sources":["t1","t3"],"sum_guess":90.0}`},
	}}
	eng, _ := testEngine(fake)

	res, err := eng.Resolve(context.Background(), "what came in besides coffee, roughly?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Total is 90.00 (Verified total: 105.00)", res.Answer)
}

func TestToolRoundTrip(t *testing.T) {
	fake := &fakeClient{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{
			ID:   "call_0",
			Name: "get_transaction_by_id",
			Args: json.RawMessage(`{"txn_id":"t2"}`),
		}}},
		{Text: `{"answer":"t2 was -60 at Coffee Shop","reasoning":"looked it up","sources":["t2"]}`},
	}}
	eng, _ := testEngine(fake)

	res, err := eng.Resolve(context.Background(), "details of transaction t2 please", nil)
	require.NoError(t, err)
	assert.Equal(t, "t2 was -60 at Coffee Shop", res.Answer)
	require.Equal(t, 2, fake.calls)

	// round two must carry the tool call echo and its result
	second := fake.seen[1]
	require.GreaterOrEqual(t, len(second), 3)
	echo := second[len(second)-2]
	result := second[len(second)-1]
	assert.Equal(t, "model", echo.Role)
	require.Len(t, echo.ToolCalls, 1)
	require.Len(t, result.ToolResults, 1)
	assert.Equal(t, "get_transaction_by_id", result.ToolResults[0].Name)
	assert.Empty(t, result.ToolResults[0].Error)
}

func TestUnknownToolFedBackAsError(t *testing.T) {
	fake := &fakeClient{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call_0", Name: "open_the_vault"}}},
		{Text: `{"answer":"cannot do that","reasoning":"","sources":[]}`},
	}}
	eng, _ := testEngine(fake)

	res, err := eng.Resolve(context.Background(), "open the vault for my coffee records", nil)
	require.NoError(t, err)
	assert.Equal(t, "cannot do that", res.Answer)

	result := fake.seen[1][len(fake.seen[1])-1]
	require.Len(t, result.ToolResults, 1)
	assert.Contains(t, result.ToolResults[0].Error, "unknown tool")
}

func TestMalformedResponseWrapsRawText(t *testing.T) {
	fake := &fakeClient{responses: []*llm.Response{
		{Text: "I think the answer is probably forty-two."},
	}}
	eng, _ := testEngine(fake)

	res, err := eng.Resolve(context.Background(), "tell me something about coffee", nil)
	require.NoError(t, err)
	assert.Equal(t, "I think the answer is probably forty-two.", res.Answer)
	assert.NotEmpty(t, res.Sources, "evidence ids are kept on the degraded path")
}

func TestToolLoopExceededReturnsRefusal(t *testing.T) {
	// the model never stops asking for tools
	fake := &fakeClient{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call_0", Name: "count_items", Args: json.RawMessage(`{"items":[]}`)}}},
	}}
	eng, _ := testEngine(fake)

	res, err := eng.Resolve(context.Background(), "something about my coffee spending", nil)
	require.NoError(t, err)
	assert.Equal(t, RefusalAnswer, res.Answer)
	assert.Equal(t, "Tool loop limit reached", res.Reasoning)
	// 4 tool steps allowed, one per round
	assert.LessOrEqual(t, fake.calls, 5)
}

func TestGenerationFailureDegradesToRefusal(t *testing.T) {
	fake := &fakeClient{err: errors.New("boom")}
	eng, _ := testEngine(fake)

	res, err := eng.Resolve(context.Background(), "anything unusual about coffee?", nil)
	require.NoError(t, err, "service failure must not propagate")
	assert.Equal(t, RefusalAnswer, res.Answer)
	assert.NotEmpty(t, res.Sources)
}

func TestGenerationFailureRetriesIntent(t *testing.T) {
	// not matched on the way in (phrasing), but matched by the retry after
	// the service fails: impossible by construction, so instead verify the
	// nil-client path stays deterministic-capable.
	eng, _ := testEngine(nil)
	res, err := eng.Resolve(context.Background(), "total interest in 2025-07", nil)
	require.NoError(t, err)
	assert.Equal(t, "5", res.Answer)
}

func TestNilClientReturnsEvidenceOnly(t *testing.T) {
	eng, _ := testEngine(nil)
	res, err := eng.Resolve(context.Background(), "what did I buy at the coffee shop?", nil)
	require.NoError(t, err)
	assert.Equal(t, "LLM disabled", res.Answer)
	assert.NotEmpty(t, res.Sources)
}

func TestHistoryTrimmedToLimit(t *testing.T) {
	fake := &fakeClient{responses: []*llm.Response{
		{Text: `{"answer":"ok","reasoning":"","sources":[]}`},
	}}
	eng, _ := testEngine(fake)

	var history []llm.Turn
	for i := 0; i < 30; i++ {
		history = append(history, llm.Turn{Role: "user", Content: "older turn"})
	}
	_, err := eng.Resolve(context.Background(), "a coffee question", history)
	require.NoError(t, err)

	first := fake.seen[0]
	// 12 trimmed history turns + 1 evidence prompt
	assert.Len(t, first, 13)
}
