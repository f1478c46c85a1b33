package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessagesShapes(t *testing.T) {
	msgs := []Message{
		{Role: "user", Text: "question"},
		{Role: "model", ToolCalls: []ToolCall{{
			Name: "sum_amounts",
			Args: json.RawMessage(`{"items":[]}`),
		}}},
		{Role: "user", ToolResults: []ToolResult{
			{Name: "sum_amounts", Content: 12.5},
			{Name: "broken_tool", Error: "unknown tool: broken_tool"},
		}},
	}

	contents := encodeMessages(msgs)
	require.Len(t, contents, 3)

	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "question", contents[0].Parts[0].Text)

	require.Len(t, contents[1].Parts, 1)
	fc := contents[1].Parts[0].FunctionCall
	require.NotNil(t, fc)
	assert.Equal(t, "sum_amounts", fc.Name)

	require.Len(t, contents[2].Parts, 2)
	ok := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, ok)
	assert.Equal(t, map[string]any{"result": 12.5}, ok.Response)
	failed := contents[2].Parts[1].FunctionResponse
	require.NotNil(t, failed)
	assert.Equal(t, map[string]any{"error": "unknown tool: broken_tool"}, failed.Response)
}

func TestDecodeResponseText(t *testing.T) {
	var gr geminiResponse
	require.NoError(t, json.Unmarshal([]byte(`{
		"candidates":[{"content":{"role":"model","parts":[
			{"text":"part one "},{"text":"part two"}
		]}}]
	}`), &gr))

	res, err := decodeResponse(&gr)
	require.NoError(t, err)
	assert.Equal(t, "part one part two", res.Text)
	assert.False(t, res.HasToolCalls())
}

func TestDecodeResponseToolCalls(t *testing.T) {
	var gr geminiResponse
	require.NoError(t, json.Unmarshal([]byte(`{
		"candidates":[{"content":{"role":"model","parts":[
			{"functionCall":{"name":"get_transaction_by_id","args":{"txn_id":"t2"}}}
		]}}]
	}`), &gr))

	res, err := decodeResponse(&gr)
	require.NoError(t, err)
	require.True(t, res.HasToolCalls())
	assert.Equal(t, "get_transaction_by_id", res.ToolCalls[0].Name)

	var args map[string]string
	require.NoError(t, json.Unmarshal(res.ToolCalls[0].Args, &args))
	assert.Equal(t, "t2", args["txn_id"])
}

func TestDecodeResponseEmptyIsError(t *testing.T) {
	_, err := decodeResponse(&geminiResponse{})
	assert.Error(t, err)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(GeminiConfig{})
	assert.Error(t, err)

	c, err := NewGeminiClient(DefaultGeminiConfig("key"))
	require.NoError(t, err)
	assert.NotNil(t, c)
}
