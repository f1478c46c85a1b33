// Package llm defines the boundary to the generation service: the message
// shapes the orchestrator exchanges with it and a Gemini implementation over
// raw HTTP.
package llm

import "encoding/json"

// ToolDefinition advertises one callable function to the model. Parameters
// is a JSON-schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolResult carries one tool's output back to the model. Content must be
// JSON-serializable; Error is set instead when the call failed.
type ToolResult struct {
	ID      string
	Name    string
	Content any
	Error   string
}

// Turn is one prior user or assistant exchange, used for history trimming.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message is one element of the running conversation sent to the model.
// Exactly one of the payload groups is populated: Text for plain turns,
// ToolCalls echoing a model request, ToolResults answering it.
type Message struct {
	Role        string // "user" or "model"
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Response is what the model produced in one round: either text or a batch
// of tool calls to dispatch.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// HasToolCalls reports whether the model asked for tool execution.
func (r *Response) HasToolCalls() bool { return r != nil && len(r.ToolCalls) > 0 }
