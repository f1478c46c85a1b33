package llm

import "context"

// Client is the generation service boundary. Generate sends the full
// conversation each round; the orchestrator owns history, tool dispatch and
// loop bounds.
type Client interface {
	Generate(ctx context.Context, system string, msgs []Message, tools []ToolDefinition) (*Response, error)
}
