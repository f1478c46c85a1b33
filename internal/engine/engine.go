package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"txcopilot/internal/intent"
	"txcopilot/internal/llm"
	"txcopilot/internal/logging"
	"txcopilot/internal/records"
	"txcopilot/internal/retrieval"
	"txcopilot/internal/tools"
	"txcopilot/internal/verification"
)

// Config bounds a single resolution.
type Config struct {
	// TopK caps the evidence set handed to the generator.
	TopK int
	// MaxRounds caps generate calls per resolution.
	MaxRounds int
	// MaxToolSteps caps individual tool executions across all rounds.
	MaxToolSteps int
	// HistoryLimit trims prior turns sent to the model.
	HistoryLimit int
	// MaxAccountRows caps account snapshots appended to the prompt.
	MaxAccountRows int
}

// DefaultConfig returns the standard resolution bounds.
func DefaultConfig() Config {
	return Config{
		TopK:           12,
		MaxRounds:      6,
		MaxToolSteps:   4,
		HistoryLimit:   12,
		MaxAccountRows: 5,
	}
}

// Engine resolves queries end to end. A nil client disables generation; the
// deterministic path and retrieval still work.
type Engine struct {
	store     *records.Store
	intents   *intent.Engine
	retriever *retrieval.Retriever
	registry  *tools.Registry
	client    llm.Client
	verifier  *verification.Verifier
	cfg       Config
	log       *zap.Logger
}

// New wires the pipeline together.
func New(store *records.Store, retriever *retrieval.Retriever, registry *tools.Registry, client llm.Client, cfg Config) *Engine {
	if cfg.TopK <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		store:     store,
		intents:   intent.NewEngine(),
		retriever: retriever,
		registry:  registry,
		client:    client,
		verifier:  verification.New(store),
		cfg:       cfg,
		log:       logging.L("engine"),
	}
}

// Resolve answers one query. It returns an error only for fatal conditions;
// service failures, malformed output and loop exhaustion all degrade to a
// well-formed Result.
func (e *Engine) Resolve(ctx context.Context, query string, history []llm.Turn) (*Result, error) {
	if det := e.intents.Resolve(query, e.store); det != nil {
		e.log.Debug("resolved deterministically", zap.String("query", query))
		return det, nil
	}

	evidence := e.retriever.Retrieve(ctx, query, e.cfg.TopK)

	var accountRows []string
	if retrieval.LooksLikeAccountQuery(query) {
		for _, a := range e.retriever.RetrieveAccounts(ctx, query, e.cfg.MaxAccountRows) {
			accountRows = append(accountRows, retrieval.PackAccount(a))
		}
	}

	if e.client == nil {
		return &Result{
			Answer:    "LLM disabled",
			Reasoning: "",
			Sources:   evidenceIDs(evidence),
		}, nil
	}

	res := e.orchestrate(ctx, query, history, evidence, accountRows)
	return res, nil
}

// loopState is the orchestrator's explicit position in the tool loop.
type loopState int

const (
	stateBuildRequest loopState = iota
	stateAwaitResponse
	stateDispatchTools
	stateDone
	stateLoopExceeded
)

// orchestrate runs the bounded generate/dispatch loop. Transitions:
// BUILD_REQUEST -> AWAIT_RESPONSE -> (DISPATCH_TOOLS -> AWAIT_RESPONSE)* ->
// DONE | LOOP_EXCEEDED.
func (e *Engine) orchestrate(ctx context.Context, query string, history []llm.Turn, evidence []retrieval.Candidate, accountRows []string) *Result {
	defs := e.registry.Definitions()

	var msgs []llm.Message
	var resp *llm.Response
	rounds, toolSteps := 0, 0

	state := stateBuildRequest
	for {
		switch state {
		case stateBuildRequest:
			msgs = e.buildConversation(query, history, evidence, accountRows)
			state = stateAwaitResponse

		case stateAwaitResponse:
			if rounds >= e.cfg.MaxRounds {
				state = stateLoopExceeded
				continue
			}
			rounds++
			var err error
			resp, err = e.client.Generate(ctx, systemPrompt, msgs, defs)
			if err != nil {
				e.log.Warn("generation service failure, degrading",
					zap.Error(fmt.Errorf("%w: %v", ErrGenerationService, err)))
				return e.degraded(query, evidence, "Generation service unavailable")
			}
			if resp.HasToolCalls() {
				state = stateDispatchTools
				continue
			}
			state = stateDone

		case stateDispatchTools:
			if toolSteps >= e.cfg.MaxToolSteps {
				state = stateLoopExceeded
				continue
			}
			msgs = append(msgs, llm.Message{Role: "model", ToolCalls: resp.ToolCalls})

			var results []llm.ToolResult
			exceeded := false
			for _, tc := range resp.ToolCalls {
				if toolSteps >= e.cfg.MaxToolSteps {
					exceeded = true
					break
				}
				toolSteps++
				results = append(results, e.dispatch(ctx, tc))
			}
			msgs = append(msgs, llm.Message{Role: "user", ToolResults: results})
			if exceeded {
				state = stateLoopExceeded
				continue
			}
			state = stateAwaitResponse

		case stateDone:
			res, declared, ok := parseResult(resp.Text)
			if !ok {
				e.log.Warn("model output was not strict JSON, wrapping raw text",
					zap.Error(ErrMalformedResponse))
				return &Result{
					Answer:    resp.Text,
					Reasoning: "Model response was not valid JSON.",
					Sources:   evidenceIDs(evidence),
				}
			}
			e.verifier.Check(res, declared)
			return res

		case stateLoopExceeded:
			e.log.Warn("tool loop limit reached", zap.Int("rounds", rounds), zap.Int("tool_steps", toolSteps))
			return e.degraded(query, evidence, "Tool loop limit reached")
		}
	}
}

// dispatch runs one tool call. Failures become error payloads the model can
// read; an unknown tool is reported by name so the model can correct itself.
func (e *Engine) dispatch(ctx context.Context, tc llm.ToolCall) llm.ToolResult {
	out, err := e.registry.Dispatch(ctx, tc.Name, tc.Args)
	if err != nil {
		var unknown *tools.UnknownToolError
		if errors.As(err, &unknown) {
			e.log.Warn("model requested unknown tool", zap.String("tool", unknown.Name))
		}
		return llm.ToolResult{ID: tc.ID, Name: tc.Name, Error: err.Error()}
	}
	return llm.ToolResult{ID: tc.ID, Name: tc.Name, Content: out}
}

// degraded re-runs the deterministic engine once, then falls back to the
// refusal sentence over the collected evidence.
func (e *Engine) degraded(query string, evidence []retrieval.Candidate, reason string) *Result {
	if det := e.intents.Resolve(query, e.store); det != nil {
		return det
	}
	return &Result{
		Answer:    RefusalAnswer,
		Reasoning: reason,
		Sources:   evidenceIDs(evidence),
	}
}

func (e *Engine) buildConversation(query string, history []llm.Turn, evidence []retrieval.Candidate, accountRows []string) []llm.Message {
	trimmed := history
	if len(trimmed) > e.cfg.HistoryLimit {
		trimmed = trimmed[len(trimmed)-e.cfg.HistoryLimit:]
	}

	msgs := make([]llm.Message, 0, len(trimmed)+1)
	for _, t := range trimmed {
		role := "user"
		if t.Role == "assistant" || t.Role == "model" {
			role = "model"
		}
		msgs = append(msgs, llm.Message{Role: role, Text: t.Content})
	}
	msgs = append(msgs, llm.Message{
		Role: "user",
		Text: renderUserPrompt(query, evidence, accountRows),
	})
	return msgs
}

func evidenceIDs(evidence []retrieval.Candidate) []string {
	ids := make([]string, 0, len(evidence))
	for _, c := range evidence {
		if c.ID != "" {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
