package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"txcopilot/internal/llm"
	"txcopilot/internal/logging"
	"txcopilot/internal/records"
)

// UnknownToolError reports a dispatch for a name the registry does not know.
// The orchestrator feeds it back to the model instead of aborting the
// resolution.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// Registry maps tool names to implementations over the record store.
type Registry struct {
	store    *records.Store
	glossary *Glossary
	log      *zap.Logger
}

// NewRegistry builds the registry. glossary may be nil.
func NewRegistry(store *records.Store, glossary *Glossary) *Registry {
	return &Registry{
		store:    store,
		glossary: glossary,
		log:      logging.L("tools"),
	}
}

// Dispatch runs the named tool with JSON-encoded args and returns a
// JSON-serializable result. Unknown names yield *UnknownToolError; malformed
// args yield a plain error. Both are recoverable from the caller's side.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.log.Debug("dispatching tool", zap.String("tool", name))

	switch name {
	case "filter_transactions":
		var fa FilterArgs
		if err := unmarshalArgs(args, &fa); err != nil {
			return nil, err
		}
		return FilterTransactions(r.store.Transactions(), fa), nil

	case "sum_amounts":
		var a struct {
			Items []TxRef `json:"items"`
		}
		if err := unmarshalArgs(args, &a); err != nil {
			return nil, err
		}
		return SumAmounts(a.Items), nil

	case "count_items":
		var a struct {
			Items []TxRef `json:"items"`
		}
		if err := unmarshalArgs(args, &a); err != nil {
			return nil, err
		}
		return CountItems(a.Items), nil

	case "get_transaction_by_id":
		var a struct {
			TxnID string `json:"txn_id"`
		}
		if err := unmarshalArgs(args, &a); err != nil {
			return nil, err
		}
		return GetTransactionByID(r.store.Transactions(), a.TxnID), nil

	case "explain_field":
		var a struct {
			FieldName string `json:"field_name"`
		}
		if err := unmarshalArgs(args, &a); err != nil {
			return nil, err
		}
		doc, ok := r.glossary.FieldDoc(a.FieldName)
		if !ok {
			return nil, nil
		}
		return map[string]string{"field": a.FieldName, "explanation": doc}, nil

	default:
		return nil, &UnknownToolError{Name: name}
	}
}

func unmarshalArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("tools: decode args: %w", err)
	}
	return nil
}

// Definitions returns the function-calling schemas advertised to the model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        "filter_transactions",
			Description: "Filter transactions by amount/type/status.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"min_amount":       map[string]any{"type": "number"},
					"max_amount":       map[string]any{"type": "number"},
					"transaction_type": map[string]any{"type": "string"},
					"merchant_name":    map[string]any{"type": "string"},
					"status":           map[string]any{"type": "string"},
				},
			},
		},
		{
			Name:        "sum_amounts",
			Description: "Sum the 'amount' field of items.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"items": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"transactionId": map[string]any{"type": "string"},
								"amount":        map[string]any{"type": "number"},
							},
							"required": []string{"transactionId", "amount"},
						},
					},
				},
				"required": []string{"items"},
			},
		},
		{
			Name:        "count_items",
			Description: "Count items in an array.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"items": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "object"},
					},
				},
				"required": []string{"items"},
			},
		},
		{
			Name:        "get_transaction_by_id",
			Description: "Get one transaction by ID.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"txn_id": map[string]any{"type": "string"},
				},
				"required": []string{"txn_id"},
			},
		},
		{
			Name:        "explain_field",
			Description: "Explain a domain field name using the business glossary.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"field_name": map[string]any{"type": "string"},
				},
				"required": []string{"field_name"},
			},
		},
	}
}
