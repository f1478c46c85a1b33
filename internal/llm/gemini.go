package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"txcopilot/internal/logging"
)

// GeminiConfig configures the raw-HTTP Gemini client.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
	Temperature     float64
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-2.0-flash",
		Timeout:         2 * time.Minute,
		MaxOutputTokens: 8192,
		Temperature:     0.1,
	}
}

// GeminiClient implements Client against the generateContent REST endpoint.
type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	temperature     float64
	httpClient      *http.Client
	log             *zap.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

// NewGeminiClient creates a client from config.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 8192
	}
	return &GeminiClient{
		apiKey:          cfg.APIKey,
		baseURL:         cfg.BaseURL,
		model:           cfg.Model,
		maxOutputTokens: cfg.MaxOutputTokens,
		temperature:     cfg.Temperature,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		log:             logging.L("llm"),
	}, nil
}

// Generate sends one round of the conversation. Rate-limited to 10 req/s
// locally; 429s and transport errors retry with exponential backoff.
func (c *GeminiClient) Generate(ctx context.Context, system string, msgs []Message, tools []ToolDefinition) (*Response, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	c.mu.Lock()
	if elapsed := time.Since(c.lastRequest); elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	reqBody := geminiRequest{
		Contents: encodeMessages(msgs),
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: system}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
	if len(tools) > 0 {
		reqBody.Tools = []geminiTool{{FunctionDeclarations: encodeTools(tools)}}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	const maxRetries = 3
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("llm: marshal request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("llm: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("llm: request failed: %w", err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("llm: read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("llm: rate limit exceeded (429)")
			c.log.Warn("rate limited, backing off", zap.Int("attempt", i+1))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("llm: API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var gr geminiResponse
		if err := json.Unmarshal(body, &gr); err != nil {
			return nil, fmt.Errorf("llm: parse response: %w", err)
		}
		if gr.Error != nil {
			return nil, fmt.Errorf("llm: API error: %s", gr.Error.Message)
		}
		return decodeResponse(&gr)
	}
	return nil, fmt.Errorf("llm: max retries exceeded: %w", lastErr)
}

func encodeMessages(msgs []Message) []geminiContent {
	out := make([]geminiContent, 0, len(msgs))
	for _, m := range msgs {
		role := m.Role
		if role == "" {
			role = "user"
		}
		content := geminiContent{Role: role}
		if m.Text != "" {
			content.Parts = append(content.Parts, geminiPart{Text: m.Text})
		}
		for _, tc := range m.ToolCalls {
			args := map[string]any{}
			if len(tc.Args) > 0 {
				_ = json.Unmarshal(tc.Args, &args)
			}
			content.Parts = append(content.Parts, geminiPart{
				FunctionCall: &geminiFunctionCall{Name: tc.Name, Args: args},
			})
		}
		for _, tr := range m.ToolResults {
			payload := map[string]any{"result": tr.Content}
			if tr.Error != "" {
				payload = map[string]any{"error": tr.Error}
			}
			content.Parts = append(content.Parts, geminiPart{
				FunctionResponse: &geminiFunctionResponse{Name: tr.Name, Response: payload},
			})
		}
		out = append(out, content)
	}
	return out
}

func encodeTools(tools []ToolDefinition) []geminiFunctionDecl {
	out := make([]geminiFunctionDecl, 0, len(tools))
	for _, t := range tools {
		out = append(out, geminiFunctionDecl{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return out
}

func decodeResponse(gr *geminiResponse) (*Response, error) {
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("llm: no completion returned")
	}
	res := &Response{}
	var text strings.Builder
	for _, part := range gr.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				args = []byte("{}")
			}
			res.ToolCalls = append(res.ToolCalls, ToolCall{
				ID:   fmt.Sprintf("call_%d", len(res.ToolCalls)),
				Name: part.FunctionCall.Name,
				Args: args,
			})
			continue
		}
		text.WriteString(part.Text)
	}
	res.Text = strings.TrimSpace(text.String())
	return res, nil
}

// Wire types for the generateContent endpoint.

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
	Tools             []geminiTool           `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations,omitempty"`
}

type geminiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
