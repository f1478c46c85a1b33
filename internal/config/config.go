// Package config loads the application configuration: defaults first, then
// an optional YAML file, then environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"txcopilot/internal/embedding"
)

// Config is the full application configuration.
type Config struct {
	Data      DataConfig       `yaml:"data"`
	Engine    EngineConfig     `yaml:"engine"`
	LLM       LLMConfig        `yaml:"llm"`
	Embedding embedding.Config `yaml:"embedding"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// DataConfig locates the record and index files.
type DataConfig struct {
	TransactionsPath string `yaml:"transactions_path"`
	AccountsPath     string `yaml:"accounts_path"`
	GlossaryPath     string `yaml:"glossary_path"`
	IndexPath        string `yaml:"index_path"`
}

// EngineConfig bounds the resolution pipeline.
type EngineConfig struct {
	TopK           int `yaml:"top_k"`
	MaxRounds      int `yaml:"max_rounds"`
	MaxToolSteps   int `yaml:"max_tool_steps"`
	HistoryLimit   int `yaml:"history_limit"`
	MaxAccountRows int `yaml:"max_account_rows"`
}

// LLMConfig configures the generation service.
type LLMConfig struct {
	Provider       string `yaml:"provider"` // gemini, or empty to disable
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Verbose bool   `yaml:"verbose"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			TransactionsPath: "data/transactions.json",
			AccountsPath:     "data/accounts.json",
			GlossaryPath:     "data/domain_glossary.yaml",
			IndexPath:        "data/indexes.db",
		},
		Engine: EngineConfig{
			TopK:           12,
			MaxRounds:      6,
			MaxToolSteps:   4,
			HistoryLimit:   12,
			MaxAccountRows: 5,
		},
		LLM: LLMConfig{
			Provider:       "gemini",
			Model:          "gemini-2.0-flash",
			TimeoutSeconds: 120,
		},
		Embedding: embedding.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. path may be empty or point to a missing
// file; either way defaults plus env overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.Embedding.GenAIAPIKey == "" {
			c.Embedding.GenAIAPIKey = key
		}
	}
	if model := os.Getenv("CHAT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("LLM_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if path := os.Getenv("TX_DATA"); path != "" {
		c.Data.TransactionsPath = path
	}
	if path := os.Getenv("ACCT_DATA"); path != "" {
		c.Data.AccountsPath = path
	}
	if path := os.Getenv("INDEX_DB"); path != "" {
		c.Data.IndexPath = path
	}
	if provider := os.Getenv("EMBED_PROVIDER"); provider != "" {
		c.Embedding.Provider = provider
	}
	if model := os.Getenv("EMBED_MODEL"); model != "" {
		switch c.Embedding.Provider {
		case "genai":
			c.Embedding.GenAIModel = model
		default:
			c.Embedding.OllamaModel = model
		}
	}
	if k := os.Getenv("TOP_K"); k != "" {
		if n, err := strconv.Atoi(k); err == nil && n > 0 {
			c.Engine.TopK = n
		}
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}
