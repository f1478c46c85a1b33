package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"txcopilot/internal/embedding"
	"txcopilot/internal/engine"
	"txcopilot/internal/index"
	"txcopilot/internal/llm"
	"txcopilot/internal/logging"
	"txcopilot/internal/records"
	"txcopilot/internal/retrieval"
	"txcopilot/internal/tools"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question over the loaded records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		query := strings.Join(args, " ")
		requestID := uuid.NewString()
		log := logging.L("ask").With(zap.String("request_id", requestID))

		eng, cleanup, err := buildEngine(log)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := eng.Resolve(ctx, query, nil)
		if err != nil {
			return err
		}

		if askJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		fmt.Println(res.Answer)
		if res.Reasoning != "" {
			fmt.Println("Reasoning:", res.Reasoning)
		}
		if len(res.Sources) > 0 {
			fmt.Println("Sources:", strings.Join(res.Sources, ", "))
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full result as JSON")
}

// buildEngine assembles the pipeline from config. The vector index and the
// generation client are both optional: their absence degrades capability,
// never startup.
func buildEngine(log *zap.Logger) (*engine.Engine, func(), error) {
	txs, err := records.LoadTransactions(cfg.Data.TransactionsPath)
	if err != nil {
		return nil, nil, err
	}
	accounts, err := records.LoadAccounts(cfg.Data.AccountsPath)
	if err != nil {
		log.Debug("no account snapshots loaded", zap.Error(err))
		accounts = nil
	}
	store := records.NewStore(txs, accounts)
	log.Info("records loaded", zap.Int("transactions", store.Len()), zap.Int("accounts", len(accounts)))

	glossary, err := tools.LoadGlossary(cfg.Data.GlossaryPath)
	if err != nil {
		return nil, nil, err
	}
	registry := tools.NewRegistry(store, glossary)

	cleanup := func() {}
	var indexes *index.Manager
	if _, err := os.Stat(cfg.Data.IndexPath); err == nil {
		indexes, err = index.NewManager(cfg.Data.IndexPath)
		if err != nil {
			log.Warn("index unavailable, continuing without vector search", zap.Error(err))
		} else {
			cleanup = func() { _ = indexes.Close() }
		}
	}

	var embedder embedding.Engine
	if indexes != nil {
		embedder, err = embedding.NewEngine(cfg.Embedding)
		if err != nil {
			log.Warn("embedding engine unavailable, continuing without vector search", zap.Error(err))
			embedder = nil
		}
	}

	retriever := retrieval.New(store, indexes, embedder)

	var client llm.Client
	if cfg.LLM.Provider == "gemini" && cfg.LLM.APIKey != "" {
		gc := llm.DefaultGeminiConfig(cfg.LLM.APIKey)
		if cfg.LLM.Model != "" {
			gc.Model = cfg.LLM.Model
		}
		if cfg.LLM.BaseURL != "" {
			gc.BaseURL = cfg.LLM.BaseURL
		}
		client, err = llm.NewGeminiClient(gc)
		if err != nil {
			return nil, nil, err
		}
	} else {
		log.Info("no generation service configured, deterministic answers only")
	}

	eng := engine.New(store, retriever, registry, client, engine.Config{
		TopK:           cfg.Engine.TopK,
		MaxRounds:      cfg.Engine.MaxRounds,
		MaxToolSteps:   cfg.Engine.MaxToolSteps,
		HistoryLimit:   cfg.Engine.HistoryLimit,
		MaxAccountRows: cfg.Engine.MaxAccountRows,
	})
	return eng, cleanup, nil
}
