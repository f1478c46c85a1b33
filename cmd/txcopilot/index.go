package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"txcopilot/internal/embedding"
	"txcopilot/internal/index"
	"txcopilot/internal/logging"
	"txcopilot/internal/records"
	"txcopilot/internal/retrieval"
)

const embedBatchSize = 32

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector indexes from the loaded records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		log := logging.L("index-build")

		txs, err := records.LoadTransactions(cfg.Data.TransactionsPath)
		if err != nil {
			return err
		}
		accounts, err := records.LoadAccounts(cfg.Data.AccountsPath)
		if err != nil {
			log.Debug("no account snapshots to index", zap.Error(err))
			accounts = nil
		}

		embedder, err := embedding.NewEngine(cfg.Embedding)
		if err != nil {
			return err
		}

		manager, err := index.NewManager(cfg.Data.IndexPath)
		if err != nil {
			return err
		}
		defer manager.Close()

		txRows := make([]index.Row, 0, len(txs))
		for _, t := range txs {
			if t.ID() == "" {
				continue
			}
			txRows = append(txRows, index.Row{ID: t.ID(), Text: retrieval.PackTransaction(t)})
		}
		if len(txRows) == 0 {
			return fmt.Errorf("no transaction rows with ids to index")
		}
		if err := embedRows(ctx, embedder, txRows); err != nil {
			return err
		}
		if err := manager.Build(ctx, retrieval.TxIndexName, txRows); err != nil {
			return err
		}
		fmt.Printf("indexed %d transactions\n", len(txRows))

		if len(accounts) > 0 {
			acctRows := make([]index.Row, 0, len(accounts))
			for _, a := range accounts {
				if a.AccountID == "" {
					continue
				}
				acctRows = append(acctRows, index.Row{ID: a.AccountID, Text: retrieval.PackAccount(a)})
			}
			if len(acctRows) > 0 {
				if err := embedRows(ctx, embedder, acctRows); err != nil {
					return err
				}
				if err := manager.Build(ctx, retrieval.AcctIndexName, acctRows); err != nil {
					return err
				}
				fmt.Printf("indexed %d account snapshots\n", len(acctRows))
			}
		}
		return nil
	},
}

// embedRows fills in the Embedding field of every row, batching requests and
// running up to four batches concurrently.
func embedRows(ctx context.Context, embedder embedding.Engine, rows []index.Row) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(rows); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, r := range batch {
				texts[i] = r.Text
			}
			vecs, err := embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embed batch: got %d vectors for %d texts", len(vecs), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = embedding.Normalize(vecs[i])
			}
			return nil
		})
	}
	return g.Wait()
}
