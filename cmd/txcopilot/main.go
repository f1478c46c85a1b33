package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"txcopilot/internal/config"
	"txcopilot/internal/logging"
)

var (
	cfgPath string
	verbose bool
	timeout time.Duration

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "txcopilot",
	Short: "txcopilot - grounded Q&A over transaction records",
	Long: `txcopilot answers natural-language questions about transaction and
account records. Deterministic rules handle the common money questions
directly; everything else goes through hybrid retrieval and a bounded,
tool-assisted generation loop whose numeric claims are re-verified against
the records before anything is returned.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
			cfg.Logging.Verbose = true
		}
		return logging.Init(cfg.Logging.Level, cfg.Logging.Verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "txcopilot.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to console")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "per-command timeout")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
