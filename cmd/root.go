package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kra-data/notice-cli/internal/config"
	"github.com/kra-data/notice-cli/internal/dedupe"
	"github.com/kra-data/notice-cli/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "notice-cli",
	Short: "KRA tax notice extraction and reconciliation",
	Long:  "Extracts structured fields from KRA tax notice documents, scores and deduplicates the records, and maintains the master notice database.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore opens the configured master database backend.
func openStore(ctx context.Context, source string) (store.Store, error) {
	return store.New(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		Path:        cfg.Store.Path,
		DatabaseURL: cfg.Store.DatabaseURL,
		SourceLabel: source,
		Strategy:    dedupe.ParseStrategy(cfg.Dedupe.Strategy),
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
