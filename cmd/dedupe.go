package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kra-data/notice-cli/internal/dedupe"
)

var dedupeStrategy string

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Re-deduplicate the master database in place",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, "dedupe")
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.All(ctx)
		if err != nil {
			return err
		}

		name := dedupeStrategy
		if name == "" {
			name = cfg.Dedupe.Strategy
		}
		strategy := dedupe.ParseStrategy(name)
		out, removed := dedupe.Deduplicate(records, strategy)
		if removed == 0 {
			zap.L().Info("no duplicates found", zap.Int("records", len(records)))
			return nil
		}

		if err := st.Rewrite(ctx, out); err != nil {
			return err
		}
		zap.L().Info("master database deduplicated",
			zap.String("strategy", string(strategy)),
			zap.Int("before", len(records)),
			zap.Int("after", len(out)),
			zap.Int("removed", removed),
		)
		return nil
	},
}

func init() {
	dedupeCmd.Flags().StringVar(&dedupeStrategy, "strategy", "", "merge or drop (default from config)")
	rootCmd.AddCommand(dedupeCmd)
}
