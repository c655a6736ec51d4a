package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kra-data/notice-cli/internal/store"
)

var importSource string

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Import records from a workbook into the master database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		records, err := store.ReadWorkbook(args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			zap.L().Info("nothing to import", zap.String("path", args[0]))
			return nil
		}

		// Imported records merge as new arrivals. Their ids come from the
		// target database, not the source workbook.
		for i := range records {
			records[i].RecordID = 0
			if importSource != "" {
				records[i].SourceLabel = importSource
			}
		}

		st, err := openStore(ctx, importSource)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}
		result, err := st.Append(ctx, records)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("path", args[0]),
			zap.Int("imported", len(records)),
			zap.Int("total", result.Total),
			zap.Int("new", result.New),
			zap.Int("duplicates_removed", result.DuplicatesRemoved),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSource, "source", "", "override the source label on imported records")
	rootCmd.AddCommand(importCmd)
}
