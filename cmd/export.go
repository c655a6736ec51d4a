package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kra-data/notice-cli/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Export the master database to a workbook file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, "export")
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.All(ctx)
		if err != nil {
			return err
		}
		if err := store.WriteWorkbook(args[0], records); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("path", args[0]),
			zap.Int("records", len(records)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
