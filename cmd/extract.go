package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kra-data/notice-cli/internal/extract"
	"github.com/kra-data/notice-cli/internal/model"
	"github.com/kra-data/notice-cli/internal/textload"
)

var (
	extractText   string
	extractSave   bool
	extractSource string
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract notice fields from a document or raw text",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		text := extractText
		source := extractSource
		if len(args) == 1 {
			loader := textload.New(cfg.OCR)
			loaded, method, err := loader.Load(ctx, args[0])
			if err != nil {
				return err
			}
			text = loaded
			if source == "" {
				source = args[0]
			}
			zap.L().Debug("document loaded",
				zap.String("path", args[0]),
				zap.String("method", string(method)),
			)
		} else if text == "" {
			return eris.New("extract: provide a file argument or --text")
		}

		extractor := extract.New(model.SchemaFields(cfg.Extract.Schema))
		rec := extractor.Extract(text)
		rec.SourceLabel = source

		zap.L().Info("extraction complete",
			zap.Int("fields_found", rec.FieldsFound(model.SchemaFields(cfg.Extract.Schema))),
		)

		if extractSave {
			st, err := openStore(ctx, source)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(ctx); err != nil {
				return err
			}
			result, err := st.Append(ctx, []model.Record{rec})
			if err != nil {
				return err
			}
			zap.L().Info("record saved",
				zap.Int("total", result.Total),
				zap.Int("new", result.New),
				zap.Int("duplicates_removed", result.DuplicatesRemoved),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(rec), "extract: encode record")
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractText, "text", "", "extract from raw text instead of a file")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "append the record to the master database")
	extractCmd.Flags().StringVar(&extractSource, "source", "", "source label stamped on the record")
	rootCmd.AddCommand(extractCmd)
}
