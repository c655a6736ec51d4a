package main

import (
	"context"
	"io/fs"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kra-data/notice-cli/internal/extract"
	"github.com/kra-data/notice-cli/internal/model"
	"github.com/kra-data/notice-cli/internal/textload"
)

var (
	batchLimit       int
	batchSource      string
	batchDryRun      bool
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch <folder>",
	Short: "Extract every notice document in a folder into the master database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		paths, err := collectDocuments(args[0], batchLimit)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			zap.L().Info("no notice documents found", zap.String("folder", args[0]))
			return nil
		}

		concurrency := batchConcurrency
		if concurrency == 0 {
			concurrency = cfg.Batch.Concurrency
		}

		loader := textload.New(cfg.OCR)
		extractor := extract.New(model.SchemaFields(cfg.Extract.Schema))
		records, failed := processDocuments(ctx, paths, concurrency, batchSource, loader, extractor)

		if batchDryRun {
			zap.L().Info("dry run complete",
				zap.Int("extracted", len(records)),
				zap.Int("failed", failed),
			)
			return nil
		}

		st, err := openStore(ctx, batchSource)
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

		zap.L().Info("batch complete",
			zap.Int("documents", len(paths)),
			zap.Int("extracted", len(records)),
			zap.Int("failed", failed),
			zap.Int("total", result.Total),
			zap.Int("new", result.New),
			zap.Int("duplicates_removed", result.DuplicatesRemoved),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of documents to process (0 = all)")
	batchCmd.Flags().StringVar(&batchSource, "source", "batch", "source label stamped on extracted records")
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "extract without writing to the master database")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent document workers (default from config)")
	rootCmd.AddCommand(batchCmd)
}

// collectDocuments walks a folder and returns every supported document path.
func collectDocuments(folder string, limit int) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !textload.Supported(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "batch: walk %s", folder)
	}
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	return paths, nil
}

// processDocuments loads and extracts documents concurrently. Individual
// failures are logged and counted, never abort the batch.
func processDocuments(ctx context.Context, paths []string, concurrency int, source string, loader *textload.Loader, extractor *extract.Extractor) ([]model.Record, int) {
	if concurrency <= 0 {
		concurrency = 4
	}
	zap.L().Info("processing batch",
		zap.Int("documents", len(paths)),
		zap.Int("concurrency", concurrency),
	)

	var (
		mu      sync.Mutex
		records []model.Record
		failed  atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, path := range paths {
		g.Go(func() error {
			log := zap.L().With(zap.String("document", path))

			text, method, err := loader.Load(gctx, path)
			if err != nil {
				failed.Add(1)
				log.Error("document load failed", zap.Error(err))
				return nil
			}

			rec := extractor.Extract(text)
			rec.SourceLabel = source
			if rec.IsEmpty() {
				failed.Add(1)
				log.Warn("no fields extracted", zap.String("method", string(method)))
				return nil
			}

			log.Info("document extracted",
				zap.String("method", string(method)),
				zap.Int("fields_found", rec.FieldsFound(model.FieldNames)),
			)
			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return records, int(failed.Load())
}
