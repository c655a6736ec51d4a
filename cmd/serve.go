package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kra-data/notice-cli/internal/extract"
	"github.com/kra-data/notice-cli/internal/model"
	"github.com/kra-data/notice-cli/internal/store"
	"github.com/kra-data/notice-cli/internal/textload"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, "api")
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		extractor := extract.New(model.SchemaFields(cfg.Extract.Schema))
		loader := textload.New(cfg.OCR)
		mux := newServeMux(extractor, loader, st)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newServeMux(extractor *extract.Extractor, loader *textload.Loader, st store.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := st.Stats(r.Context())
		if err != nil {
			zap.L().Error("stats failed", zap.Error(err))
			http.Error(w, `{"error":"stats unavailable"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	mux.HandleFunc("POST /extract", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text   string `json:"text"`
			Source string `json:"source"`
			Save   bool   `json:"save"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Text == "" {
			http.Error(w, `{"error":"text is required"}`, http.StatusBadRequest)
			return
		}

		rec := extractor.Extract(req.Text)
		rec.SourceLabel = req.Source

		resp := map[string]any{"record": rec}
		if req.Save {
			result, err := st.Append(r.Context(), []model.Record{rec})
			if err != nil {
				zap.L().Error("append failed", zap.Error(err))
				http.Error(w, `{"error":"save failed"}`, http.StatusInternalServerError)
				return
			}
			resp["append"] = result
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("POST /extract/file", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("document")
		if err != nil {
			http.Error(w, `{"error":"document file is required"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if !textload.Supported(header.Filename) {
			http.Error(w, `{"error":"unsupported file type"}`, http.StatusBadRequest)
			return
		}

		// The OCR tools work on paths, so spool the upload to disk first.
		tmp, err := os.CreateTemp("", "notice-upload-*"+filepath.Ext(header.Filename))
		if err != nil {
			http.Error(w, `{"error":"upload failed"}`, http.StatusInternalServerError)
			return
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()

		if _, err := io.Copy(tmp, file); err != nil {
			http.Error(w, `{"error":"upload failed"}`, http.StatusInternalServerError)
			return
		}

		text, method, err := loader.Load(r.Context(), tmp.Name())
		if err != nil {
			zap.L().Error("document load failed",
				zap.String("filename", header.Filename),
				zap.Error(err),
			)
			http.Error(w, `{"error":"could not read document"}`, http.StatusUnprocessableEntity)
			return
		}

		rec := extractor.Extract(text)
		rec.SourceLabel = header.Filename

		resp := map[string]any{"record": rec, "method": string(method)}
		if r.FormValue("save") == "true" {
			result, err := st.Append(r.Context(), []model.Record{rec})
			if err != nil {
				zap.L().Error("append failed", zap.Error(err))
				http.Error(w, `{"error":"save failed"}`, http.StatusInternalServerError)
				return
			}
			resp["append"] = result
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
