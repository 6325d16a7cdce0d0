package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shalix/document-engine/internal/config"
	"github.com/shalix/document-engine/internal/gcp"
	"github.com/shalix/document-engine/internal/services"
	"github.com/shalix/document-engine/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	cfg := config.Load()

	logFile, err := openLogFile(filepath.Join(cfg.LogDir, "app.log"))
	if err != nil {
		slog.Error("Failed to open log file, logging to stdout only", "error", err)
	}
	logOut := io.Writer(os.Stdout)
	if logFile != nil {
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(logOut, nil)))

	st, err := store.Open(cfg.DBFile)
	if err != nil {
		slog.Error("Critical error opening document store", "error", err)
		return 1
	}
	defer st.Close()
	slog.Info("Database ready.", "path", cfg.DBFile)

	bucket, err := gcp.NewBucket(ctx, cfg.BucketName)
	if err != nil {
		slog.Error("Critical error creating storage client", "error", err)
		return 1
	}
	defer bucket.Close()

	fsClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		slog.Error("Critical error creating firestore client", "error", err)
		return 1
	}
	defer fsClient.Close()
	catalog := gcp.NewDocumentCatalog(fsClient, cfg.CollectionName)

	pipeline := services.NewPipeline(cfg, st, bucket, catalog)
	if err := pipeline.Run(ctx); err != nil {
		if errors.Is(err, services.ErrMissingInputDir) {
			return 1
		}
		slog.Error("Batch run failed", "error", err)
		return 1
	}
	return 0
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
