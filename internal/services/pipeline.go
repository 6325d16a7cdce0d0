package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shalix/document-engine/internal/config"
	"github.com/shalix/document-engine/internal/store"
)

// Pipeline sequences one batch run: workspace checks, split, page
// mapping, grouping, scratch cleanup, publish. It owns the store handle
// and the run-scoped sequencer for its duration.
type Pipeline struct {
	cfg     config.Config
	store   *store.Store
	objects ObjectStore
	catalog Catalog
}

func NewPipeline(cfg config.Config, st *store.Store, objects ObjectStore, catalog Catalog) *Pipeline {
	return &Pipeline{cfg: cfg, store: st, objects: objects, catalog: catalog}
}

// Run executes the batch. Only the missing-input-directory precondition
// is returned as an error; every other failure is recorded per record
// or per group and the run completes normally.
func (p *Pipeline) Run(ctx context.Context) error {
	slog.Info("Job started.")

	if err := p.checkWorkspace(); err != nil {
		return err
	}

	pages, err := NewSplitter(p.cfg.ScratchDir).Process(p.cfg.SourcePath)
	if err != nil {
		// No pages to map this run; the remaining phases still run so a
		// prior interrupted batch can resume from the store.
		slog.Error("Source could not be split, continuing with stored records only", "error", err)
	}

	if len(pages) > 0 {
		if err := NewMapper(p.store, p.cfg.OutputDir).Process(pages); err != nil {
			return err
		}
	}

	if err := NewMerger(p.store, p.cfg.OutputDir).Process(); err != nil {
		return err
	}

	if err := os.RemoveAll(p.cfg.ScratchDir); err != nil {
		slog.Error("Failed to remove scratch directory", "path", p.cfg.ScratchDir, "error", err)
	} else {
		slog.Info("Scratch directory removed.", "path", p.cfg.ScratchDir)
	}

	// Lets remote storage settle; an external-system accommodation, not
	// a correctness requirement.
	time.Sleep(p.cfg.PublishDelay)

	if err := NewPublisher(p.store, p.objects, p.catalog).Process(ctx); err != nil {
		return err
	}

	slog.Info("Job finished.")
	return nil
}

func (p *Pipeline) checkWorkspace() error {
	if _, err := os.Stat(p.cfg.InputDir); errors.Is(err, os.ErrNotExist) {
		slog.Error("[ABORTING PROCESS] Input folder REQUIRED. Create this folder and add the scanned documents.",
			"path", p.cfg.InputDir)
		return fmt.Errorf("%w: %s", ErrMissingInputDir, p.cfg.InputDir)
	}

	for _, dir := range []string{p.cfg.ScratchDir, p.cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create workspace directory %s: %w", dir, err)
		}
	}
	return nil
}
