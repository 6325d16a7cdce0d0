package services

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shalix/document-engine/internal/models"
	"github.com/shalix/document-engine/internal/store"
)

// Mapper runs the per-page intake loop: extract text, classify, assign
// the in-group page index, copy the page to its final-naming artifact
// path and insert a PENDING record. Every per-page failure is caught
// here and becomes a FAILED record; the loop never aborts.
type Mapper struct {
	store     *store.Store
	seq       *Sequencer
	outputDir string

	// extractText is the PDF render seam; tests substitute it.
	extractText func(path string) (string, error)
}

func NewMapper(st *store.Store, outputDir string) *Mapper {
	return &Mapper{
		store:       st,
		seq:         NewSequencer(),
		outputDir:   outputDir,
		extractText: ExtractText,
	}
}

// Process maps every split page in source page order. The whole phase
// is one commit boundary.
func (m *Mapper) Process(pagePaths []string) error {
	slog.Info("Page mapping started.", "pageCount", len(pagePaths))

	if err := m.store.Begin(); err != nil {
		return err
	}
	for i, pagePath := range pagePaths {
		m.mapPage(i+1, pagePath)
	}
	if err := m.store.Commit(); err != nil {
		return err
	}

	slog.Info("Page mapping finished.")
	return nil
}

func (m *Mapper) mapPage(index int, pagePath string) {
	logCtx := slog.With("index", index, "page", pagePath)

	text, err := m.extractText(pagePath)
	if err != nil {
		logCtx.Error("Page mapping failed: unreadable page", "error", err)
		// No text means no delivery-note marker, so the discriminator's
		// default kind applies.
		m.insertFailed(logCtx, pagePath, models.KindInvoice, Fields{})
		return
	}

	kind, fields, missing := Classify(text)
	logCtx = logCtx.With("docKind", string(kind))
	if len(missing) > 0 {
		logCtx.Error("Page mapping failed: classification incomplete",
			"error", ErrClassificationIncomplete, "missing", missing, "docNumber", fields.DocNumber)
		fields.Amount = 0
		m.insertFailed(logCtx, pagePath, kind, fields)
		return
	}

	pageIndex := m.seq.Next(fields.DocNumber)
	artifactName := fmt.Sprintf("%s_%s_%s_%s_%d.pdf", kind, fields.DocNumber, fields.TaxID, fields.IssuedAt, pageIndex)
	artifactPath := filepath.Join(m.outputDir, artifactName)

	if err := copyFile(pagePath, artifactPath); err != nil {
		logCtx.Error("Page mapping failed: could not place artifact", "error", err)
		m.insertFailed(logCtx, pagePath, kind, fields)
		return
	}

	_, err = m.store.InsertPage(models.PageRecord{
		DocKind:      kind,
		Status:       models.StatusPending,
		DocNumber:    fields.DocNumber,
		ClientID:     fields.ClientID,
		TaxID:        fields.TaxID,
		IssuedAt:     fields.IssuedAt,
		PageIndex:    pageIndex,
		Amount:       fields.Amount,
		ArtifactPath: artifactPath,
	})
	if err != nil {
		logCtx.Error("Page mapping failed: could not insert record", "error", err)
		return
	}
	logCtx.Info("Page mapped.", "ok", true, "docNumber", fields.DocNumber, "artifact", artifactPath)
}

// insertFailed records a page that could not be fully processed with
// whatever fields were extracted, so operators can audit mis-parsed
// pages. The physical page is preserved in the output directory since
// the scratch directory is removed after grouping.
func (m *Mapper) insertFailed(logCtx *slog.Logger, pagePath string, kind models.DocKind, fields Fields) {
	artifactPath := filepath.Join(m.outputDir, "FAILED_"+filepath.Base(pagePath))
	if err := copyFile(pagePath, artifactPath); err != nil {
		logCtx.Error("Could not preserve failed page artifact", "error", err)
		artifactPath = pagePath
	}

	_, err := m.store.InsertPage(models.PageRecord{
		DocKind:      kind,
		Status:       models.StatusFailed,
		DocNumber:    fields.DocNumber,
		ClientID:     fields.ClientID,
		TaxID:        fields.TaxID,
		IssuedAt:     fields.IssuedAt,
		PageIndex:    0,
		Amount:       0,
		ArtifactPath: artifactPath,
	})
	if err != nil {
		logCtx.Error("Could not insert FAILED record", "error", err)
	}
}

func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", source, err)
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", source, target, err)
	}
	return out.Close()
}
