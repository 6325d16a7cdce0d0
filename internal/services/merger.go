package services

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/shalix/document-engine/internal/models"
	"github.com/shalix/document-engine/internal/store"
)

// Merger groups PENDING page records by business key and consolidates
// each multi-page group into a single output artifact. Size-1 groups
// move straight to READY; members of merged groups move to MERGED and a
// new READY record is inserted for the consolidated artifact.
type Merger struct {
	store     *store.Store
	outputDir string

	// PDF seams; tests substitute both.
	mergeFirstPages func(memberPaths []string, outPath string) error
	pageCount       func(path string) (int, error)
}

func NewMerger(st *store.Store, outputDir string) *Merger {
	return &Merger{
		store:           st,
		outputDir:       outputDir,
		mergeFirstPages: mergeFirstPagePDFs,
		pageCount:       api.PageCountFile,
	}
}

// Process consolidates every PENDING group. A consolidation failure
// leaves that group's records PENDING for a later run and never stops
// the remaining groups. The whole phase is one commit boundary.
func (m *Merger) Process() error {
	groups, err := m.store.FindGroupsByStatus(models.StatusPending)
	if err != nil {
		return err
	}
	slog.Info("Grouping started.", "groupCount", len(groups))

	if err := m.store.Begin(); err != nil {
		return err
	}
	for _, group := range groups {
		if len(group.Records) == 1 {
			m.markReady(group)
			continue
		}
		if err := m.mergeGroup(group); err != nil {
			slog.Error("Consolidation failed, group left PENDING for retry",
				"docNumber", group.DocNumber, "error", err)
		}
	}
	if err := m.store.Commit(); err != nil {
		return err
	}

	slog.Info("Grouping finished.")
	return nil
}

func (m *Merger) markReady(group store.Group) {
	rec := group.Records[0]
	if _, err := m.store.UpdateStatusWhere(rec.DocNumber, rec.ClientID, rec.DocKind,
		models.StatusPending, models.StatusReady); err != nil {
		slog.Error("Failed to mark single-page group READY", "docNumber", rec.DocNumber, "error", err)
		return
	}
	slog.Info("Group ready.", "ok", true, "docNumber", rec.DocNumber, "amount", rec.Amount)
}

func (m *Merger) mergeGroup(group store.Group) error {
	// Members arrive ordered by amount DESC, so the representative
	// total is the first non-zero amount encountered.
	first := group.Records[0]
	amount := 0.0
	memberPaths := make([]string, 0, len(group.Records))
	for _, rec := range group.Records {
		if amount == 0 && rec.Amount > 0 {
			amount = rec.Amount
		}
		memberPaths = append(memberPaths, rec.ArtifactPath)

		// Each member is expected to contribute exactly one page; a
		// multi-page member would lose pages in the merge.
		if n, err := m.pageCount(rec.ArtifactPath); err == nil && n > 1 {
			slog.Warn("Anomaly: multi-page group member, only its first page is merged",
				"docNumber", rec.DocNumber, "artifact", rec.ArtifactPath, "pages", n)
		}
	}

	mergedName := fmt.Sprintf("%s_%s_%s_%s_all.pdf", first.DocKind, first.DocNumber, first.TaxID, first.IssuedAt)
	mergedPath := filepath.Join(m.outputDir, mergedName)

	slog.Info("Merging group.", "docNumber", first.DocNumber, "members", len(group.Records))
	if err := m.mergeFirstPages(memberPaths, mergedPath); err != nil {
		return fmt.Errorf("failed to build consolidated artifact %s: %w", mergedPath, err)
	}

	_, err := m.store.InsertPage(models.PageRecord{
		DocKind:      first.DocKind,
		Status:       models.StatusReady,
		DocNumber:    first.DocNumber,
		ClientID:     first.ClientID,
		TaxID:        first.TaxID,
		IssuedAt:     first.IssuedAt,
		PageIndex:    1,
		Amount:       amount,
		ArtifactPath: mergedPath,
	})
	if err != nil {
		return err
	}
	if _, err := m.store.UpdateStatusWhere(first.DocNumber, first.ClientID, first.DocKind,
		models.StatusPending, models.StatusMerged); err != nil {
		return err
	}

	slog.Info("Group merged.", "ok", true, "docNumber", first.DocNumber, "artifact", mergedPath, "amount", amount)
	return nil
}

// mergeFirstPagePDFs concatenates the first page of each member file
// into one consolidated PDF.
func mergeFirstPagePDFs(memberPaths []string, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	tmpDir, err := os.MkdirTemp("", "doc-merge-*")
	if err != nil {
		return fmt.Errorf("failed to create merge temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	firstPages := make([]string, 0, len(memberPaths))
	for i, memberPath := range memberPaths {
		trimmed := filepath.Join(tmpDir, fmt.Sprintf("member_%d.pdf", i+1))
		if err := api.TrimFile(memberPath, trimmed, []string{"1"}, cfg); err != nil {
			return fmt.Errorf("failed to take first page of %s: %w", memberPath, err)
		}
		firstPages = append(firstPages, trimmed)
	}
	if err := api.MergeCreateFile(firstPages, outPath, false, cfg); err != nil {
		return fmt.Errorf("failed to merge pages into %s: %w", outPath, err)
	}
	return nil
}
