package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/shalix/document-engine/internal/models"
	"github.com/shalix/document-engine/internal/store"
)

// ObjectStore uploads a local artifact under a remote key and returns
// its public retrieval URL.
type ObjectStore interface {
	Upload(ctx context.Context, objectKey, localPath string) (string, error)
}

// Catalog appends one metadata record per published document.
type Catalog interface {
	Add(ctx context.Context, entry models.CatalogEntry) error
}

// Publisher uploads every READY artifact to the object store and writes
// its catalog entry. Transitions out of READY are committed per record,
// so a crash mid-publish leaves a correctly partitioned set of UPLOADED
// vs still-READY records, safe to resume.
type Publisher struct {
	store   *store.Store
	objects ObjectStore
	catalog Catalog
}

func NewPublisher(st *store.Store, objects ObjectStore, catalog Catalog) *Publisher {
	return &Publisher{store: st, objects: objects, catalog: catalog}
}

// Process publishes all READY records. One record's failure moves it to
// UPLOAD_FAILED and never blocks the next.
func (p *Publisher) Process(ctx context.Context) error {
	records, err := p.store.FindByStatus(models.StatusReady)
	if err != nil {
		return err
	}
	slog.Info("Upload process started.", "recordCount", len(records))

	for _, rec := range records {
		logCtx := slog.With("docNumber", rec.DocNumber, "id", rec.ID, "artifact", rec.ArtifactPath)

		if err := p.publish(ctx, rec); err != nil {
			logCtx.Error("Upload failed", "error", err)
			if err := p.store.UpdateStatusByID(rec.ID, models.StatusUploadFailed); err != nil {
				logCtx.Error("CRITICAL: failed to mark record UPLOAD_FAILED", "error", err)
			}
			continue
		}

		if err := p.store.UpdateStatusByID(rec.ID, models.StatusUploaded); err != nil {
			logCtx.Error("CRITICAL: failed to mark record UPLOADED", "error", err)
			continue
		}
		logCtx.Info("Document uploaded.", "ok", true)
	}

	slog.Info("Upload process finished.")
	return nil
}

func (p *Publisher) publish(ctx context.Context, rec models.PageRecord) error {
	fileName := filepath.Base(rec.ArtifactPath)
	objectKey := fmt.Sprintf("documents/%s/%s/%s", rec.TaxID, rec.DocKind, fileName)

	url, err := p.objects.Upload(ctx, objectKey, rec.ArtifactPath)
	if err != nil {
		return fmt.Errorf("object upload: %w", err)
	}

	entry := models.CatalogEntry{
		DocNumber: rec.DocNumber,
		ClientID:  rec.ClientID,
		TaxID:     rec.TaxID,
		IssuedAt:  rec.IssuedAt,
		Amount:    rec.Amount,
		DocKind:   string(rec.DocKind),
		PDFURL:    url,
	}
	if err := p.catalog.Add(ctx, entry); err != nil {
		return fmt.Errorf("catalog write: %w", err)
	}
	return nil
}
