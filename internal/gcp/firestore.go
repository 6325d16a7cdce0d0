package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/shalix/document-engine/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// DocumentCatalog is the append-only metadata collection holding one
// entry per published document.
type DocumentCatalog struct {
	client     *firestore.Client
	collection string
}

func NewDocumentCatalog(client *firestore.Client, collection string) *DocumentCatalog {
	return &DocumentCatalog{client: client, collection: collection}
}

func (c *DocumentCatalog) Add(ctx context.Context, entry models.CatalogEntry) error {
	if _, _, err := c.client.Collection(c.collection).Add(ctx, entry); err != nil {
		return fmt.Errorf("failed to add catalog entry for %s: %w", entry.DocNumber, err)
	}
	return nil
}
