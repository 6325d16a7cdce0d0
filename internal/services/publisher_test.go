package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shalix/document-engine/internal/models"
	"github.com/shalix/document-engine/internal/store"
)

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Upload(ctx context.Context, objectKey, localPath string) (string, error) {
	args := m.Called(ctx, objectKey, localPath)
	return args.String(0), args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Add(ctx context.Context, entry models.CatalogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func insertReady(t *testing.T, st *store.Store, docNumber, artifactPath string, amount float64) int64 {
	t.Helper()
	id, err := st.InsertPage(models.PageRecord{
		DocKind:      models.KindInvoice,
		Status:       models.StatusReady,
		DocNumber:    docNumber,
		ClientID:     "CLI1",
		TaxID:        "B12345678",
		IssuedAt:     "12-05-2024",
		PageIndex:    1,
		Amount:       amount,
		ArtifactPath: artifactPath,
	})
	require.NoError(t, err)
	return id
}

func TestPublisherUploadsAndCatalogs(t *testing.T) {
	st := setupTestStore(t)
	insertReady(t, st, "500", "/out/INVOICE_500_B12345678_12-05-2024_all.pdf", 120.50)

	objects := new(MockObjectStore)
	catalog := new(MockCatalog)
	objects.On("Upload", mock.Anything,
		"documents/B12345678/INVOICE/INVOICE_500_B12345678_12-05-2024_all.pdf",
		"/out/INVOICE_500_B12345678_12-05-2024_all.pdf").
		Return("https://storage.googleapis.com/test/doc.pdf", nil)
	catalog.On("Add", mock.Anything, models.CatalogEntry{
		DocNumber: "500",
		ClientID:  "CLI1",
		TaxID:     "B12345678",
		IssuedAt:  "12-05-2024",
		Amount:    120.50,
		DocKind:   "INVOICE",
		PDFURL:    "https://storage.googleapis.com/test/doc.pdf",
	}).Return(nil)

	p := NewPublisher(st, objects, catalog)
	require.NoError(t, p.Process(context.Background()))

	objects.AssertExpectations(t)
	catalog.AssertExpectations(t)

	uploaded, err := st.FindByStatus(models.StatusUploaded)
	require.NoError(t, err)
	assert.Len(t, uploaded, 1)
	catalog.AssertNumberOfCalls(t, "Add", 1)
}

func TestPublisherContinuesPastUploadFailure(t *testing.T) {
	st := setupTestStore(t)
	insertReady(t, st, "500", "/out/500.pdf", 120.50)
	insertReady(t, st, "501", "/out/501.pdf", 75.00)

	objects := new(MockObjectStore)
	catalog := new(MockCatalog)
	objects.On("Upload", mock.Anything, mock.Anything, "/out/500.pdf").
		Return("", errors.New("network timeout"))
	objects.On("Upload", mock.Anything, mock.Anything, "/out/501.pdf").
		Return("https://storage.googleapis.com/test/501.pdf", nil)
	catalog.On("Add", mock.Anything, mock.MatchedBy(func(e models.CatalogEntry) bool {
		return e.DocNumber == "501"
	})).Return(nil)

	p := NewPublisher(st, objects, catalog)
	require.NoError(t, p.Process(context.Background()))

	failed, err := st.FindByStatus(models.StatusUploadFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "500", failed[0].DocNumber)

	uploaded, err := st.FindByStatus(models.StatusUploaded)
	require.NoError(t, err)
	require.Len(t, uploaded, 1)
	assert.Equal(t, "501", uploaded[0].DocNumber)

	// The failed record produced no catalog entry.
	catalog.AssertNumberOfCalls(t, "Add", 1)
}

func TestPublisherCatalogFailureMarksUploadFailed(t *testing.T) {
	st := setupTestStore(t)
	insertReady(t, st, "500", "/out/500.pdf", 120.50)

	objects := new(MockObjectStore)
	catalog := new(MockCatalog)
	objects.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return("https://storage.googleapis.com/test/500.pdf", nil)
	catalog.On("Add", mock.Anything, mock.Anything).
		Return(errors.New("permission denied"))

	p := NewPublisher(st, objects, catalog)
	require.NoError(t, p.Process(context.Background()))

	failed, err := st.FindByStatus(models.StatusUploadFailed)
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}
