package services

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shalix/document-engine/internal/models"
)

// pageTexts maps stand-in page files to the text the stubbed renderer
// returns for them.
func stubExtractText(t *testing.T, texts map[string]string) func(string) (string, error) {
	t.Helper()
	return func(path string) (string, error) {
		text, ok := texts[filepath.Base(path)]
		if !ok {
			return "", ErrPageUnreadable
		}
		return text, nil
	}
}

func invoicePage(docNumber string) string {
	return strings.ReplaceAll(invoiceText, "500", docNumber)
}

func TestMapperInsertsPendingRecords(t *testing.T) {
	st := setupTestStore(t)
	scratch := t.TempDir()
	out := t.TempDir()

	pages := []string{
		writeTestPage(t, scratch, "optimized_1.pdf"),
		writeTestPage(t, scratch, "optimized_2.pdf"),
		writeTestPage(t, scratch, "optimized_3.pdf"),
	}

	m := NewMapper(st, out)
	m.extractText = stubExtractText(t, map[string]string{
		"optimized_1.pdf": invoicePage("500"),
		"optimized_2.pdf": invoicePage("501"),
		"optimized_3.pdf": invoicePage("500"),
	})
	require.NoError(t, m.Process(pages))

	pending, err := st.FindByStatus(models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	// page_index is contiguous per doc_number, in classification order.
	indexes := map[string][]int{}
	for _, rec := range pending {
		indexes[rec.DocNumber] = append(indexes[rec.DocNumber], rec.PageIndex)
		assert.Equal(t, models.KindInvoice, rec.DocKind)
		assert.FileExists(t, rec.ArtifactPath)
	}
	assert.ElementsMatch(t, []int{1, 2}, indexes["500"])
	assert.ElementsMatch(t, []int{1}, indexes["501"])
}

func TestMapperArtifactNameEncodesFields(t *testing.T) {
	st := setupTestStore(t)
	scratch := t.TempDir()
	out := t.TempDir()

	page := writeTestPage(t, scratch, "optimized_1.pdf")
	m := NewMapper(st, out)
	m.extractText = stubExtractText(t, map[string]string{"optimized_1.pdf": invoiceText})
	require.NoError(t, m.Process([]string{page}))

	pending, err := st.FindByStatus(models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "INVOICE_500_B12345678_12-05-2024_1.pdf", filepath.Base(pending[0].ArtifactPath))
}

func TestMapperRecordsClassificationFailure(t *testing.T) {
	st := setupTestStore(t)
	scratch := t.TempDir()
	out := t.TempDir()

	// Lacks the mandatory client identifier.
	partial := `FACTURA
CIF/DNI: JUAN PEREZ B12345678
500 GRACIAS POR SU PEDIDO
CIF/DNI: 12-05-2024
`
	page := writeTestPage(t, scratch, "optimized_1.pdf")
	m := NewMapper(st, out)
	m.extractText = stubExtractText(t, map[string]string{"optimized_1.pdf": partial})
	require.NoError(t, m.Process([]string{page}))

	failed, err := st.FindByStatus(models.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	// Extracted fields are preserved for auditing; amount is 0 and the
	// physical page survives outside the scratch directory.
	rec := failed[0]
	assert.Equal(t, "500", rec.DocNumber)
	assert.Equal(t, "B12345678", rec.TaxID)
	assert.Empty(t, rec.ClientID)
	assert.Zero(t, rec.Amount)
	assert.Equal(t, "FAILED_optimized_1.pdf", filepath.Base(rec.ArtifactPath))
	assert.FileExists(t, rec.ArtifactPath)
}

func TestMapperUnreadablePageNeverAbortsBatch(t *testing.T) {
	st := setupTestStore(t)
	scratch := t.TempDir()
	out := t.TempDir()

	pages := []string{
		writeTestPage(t, scratch, "optimized_1.pdf"),
		writeTestPage(t, scratch, "optimized_2.pdf"),
	}

	m := NewMapper(st, out)
	// Only page 2 renders; page 1 fails with ErrPageUnreadable.
	m.extractText = stubExtractText(t, map[string]string{"optimized_2.pdf": invoiceText})
	require.NoError(t, m.Process(pages))

	failed, err := st.FindByStatus(models.StatusFailed)
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	pending, err := st.FindByStatus(models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "500", pending[0].DocNumber)
}
