package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shalix/document-engine/internal/store"
)

// setupTestStore creates a temporary document store for service tests.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "documents_splitter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// writeTestPage creates a stand-in page artifact on disk. The services
// under test stub out PDF rendering, so any file content will do.
func writeTestPage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-stub "+name), 0o644))
	return path
}
