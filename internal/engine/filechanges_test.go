package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediaguard/internal/catalog"
)

func TestDetectChangeFlagsDeletedFile(t *testing.T) {
	row := &catalog.ScanResult{FilePath: filepath.Join(t.TempDir(), "missing.mp4")}

	c := detectChange(row)
	require.NotNil(t, c)
	require.Equal(t, "deleted", c.changeType)
}

func TestDetectChangeIgnoresUnmodifiedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stable.mp4")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	row := &catalog.ScanResult{FilePath: path, LastModified: info.ModTime().Add(time.Second)}

	require.Nil(t, detectChange(row))
}

func TestDetectChangeFlagsModifiedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "changed.mp4")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	row := &catalog.ScanResult{FilePath: path, LastModified: info.ModTime().Add(-time.Hour), FileHash: "stale"}

	c := detectChange(row)
	require.NotNil(t, c)
	require.Equal(t, "modified", c.changeType)
	require.Equal(t, "stale", c.storedHash)
	require.NotEmpty(t, c.currentHash)
}

func TestRunFileChangesReportsDeletedFiles(t *testing.T) {
	e, store := newTestEngine(t, nil)

	dir := t.TempDir()
	gone := filepath.Join(dir, "gone.mp4")
	require.NoError(t, os.WriteFile(gone, []byte("x"), 0o644))
	now := time.Now()
	require.NoError(t, catalog.InsertNewFile(store.WriterDB(), catalog.NewFileInsert{
		FilePath: gone, CreationDate: now, LastModified: now, DiscoveredDate: now,
	}))
	require.NoError(t, os.Remove(gone))

	_, err := e.Submit(catalog.VariantFileChanges, Params{})
	require.NoError(t, err)

	st := waitForTerminal(t, e, catalog.VariantFileChanges)
	require.Equal(t, string(catalog.PhaseCompleted), st.Phase)
	require.EqualValues(t, 1, st.ChangesFound)
	require.Contains(t, st.ChangedFilesJSON, "deleted")

	report, err := store.LatestReport(catalog.VariantFileChanges)
	require.NoError(t, err)
	require.EqualValues(t, 1, report.FilesChanged)
}
