package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediaguard/internal/apierr"
	"mediaguard/internal/catalog"
	"mediaguard/internal/writer"
)

func newTestEngine(t *testing.T, roots []string) (*Engine, *catalog.Store) {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	wr := writer.New(store)
	wr.Start()
	t.Cleanup(wr.Stop)

	e := New(store, wr, Config{WorkerCount: 2, ResetBatchSize: 100, MaxFilesPerScan: 0},
		func() ([]string, error) { return roots, nil },
		func() ([]catalog.Exclusion, error) { return nil, nil },
		func() ([]string, error) { return nil, nil },
	)
	return e, store
}

func waitForTerminal(t *testing.T, e *Engine, variant catalog.OperationVariant) *catalog.OperationState {
	t.Helper()
	var st *catalog.OperationState
	require.Eventually(t, func() bool {
		var err error
		st, err = e.Status(variant)
		return err == nil && st != nil && !st.IsActive
	}, 3*time.Second, 10*time.Millisecond)
	return st
}

func TestSubmitRejectsConcurrentSameVariant(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	_, err := e.Submit(catalog.VariantScan, Params{})
	require.NoError(t, err)

	_, err = e.Submit(catalog.VariantScan, Params{})
	require.Error(t, err)
	require.Equal(t, 409, apierr.StatusCode(err))

	waitForTerminal(t, e, catalog.VariantScan)
}

func TestSubmitAllowsDifferentVariantsConcurrently(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	_, err := e.Submit(catalog.VariantScan, Params{})
	require.NoError(t, err)

	_, err = e.Submit(catalog.VariantCleanup, Params{})
	require.NoError(t, err)

	waitForTerminal(t, e, catalog.VariantScan)
	waitForTerminal(t, e, catalog.VariantCleanup)
}

func TestCancelReturnsFalseWhenNoneActive(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	found, err := e.Cancel(catalog.VariantScan)
	require.NoError(t, err)
	require.False(t, found)
}

func TestStatusReturnsNilBeforeAnyRun(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	st, err := e.Status(catalog.VariantScan)
	require.NoError(t, err)
	require.Nil(t, st)
}

func TestScanWithNoRootsCompletesWithZeroFiles(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	_, err := e.Submit(catalog.VariantScan, Params{})
	require.NoError(t, err)

	st := waitForTerminal(t, e, catalog.VariantScan)
	require.Equal(t, string(catalog.PhaseCompleted), st.Phase)
	require.EqualValues(t, 0, st.FilesProcessed)
}

func TestScanReportsTotalFilesFromDiscoveredCandidates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("not a real png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("not a real png either"), 0o644))

	e, _ := newTestEngine(t, []string{dir})

	_, err := e.Submit(catalog.VariantScan, Params{})
	require.NoError(t, err)

	st := waitForTerminal(t, e, catalog.VariantScan)
	require.Equal(t, string(catalog.PhaseCompleted), st.Phase)
	require.EqualValues(t, 2, st.TotalFiles)
	require.EqualValues(t, 2, st.FilesProcessed)
}

func TestCleanupRemovesOrphanedRows(t *testing.T) {
	e, store := newTestEngine(t, nil)

	dir := t.TempDir()
	kept := filepath.Join(dir, "kept.mp4")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0o644))
	deleted := filepath.Join(dir, "gone.mp4")
	require.NoError(t, os.WriteFile(deleted, []byte("x"), 0o644))

	now := time.Now()
	require.NoError(t, catalog.InsertNewFile(store.WriterDB(), catalog.NewFileInsert{
		FilePath: kept, CreationDate: now, LastModified: now, DiscoveredDate: now,
	}))
	require.NoError(t, catalog.InsertNewFile(store.WriterDB(), catalog.NewFileInsert{
		FilePath: deleted, CreationDate: now, LastModified: now, DiscoveredDate: now,
	}))
	require.NoError(t, os.Remove(deleted))

	_, err := e.Submit(catalog.VariantCleanup, Params{})
	require.NoError(t, err)

	st := waitForTerminal(t, e, catalog.VariantCleanup)
	require.Equal(t, string(catalog.PhaseCompleted), st.Phase)
	require.EqualValues(t, 1, st.OrphanedFound)

	n, err := store.CountAll()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	row, err := store.GetByPath(kept)
	require.NoError(t, err)
	require.NotNil(t, row)

	report, err := store.LatestReport(catalog.VariantCleanup)
	require.NoError(t, err)
	require.EqualValues(t, 1, report.OrphanedRecordsFound)
	require.EqualValues(t, 1, report.OrphanedRecordsDeleted)
}

func TestCancelDuringCleanupMarksCancelled(t *testing.T) {
	e, store := newTestEngine(t, nil)

	dir := t.TempDir()
	now := time.Now()
	for i := 0; i < 50; i++ {
		p := filepath.Join(dir, string(rune('a'+i%26))+string(rune('0'+i/26))+".mp4")
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		require.NoError(t, catalog.InsertNewFile(store.WriterDB(), catalog.NewFileInsert{
			FilePath: p, CreationDate: now, LastModified: now, DiscoveredDate: now,
		}))
	}

	_, err := e.Submit(catalog.VariantCleanup, Params{})
	require.NoError(t, err)

	found, err := e.Cancel(catalog.VariantCleanup)
	require.NoError(t, err)
	require.True(t, found)

	st := waitForTerminal(t, e, catalog.VariantCleanup)
	require.Contains(t, []string{string(catalog.PhaseCancelled), string(catalog.PhaseCompleted)}, st.Phase)
}

func TestRecoverInterruptedClearsStaleActiveRows(t *testing.T) {
	_, store := newTestEngine(t, nil)

	require.NoError(t, catalog.CreateOperationState(store.WriterDB(), &catalog.OperationState{
		OperationID: "stale-op",
		Variant:     catalog.VariantScan,
		IsActive:    true,
		StartTime:   time.Now(),
	}))

	wr := writer.New(store)
	wr.Start()
	defer wr.Stop()
	e2 := New(store, wr, Config{}, func() ([]string, error) { return nil, nil },
		func() ([]catalog.Exclusion, error) { return nil, nil },
		func() ([]string, error) { return nil, nil })

	require.NoError(t, e2.RecoverInterrupted())

	active, err := store.ActiveOperation(catalog.VariantScan)
	require.NoError(t, err)
	require.Nil(t, active)

	latest, err := store.LatestOperationForVariant(catalog.VariantScan)
	require.NoError(t, err)
	require.Equal(t, string(catalog.PhaseInterrupted), latest.Phase)
}
