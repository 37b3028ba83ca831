package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertFile(t *testing.T, s *Store, path string) int64 {
	t.Helper()
	now := time.Now()
	require.NoError(t, InsertNewFile(s.WriterDB(), NewFileInsert{
		FilePath:       path,
		FileSize:       1024,
		FileType:       "video/mp4",
		CreationDate:   now,
		LastModified:   now,
		DiscoveredDate: now,
	}))
	row, err := s.GetByPath(path)
	require.NoError(t, err)
	require.NotNil(t, row)
	return row.ID
}

func TestInsertNewFileIgnoresDuplicatePath(t *testing.T) {
	s := newTestStore(t)
	insertFile(t, s, "/media/a.mp4")
	insertFile(t, s, "/media/a.mp4")

	n, err := s.CountAll()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestApplyScanResultAndEffectiveFlags(t *testing.T) {
	s := newTestStore(t)
	id := insertFile(t, s, "/media/b.mp4")

	corrupted := true
	require.NoError(t, ApplyScanResult(s.WriterDB(), ScanResultUpdate{
		ID:                id,
		ScanStatus:        StatusComplete,
		IsCorrupted:       &corrupted,
		CorruptionDetails: "macroblock decode error",
		ScanTool:          "ffprobe",
		FileHash:          "deadbeef",
		ScanDate:          time.Now(),
	}))

	row, err := s.GetByID(id)
	require.NoError(t, err)
	require.True(t, row.EffectiveCorrupted())
	require.False(t, row.EffectiveHealthy())

	require.NoError(t, SetMarkedAsGood(s.WriterDB(), id, true))
	row, err = s.GetByID(id)
	require.NoError(t, err)
	require.True(t, row.EffectiveHealthy())
	require.False(t, row.EffectiveCorrupted())
}

func TestListScanResultsFilterAndPagination(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		insertFile(t, s, filepath.Join("/media", string(rune('a'+i))+".mp4"))
	}

	page, total, err := s.ListScanResults(ListFilter{Limit: 2, Offset: 0, SortColumn: "file_path"})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, page, 2)

	page, total, err = s.ListScanResults(ListFilter{Status: StatusPending})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, page, 5)

	_, total, err = s.ListScanResults(ListFilter{Status: StatusComplete})
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
}

func TestAggregateCounts(t *testing.T) {
	s := newTestStore(t)
	id1 := insertFile(t, s, "/media/c.mp4")
	id2 := insertFile(t, s, "/media/d.mp4")

	corrupted := true
	require.NoError(t, ApplyScanResult(s.WriterDB(), ScanResultUpdate{
		ID: id1, ScanStatus: StatusComplete, IsCorrupted: &corrupted, ScanDate: time.Now(),
	}))
	healthy := false
	require.NoError(t, ApplyScanResult(s.WriterDB(), ScanResultUpdate{
		ID: id2, ScanStatus: StatusComplete, IsCorrupted: &healthy, ScanDate: time.Now(),
	}))

	stats, err := s.Aggregate()
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Total)
	require.EqualValues(t, 1, stats.EffectiveCorrupted)
	require.EqualValues(t, 1, stats.Completed)
}

func TestPendingBatchesStopsEarly(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 10; i++ {
		insertFile(t, s, filepath.Join("/media", string(rune('a'+i))+".mp4"))
	}

	seen := 0
	err := s.PendingBatches(3, func(batch []*ScanResult) (bool, error) {
		seen += len(batch)
		return seen < 4, nil
	})
	require.NoError(t, err)
	require.Greater(t, seen, 0)
	require.Less(t, seen, 10)
}

func TestOperationStateLifecycle(t *testing.T) {
	s := newTestStore(t)

	active, err := s.ActiveOperation(VariantScan)
	require.NoError(t, err)
	require.Nil(t, active)

	st := &OperationState{
		OperationID: "op-1",
		Variant:     VariantScan,
		IsActive:    true,
		Phase:       "discovering",
		StartTime:   time.Now(),
	}
	require.NoError(t, CreateOperationState(s.WriterDB(), st))

	active, err = s.ActiveOperation(VariantScan)
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, "op-1", active.OperationID)

	ok, err := RequestCancel(s.WriterDB(), VariantScan)
	require.NoError(t, err)
	require.True(t, ok)

	st.Phase = "cancelled"
	st.IsActive = false
	st.CancelRequested = true
	require.NoError(t, UpdateOperationState(s.WriterDB(), st))

	active, err = s.ActiveOperation(VariantScan)
	require.NoError(t, err)
	require.Nil(t, active)

	latest, err := s.LatestOperationForVariant(VariantScan)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, "cancelled", latest.Phase)
}

func TestMarkInterruptedSweepsActiveRows(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, CreateOperationState(s.WriterDB(), &OperationState{
		OperationID: "op-2", Variant: VariantCleanup, IsActive: true, StartTime: time.Now(),
	}))

	n, err := MarkInterrupted(s.WriterDB())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	active, err := s.ActiveOperations()
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestReportInsertAndQuery(t *testing.T) {
	s := newTestStore(t)
	r := &ScanReport{
		ReportID:     "rep-1",
		ScanType:     VariantScan,
		StartTime:    time.Now().Add(-time.Minute),
		EndTime:      time.Now(),
		FilesScanned: 10,
		FilesHealthy: 9,
	}
	require.NoError(t, InsertReport(s.WriterDB(), r))

	got, err := s.GetReport("rep-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.EqualValues(t, 10, got.FilesScanned)

	latest, err := s.LatestReport(VariantScan)
	require.NoError(t, err)
	require.Equal(t, "rep-1", latest.ReportID)

	list, err := s.ListReports(VariantScan, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.DeleteReport("rep-1"))
	got, err = s.GetReport("rep-1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestResetStuckScanning(t *testing.T) {
	s := newTestStore(t)
	id := insertFile(t, s, "/media/e.mp4")
	require.NoError(t, MarkScanning(s.WriterDB(), id))

	row, err := s.GetByID(id)
	require.NoError(t, err)
	require.Equal(t, StatusScanning, row.ScanStatus)

	n, err := ResetStuckScanning(s.WriterDB())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	row, err = s.GetByID(id)
	require.NoError(t, err)
	require.Equal(t, StatusPending, row.ScanStatus)
}
