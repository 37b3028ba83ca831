package engine

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"mediaguard/internal/catalog"
	"mediaguard/internal/progress"
)

const cleanupDeleteBatchSize = 50

// runCleanup drives the orphan-cleanup operation through its three
// phases (spec.md §4.4.2). Weights: scanning_db 0.10, checking_files
// 0.80, deleting_entries 0.10.
func (e *Engine) runCleanup(ctx context.Context, operationID string) error {
	r := newRun(operationID, catalog.VariantCleanup, progress.CleanupWeights, "scanning_db", 1)

	// Phase 1 — count total rows, set phase totals.
	total, err := e.store.CountAll()
	if err != nil {
		return e.failRun(r, err)
	}
	r.setPhase("scanning_db", 1, total)
	r.total = total
	e.wr.UpdateOperationState(r.snapshot(true, nil, "", false))

	if cancelled(ctx) {
		return e.cancelRun(r)
	}

	// Phase 2 — check filesystem existence for every row.
	r.setPhase("checking_files", 2, total)
	var orphaned []int64
	err = e.store.AllRows(1000, func(batch []*catalog.ScanResult) (bool, error) {
		for _, row := range batch {
			if cancelled(ctx) {
				return false, nil
			}
			if _, statErr := os.Stat(row.FilePath); os.IsNotExist(statErr) {
				orphaned = append(orphaned, row.ID)
			}
			r.phaseCurrent++
			r.processed++
			r.currentFile = row.FilePath
			e.wr.UpdateOperationState(r.snapshot(true, nil, "", false))
		}
		return !cancelled(ctx), nil
	})
	if err != nil {
		return e.failRun(r, err)
	}
	if cancelled(ctx) {
		return e.cancelRun(r)
	}

	r.orphanedFound = int64(len(orphaned))

	// Phase 3 — delete collected rows in batches of 50.
	r.setPhase("deleting_entries", 3, int64(len(orphaned)))
	var deleted int64
	for i := 0; i < len(orphaned); i += cleanupDeleteBatchSize {
		if cancelled(ctx) {
			return e.cancelRun(r)
		}
		end := i + cleanupDeleteBatchSize
		if end > len(orphaned) {
			end = len(orphaned)
		}
		e.wr.DeleteScanResults(orphaned[i:end])
		deleted += int64(end - i)
		r.phaseCurrent = deleted
		e.wr.UpdateOperationState(r.snapshot(true, nil, "", false))
	}

	now := time.Now()
	r.phase = "completed"
	if err := e.wr.UpdateOperationStateSync(r.snapshot(false, &now, "", false)); err != nil {
		return err
	}

	report := &catalog.ScanReport{
		ReportID:               uuid.NewString(),
		ScanType:               catalog.VariantCleanup,
		StartTime:              r.start,
		EndTime:                now,
		OrphanedRecordsFound:   r.orphanedFound,
		OrphanedRecordsDeleted: deleted,
	}
	return e.wr.InsertReportSync(report)
}
