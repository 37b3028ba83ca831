package engine

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"mediaguard/internal/catalog"
	"mediaguard/internal/probe"
	"mediaguard/internal/progress"
)

const fileChangesBatchSize = 100

type detectedChange struct {
	row         *catalog.ScanResult
	changeType  string // "deleted" or "modified"
	storedHash  string
	currentHash string
}

// runFileChanges drives the file-change-check operation through its
// three phases (spec.md §4.4.3). Weights: starting 0.05, checking_hashes
// 0.80, verifying_changes 0.15.
func (e *Engine) runFileChanges(ctx context.Context, operationID string) error {
	r := newRun(operationID, catalog.VariantFileChanges, progress.FileChangesWeights, "starting", 1)

	total, err := e.store.CountAll()
	if err != nil {
		return e.failRun(r, err)
	}
	r.setPhase("starting", 1, total)
	r.total = total
	e.wr.UpdateOperationState(r.snapshot(true, nil, "", false))

	if cancelled(ctx) {
		return e.cancelRun(r)
	}

	// Phase 2 — checking_hashes, ID-paginated batches of 100.
	r.setPhase("checking_hashes", 2, total)
	var changes []detectedChange
	n := 0
	err = e.store.AllRows(fileChangesBatchSize, func(batch []*catalog.ScanResult) (bool, error) {
		if cancelled(ctx) {
			return false, nil
		}
		for _, row := range batch {
			if cancelled(ctx) {
				return false, nil
			}
			if c := detectChange(row); c != nil {
				changes = append(changes, *c)
			}
			n++
			r.phaseCurrent++
			r.processed++
			r.currentFile = row.FilePath
			if n%5 == 0 {
				e.wr.UpdateOperationState(r.snapshot(true, nil, "", false))
			}
		}
		e.wr.UpdateOperationState(r.snapshot(true, nil, "", false))
		return !cancelled(ctx), nil
	})
	if err != nil {
		return e.failRun(r, err)
	}
	if cancelled(ctx) {
		return e.cancelRun(r)
	}

	r.changesFound = int64(len(changes))
	r.changedPaths = make([]changeDescriptor, 0, len(changes))
	for _, c := range changes {
		r.changedPaths = append(r.changedPaths, changeDescriptor{
			FilePath:    c.row.FilePath,
			ChangeType:  c.changeType,
			StoredHash:  c.storedHash,
			CurrentHash: c.currentHash,
		})
	}

	// Phase 3 — verifying_changes: rescan each changed file to decide
	// whether the change introduced corruption.
	r.setPhase("verifying_changes", 3, int64(len(changes)))
	ignoredPatterns, err := e.ignoredPatterns()
	if err != nil {
		return e.failRun(r, err)
	}

	var corruptedNew int64
	for _, c := range changes {
		if cancelled(ctx) {
			return e.cancelRun(r)
		}
		if c.changeType == "deleted" {
			r.phaseCurrent++
			continue
		}
		verdict := probe.Probe(ctx, probe.Request{Path: c.row.FilePath, Deep: c.row.DeepScan, IgnoredPatterns: ignoredPatterns})
		e.wr.UpdateScanResult(verdictToUpdate(c.row.ID, verdict))
		if verdict.Kind == probe.Corrupted {
			corruptedNew++
		}
		r.phaseCurrent++
		r.currentFile = c.row.FilePath
		e.wr.UpdateOperationState(r.snapshot(true, nil, "", false))
	}
	r.corruptedFound = corruptedNew

	now := time.Now()
	r.phase = "completed"
	if err := e.wr.UpdateOperationStateSync(r.snapshot(false, &now, "", false)); err != nil {
		return err
	}

	report := &catalog.ScanReport{
		ReportID:          uuid.NewString(),
		ScanType:          catalog.VariantFileChanges,
		StartTime:         r.start,
		EndTime:           now,
		FilesChanged:      r.changesFound,
		FilesCorruptedNew: corruptedNew,
	}
	return e.wr.InsertReportSync(report)
}

func detectChange(row *catalog.ScanResult) *detectedChange {
	info, err := os.Stat(row.FilePath)
	if os.IsNotExist(err) {
		return &detectedChange{row: row, changeType: "deleted"}
	}
	if err != nil {
		return nil
	}
	if !info.ModTime().After(row.LastModified) {
		return nil
	}
	currentHash, err := probe.ContentHash(row.FilePath)
	if err != nil {
		return nil
	}
	if currentHash == row.FileHash {
		return nil
	}
	return &detectedChange{
		row:         row,
		changeType:  "modified",
		storedHash:  row.FileHash,
		currentHash: currentHash,
	}
}
