package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mediaguard/internal/catalog"
	"mediaguard/internal/discovery"
	"mediaguard/internal/logger"
	"mediaguard/internal/probe"
	"mediaguard/internal/progress"
)

const (
	addingBatchSize        = 100
	fullScanBatchSize       = 1000
	targetedRescanBatchSize = 100
)

// runScan drives the scan operation through its three phases (spec.md
// §4.4.1). Weights: discovery 0.20, adding 0.10, scanning 0.70.
func (e *Engine) runScan(ctx context.Context, operationID string, params Params) error {
	r := newRun(operationID, catalog.VariantScan, progress.ScanWeights, "discovery", 1)

	if len(params.Paths) > 0 {
		return e.runTargetedRescan(ctx, r, params)
	}

	// Phase 1 — discovery.
	r.setPhase("discovery", 1, 0)
	existing := make(map[string]bool)
	if err := e.store.ExistingPaths(5000, func(batch []string) error {
		for _, p := range batch {
			existing[p] = true
		}
		return nil
	}); err != nil {
		return e.failRun(r, err)
	}

	roots, err := e.roots()
	if err != nil {
		return e.failRun(r, err)
	}
	excl, err := e.buildExclusions()
	if err != nil {
		return e.failRun(r, err)
	}

	var candidates []discovery.Candidate
	if len(roots) > 0 {
		candidates, err = discovery.Walk(ctx, discovery.Options{
			Roots:        roots,
			Exclusions:   excl,
			ExistingPath: func(p string) bool { return existing[p] },
			MaxWorkers:   e.cfg.WorkerCount,
			GlobalLimit:  int64(e.cfg.MaxFilesPerScan),
			OnProgress: func(examined, selected int64) {
				r.phaseCurrent = examined
				r.discoveryCount = selected
				e.wr.UpdateOperationState(r.snapshot(true, nil, "", false))
			},
		})
		if err != nil {
			return e.failRun(r, err)
		}
	}

	if cancelled(ctx) {
		return e.cancelRun(r)
	}

	r.estimatedTotal = int64(len(candidates))
	r.total = int64(len(candidates))

	// Phase 2 — adding, batches of 100.
	r.setPhase("adding", 2, int64(len(candidates)))
	batch := make([]catalog.NewFileInsert, 0, addingBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		e.wr.BatchInsertNewFiles(batch)
		batch = batch[:0]
	}
	for i, c := range candidates {
		if cancelled(ctx) {
			return e.cancelRun(r)
		}
		batch = append(batch, catalog.NewFileInsert{
			FilePath:       c.Path,
			FileSize:       c.Size,
			FileType:       c.MimeType,
			CreationDate:   c.CreationTime,
			LastModified:   c.ModTime,
			DiscoveredDate: time.Now(),
		})
		r.phaseCurrent = int64(i + 1)
		if len(batch) >= addingBatchSize {
			flush()
			e.wr.UpdateOperationState(r.snapshot(true, nil, "", false))
		}
	}
	flush()

	// Phase 3 — scanning, ID-paginated batches of 1000.
	return e.runScanningPhase(ctx, r, fullScanBatchSize, nil)
}

// runTargetedRescan implements spec.md §4.4.1's rescan variant: resets
// the given paths to pending, then enters phase 3 directly with
// phase_number=3. runScanningPhase looks up and probes each listed path
// as its own one-row batch; the batch size argument is not used for a
// path list.
func (e *Engine) runTargetedRescan(ctx context.Context, r *run, params Params) error {
	r.setPhase("scanning", 3, int64(len(params.Paths)))
	r.total = int64(len(params.Paths))
	for _, p := range params.Paths {
		if cancelled(ctx) {
			return e.cancelRun(r)
		}
		e.wr.ResetToPendingByPath(p)
	}
	return e.runScanningPhase(ctx, r, targetedRescanBatchSize, params.Paths)
}

// runScanningPhase implements spec.md §4.4.1 phase 3: ID-paginated
// batches of pending rows, each probed by up to cfg.WorkerCount
// concurrent workers.
func (e *Engine) runScanningPhase(ctx context.Context, r *run, batchSize int, onlyPaths []string) error {
	if r.phase != "scanning" {
		r.phaseCurrent = 0
		r.phaseTotal = 0
	}
	r.phase = "scanning"
	r.phaseNumber = 3

	ignoredPatterns, err := e.ignoredPatterns()
	if err != nil {
		return e.failRun(r, err)
	}

	processBatch := func(batch []*catalog.ScanResult) (bool, error) {
		if cancelled(ctx) {
			return false, nil
		}
		if len(onlyPaths) == 0 {
			r.phaseTotal += int64(len(batch))
		}

		for _, row := range batch {
			e.wr.MarkScanning(row.ID)
		}

		boundedEach(ctx, batch, e.cfg.WorkerCount, func(row *catalog.ScanResult) {
			verdict := probe.Probe(ctx, probe.Request{
				Path:            row.FilePath,
				Deep:            row.DeepScan,
				IgnoredPatterns: ignoredPatterns,
			})
			e.wr.UpdateScanResult(verdictToUpdate(row.ID, verdict))
			r.processed++
			r.phaseCurrent++
			r.currentFile = row.FilePath
			e.wr.UpdateOperationState(r.snapshot(true, nil, "", false))
		})

		return !cancelled(ctx), nil
	}

	if len(onlyPaths) > 0 {
		for _, p := range onlyPaths {
			row, err := e.store.GetByPath(p)
			if err != nil || row == nil {
				continue
			}
			if keepGoing, err := processBatch([]*catalog.ScanResult{row}); err != nil {
				return e.failRun(r, err)
			} else if !keepGoing {
				return e.cancelRun(r)
			}
		}
	} else {
		if err := e.store.PendingBatches(batchSize, processBatch); err != nil {
			return e.failRun(r, err)
		}
	}

	if cancelled(ctx) {
		return e.cancelRun(r)
	}

	remaining, err := e.store.CountPending()
	if err == nil && remaining > 0 {
		logger.Warn("engine: scan %s completed with %d pending row(s) remaining", r.operationID, remaining)
	}

	return e.completeScan(r)
}

func (e *Engine) completeScan(r *run) error {
	now := time.Now()
	r.phase = "completed"
	st := r.snapshot(false, &now, "", false)
	if err := e.wr.UpdateOperationStateSync(st); err != nil {
		return err
	}

	agg, err := e.store.Aggregate()
	report := &catalog.ScanReport{
		ReportID:  uuid.NewString(),
		ScanType:  catalog.VariantScan,
		StartTime: r.start,
		EndTime:   now,
	}
	if err == nil {
		report.FilesScanned = r.processed
		report.FilesCorrupted = agg.EffectiveCorrupted
		report.FilesHealthy = agg.EffectiveHealthy
		report.FilesWithWarnings = agg.EffectiveWarning
	}
	return e.wr.InsertReportSync(report)
}

func (e *Engine) failRun(r *run, err error) error {
	now := time.Now()
	r.phase = string(catalog.PhaseError)
	st := r.snapshot(false, &now, err.Error(), false)
	e.wr.UpdateOperationState(st)
	return fmt.Errorf("run %s: %w", r.operationID, err)
}

func (e *Engine) cancelRun(r *run) error {
	now := time.Now()
	r.phase = string(catalog.PhaseCancelled)
	st := r.snapshot(false, &now, "", true)
	return e.wr.UpdateOperationStateSync(st)
}

func (e *Engine) buildExclusions() (discovery.Exclusions, error) {
	rows, err := e.exclusions()
	if err != nil {
		return discovery.Exclusions{}, err
	}
	excl := discovery.Exclusions{Extensions: make(map[string]bool)}
	for _, row := range rows {
		switch row.Type {
		case catalog.ExclusionPath:
			excl.Paths = append(excl.Paths, row.Value)
		case catalog.ExclusionExtension:
			excl.Extensions[row.Value] = true
		}
	}
	return excl, nil
}

func verdictToUpdate(id int64, v probe.Verdict) catalog.ScanResultUpdate {
	u := catalog.ScanResultUpdate{
		ID:           id,
		ScanTool:     v.Tool,
		ScanDuration: v.Duration.Seconds(),
		ScanOutput:   v.Output,
		FileHash:     v.Hash,
		ScanDate:     time.Now(),
	}
	switch v.Kind {
	case probe.Healthy:
		u.ScanStatus = catalog.StatusComplete
		falseVal := false
		u.IsCorrupted = &falseVal
	case probe.Warning:
		u.ScanStatus = catalog.StatusComplete
		falseVal := false
		u.IsCorrupted = &falseVal
		u.HasWarnings = true
		u.WarningDetails = v.Details
	case probe.Corrupted:
		u.ScanStatus = catalog.StatusComplete
		trueVal := true
		u.IsCorrupted = &trueVal
		u.CorruptionDetails = v.Details
	case probe.Errored:
		u.ScanStatus = catalog.StatusError
		u.CorruptionDetails = v.Details
	}
	return u
}
