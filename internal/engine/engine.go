// Package engine implements the Operation Engine (spec.md §4.4): it
// drives the three operation variants through their phase sequences,
// exposes progress, honors cancellation, recovers from prior-run
// interruption, and emits a ScanReport on terminal success.
//
// Submit is the single entry point both the HTTP surface and the
// schedule submitter use (spec.md §9: "no back-door mutation of
// operation state"). Status reads go straight to the Catalog Store —
// the in-memory mirror the original design used is replaced here with a
// pull-only reader per spec.md §9's re-architecture note, since a
// write-ahead-logged database already serves concurrent reads without
// blocking the writer.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediaguard/internal/apierr"
	"mediaguard/internal/catalog"
	"mediaguard/internal/logger"
	"mediaguard/internal/writer"
)

// Config bounds the engine's resource usage (spec.md §5).
type Config struct {
	WorkerCount     int
	ResetBatchSize  int
	MaxFilesPerScan int
}

// RootsFunc and ExclusionsFunc let the engine read admin-configured scan
// roots and exclusions at the start of each discovery phase without
// holding a stale copy across operations.
type RootsFunc func() ([]string, error)
type ExclusionsFunc func() ([]catalog.Exclusion, error)
type IgnoredPatternsFunc func() ([]string, error)

// Engine owns in-process coordination (which variant is running, and
// its cancellation) for the three operation variants. Durable state
// always lives in the Catalog Store via the Write Serializer.
type Engine struct {
	store *catalog.Store
	wr    *writer.Serializer
	cfg   Config

	roots           RootsFunc
	exclusions      ExclusionsFunc
	ignoredPatterns IgnoredPatternsFunc

	mu      sync.Mutex
	running map[catalog.OperationVariant]*runningOp
}

type runningOp struct {
	operationID string
	cancel      context.CancelFunc
}

// New constructs an Engine. Call RecoverInterrupted once at startup,
// after wr.Start(), before serving traffic.
func New(store *catalog.Store, wr *writer.Serializer, cfg Config, roots RootsFunc, exclusions ExclusionsFunc, ignoredPatterns IgnoredPatternsFunc) *Engine {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 4
	}
	if cfg.ResetBatchSize < 1 {
		cfg.ResetBatchSize = 500
	}
	return &Engine{
		store:           store,
		wr:              wr,
		cfg:             cfg,
		roots:           roots,
		exclusions:      exclusions,
		ignoredPatterns: ignoredPatterns,
		running:         make(map[catalog.OperationVariant]*runningOp),
	}
}

// RecoverInterrupted implements spec.md §4.4.5's startup crash-recovery
// sweep: any active OperationState row is marked interrupted and any
// scan_status=scanning row is reset to pending.
func (e *Engine) RecoverInterrupted() error {
	n, err := e.wr.MarkInterruptedSync()
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("engine: marked %d interrupted operation(s) on startup", n)
	}
	reset, err := e.wr.ResetStuckScanningSync()
	if err != nil {
		return err
	}
	if reset > 0 {
		logger.Info("engine: reset %d stuck scanning row(s) to pending on startup", reset)
	}
	return nil
}

// RecoverStuckScan is the on-demand admin endpoint equivalent of the
// scan_status=scanning half of RecoverInterrupted (spec.md §4.4.5).
func (e *Engine) RecoverStuckScan() (int64, error) {
	return e.wr.ResetStuckScanningSync()
}

// Params carries the optional, variant-specific arguments to Submit.
type Params struct {
	Paths []string // scan-variant only: explicit rescan list; empty means a full scan
	Deep  bool      // scan-variant only: force the enhanced video pipeline
}

// Submit validates preconditions and starts a new operation of the
// given variant, returning its operation_id. Returns an apierr.Conflict
// wrapped error if the variant already has an active operation (spec.md
// §4.4: "if any row has is_active=true, the request is rejected with a
// conflict").
func (e *Engine) Submit(variant catalog.OperationVariant, params Params) (string, error) {
	e.mu.Lock()
	if _, ok := e.running[variant]; ok {
		e.mu.Unlock()
		return "", apierr.Conflict(string(variant) + " operation already active")
	}

	active, err := e.store.ActiveOperation(variant)
	if err != nil {
		e.mu.Unlock()
		return "", err
	}
	if active != nil {
		e.mu.Unlock()
		return "", apierr.Conflict(string(variant) + " operation already active")
	}

	operationID := uuid.NewString()
	phaseName, phaseCount := initialPhase(variant, params)
	st := &catalog.OperationState{
		OperationID: operationID,
		Variant:     variant,
		IsActive:    true,
		Phase:       phaseName,
		PhaseNumber: phaseNumberFor(variant, phaseName),
		StartTime:   time.Now(),
	}
	_ = phaseCount

	ctx, cancel := context.WithCancel(context.Background())
	e.running[variant] = &runningOp{operationID: operationID, cancel: cancel}
	e.mu.Unlock()

	if err := e.wr.CreateOperationStateSync(st); err != nil {
		e.finish(variant)
		return "", err
	}

	go e.runVariant(ctx, variant, operationID, params)

	return operationID, nil
}

func (e *Engine) runVariant(ctx context.Context, variant catalog.OperationVariant, operationID string, params Params) {
	defer e.finish(variant)

	var err error
	switch variant {
	case catalog.VariantScan:
		err = e.runScan(ctx, operationID, params)
	case catalog.VariantCleanup:
		err = e.runCleanup(ctx, operationID)
	case catalog.VariantFileChanges:
		err = e.runFileChanges(ctx, operationID)
	}
	if err != nil && ctx.Err() == nil {
		logger.Error("engine: %s operation %s failed: %v", variant, operationID, err)
	}
}

func (e *Engine) finish(variant catalog.OperationVariant) {
	e.mu.Lock()
	delete(e.running, variant)
	e.mu.Unlock()
}

// Cancel requests cancellation of the active operation for variant.
// Returns false if no operation is currently active (spec.md §4.7:
// cancel returns 400 in that case).
func (e *Engine) Cancel(variant catalog.OperationVariant) (bool, error) {
	e.mu.Lock()
	op, ok := e.running[variant]
	e.mu.Unlock()
	if !ok {
		return false, nil
	}
	op.cancel()
	found, err := e.wr.RequestCancelSync(variant)
	return found, err
}

// Status returns the most recent OperationState row for variant,
// reading directly from the Catalog Store (spec.md §9 pull-only
// reader). Cheap: a single indexed SELECT, no tree walks.
func (e *Engine) Status(variant catalog.OperationVariant) (*catalog.OperationState, error) {
	return e.store.LatestOperationForVariant(variant)
}

func initialPhase(variant catalog.OperationVariant, params Params) (string, int) {
	switch variant {
	case catalog.VariantScan:
		if len(params.Paths) > 0 {
			return "scanning", 3
		}
		return "discovery", 3
	case catalog.VariantCleanup:
		return "scanning_db", 3
	case catalog.VariantFileChanges:
		return "starting", 3
	default:
		return "", 0
	}
}

func phaseNumberFor(variant catalog.OperationVariant, phase string) int {
	switch variant {
	case catalog.VariantScan:
		switch phase {
		case "discovery":
			return 1
		case "adding":
			return 2
		case "scanning":
			return 3
		}
	case catalog.VariantCleanup:
		switch phase {
		case "scanning_db":
			return 1
		case "checking_files":
			return 2
		case "deleting_entries":
			return 3
		}
	case catalog.VariantFileChanges:
		switch phase {
		case "starting":
			return 1
		case "checking_hashes":
			return 2
		case "verifying_changes":
			return 3
		}
	}
	return 1
}
