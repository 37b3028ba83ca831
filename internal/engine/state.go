package engine

import (
	"context"
	"encoding/json"
	"time"

	"mediaguard/internal/catalog"
	"mediaguard/internal/progress"
)

func encodeChanges(changes []changeDescriptor) string {
	if len(changes) == 0 {
		return ""
	}
	b, err := json.Marshal(changes)
	if err != nil {
		return ""
	}
	return string(b)
}

// run tracks the mutable fields of one operation's OperationState as it
// progresses, so each phase only needs to set the fields it owns before
// calling snapshot.
type run struct {
	operationID string
	variant     catalog.OperationVariant
	start       time.Time
	weights     progress.Weights

	phase        string
	phaseNumber  int
	phaseCurrent int64
	phaseTotal   int64
	processed    int64
	total        int64
	currentFile  string

	estimatedTotal int64
	discoveryCount int64
	orphanedFound  int64
	changesFound   int64
	corruptedFound int64
	changedPaths   []changeDescriptor
}

type changeDescriptor struct {
	FilePath    string `json:"file_path"`
	ChangeType  string `json:"change_type"`
	StoredHash  string `json:"stored_hash,omitempty"`
	CurrentHash string `json:"current_hash,omitempty"`
}

func newRun(operationID string, variant catalog.OperationVariant, weights progress.Weights, phase string, phaseNumber int) *run {
	return &run{
		operationID: operationID,
		variant:     variant,
		start:       time.Now(),
		weights:     weights,
		phase:       phase,
		phaseNumber: phaseNumber,
	}
}

func (r *run) setPhase(name string, number int, total int64) {
	r.phase = name
	r.phaseNumber = number
	r.phaseCurrent = 0
	r.phaseTotal = total
}

// snapshot builds the OperationState row to persist for the run's
// current in-memory fields.
func (r *run) snapshot(isActive bool, endTime *time.Time, errMsg string, cancelRequested bool) *catalog.OperationState {
	st := &catalog.OperationState{
		OperationID:      r.operationID,
		Variant:          r.variant,
		IsActive:         isActive,
		Phase:            r.phase,
		PhaseNumber:      r.phaseNumber,
		PhaseCurrent:     r.phaseCurrent,
		PhaseTotal:       r.phaseTotal,
		FilesProcessed:   r.processed,
		TotalFiles:       r.total,
		CurrentFile:      r.currentFile,
		ErrorMessage:     errMsg,
		CancelRequested:  cancelRequested,
		StartTime:        r.start,
		EndTime:          endTime,
		EstimatedTotal:   r.estimatedTotal,
		DiscoveryCount:   r.discoveryCount,
		OrphanedFound:    r.orphanedFound,
		ChangesFound:     r.changesFound,
		CorruptedFound:   r.corruptedFound,
		ChangedFilesJSON: encodeChanges(r.changedPaths),
	}

	eta, etaOK := progress.ETA(time.Since(r.start), r.processed, r.total)
	st.ProgressMessage = progress.Message(r.phase, r.currentFile, r.processed, r.total, eta, etaOK)
	return st
}

func (r *run) percent() float64 {
	return progress.Percent(r.weights, r.phaseNumber, r.phaseCurrent, r.phaseTotal)
}

func cancelled(ctx context.Context) bool { return ctx.Err() != nil }
