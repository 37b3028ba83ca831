package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"mediaguard/internal/apierr"
	"mediaguard/internal/catalog"
	"mediaguard/internal/engine"
	"mediaguard/internal/progress"
)

// OperationHandlers implements spec.md §4.7's operation-control and
// per-variant status routes, all funneled through Engine's single
// Submit/Cancel/Status entry points.
type OperationHandlers struct {
	store *catalog.Store
	eng   *engine.Engine
}

func NewOperationHandlers(store *catalog.Store, eng *engine.Engine) *OperationHandlers {
	return &OperationHandlers{store: store, eng: eng}
}

func (h *OperationHandlers) Mount(r *mux.Router) {
	r.HandleFunc("/api/v1/scan/start", h.startScan).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/scan/rescan", h.startRescan).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/scan/cancel", h.cancel(catalog.VariantScan)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/scan/status", h.status(catalog.VariantScan)).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/cleanup/start", h.start(catalog.VariantCleanup)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/cleanup/cancel", h.cancel(catalog.VariantCleanup)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/cleanup/status", h.status(catalog.VariantCleanup)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/cleanup/reset", h.reset(catalog.VariantCleanup)).Methods(http.MethodPost)

	r.HandleFunc("/api/v1/file-changes/start", h.start(catalog.VariantFileChanges)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/file-changes/cancel", h.cancel(catalog.VariantFileChanges)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/file-changes/status", h.status(catalog.VariantFileChanges)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/file-changes/reset", h.reset(catalog.VariantFileChanges)).Methods(http.MethodPost)

	r.HandleFunc("/api/v1/scan/recover-stuck", h.recoverStuckScan).Methods(http.MethodPost)
}

func (h *OperationHandlers) startScan(w http.ResponseWriter, r *http.Request) {
	h.submit(w, catalog.VariantScan, engine.Params{})
}

func (h *OperationHandlers) startRescan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Paths []string `json:"paths"`
		Deep  bool     `json:"deep"`
	}
	if err := DecodeJSON(r, &body); err != nil || len(body.Paths) == 0 {
		RespondError(w, http.StatusBadRequest, "paths is required")
		return
	}
	h.submit(w, catalog.VariantScan, engine.Params{Paths: body.Paths, Deep: body.Deep})
}

func (h *OperationHandlers) start(variant catalog.OperationVariant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.submit(w, variant, engine.Params{})
	}
}

func (h *OperationHandlers) submit(w http.ResponseWriter, variant catalog.OperationVariant, params engine.Params) {
	operationID, err := h.eng.Submit(variant, params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, map[string]string{"operation_id": operationID})
}

func (h *OperationHandlers) cancel(variant catalog.OperationVariant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		found, err := h.eng.Cancel(variant)
		if err != nil {
			RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !found {
			RespondError(w, http.StatusBadRequest, "no active "+string(variant)+" operation")
			return
		}
		RespondJSON(w, http.StatusOK, map[string]string{"status": "cancel requested"})
	}
}

// reset answers 409 while an operation of the variant is active and
// 200 {"status":"ok"} otherwise. It does not modify any OperationState
// or catalog row; recover-stuck-scan is the endpoint that resets
// scan_status=scanning catalog rows.
func (h *OperationHandlers) reset(variant catalog.OperationVariant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, err := h.store.ActiveOperation(variant)
		if err != nil {
			RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if active != nil {
			RespondError(w, http.StatusConflict, string(variant)+" operation still active")
			return
		}
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (h *OperationHandlers) status(variant catalog.OperationVariant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := h.eng.Status(variant)
		if err != nil {
			RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		RespondJSON(w, http.StatusOK, statusPayload(st))
	}
}

// statusPayload flattens an OperationState row into the response shape
// spec.md §4.7 names: is_running, phase, phase_number, total_phases,
// phase_current, phase_total, files_processed, total_files,
// current_file, progress_message, progress_percentage, and (when
// active) duration_seconds/start_time.
func statusPayload(st *catalog.OperationState) map[string]interface{} {
	if st == nil {
		return map[string]interface{}{"is_running": false}
	}
	payload := map[string]interface{}{
		"is_running":          st.IsActive,
		"operation_id":        st.OperationID,
		"phase":               st.Phase,
		"phase_number":        st.PhaseNumber,
		"total_phases":        3,
		"phase_current":       st.PhaseCurrent,
		"phase_total":         st.PhaseTotal,
		"files_processed":     st.FilesProcessed,
		"total_files":         st.TotalFiles,
		"current_file":        st.CurrentFile,
		"progress_message":    st.ProgressMessage,
		"cancel_requested":    st.CancelRequested,
		"error_message":       st.ErrorMessage,
		"estimated_total":     st.EstimatedTotal,
		"discovery_count":     st.DiscoveryCount,
		"orphaned_found":      st.OrphanedFound,
		"changes_found":       st.ChangesFound,
		"corrupted_found":     st.CorruptedFound,
		"progress_percentage": progress.Percent(weightsFor(st.Variant), st.PhaseNumber, st.PhaseCurrent, st.PhaseTotal),
	}
	if st.IsActive {
		payload["duration_seconds"] = time.Since(st.StartTime).Seconds()
		payload["start_time"] = st.StartTime
	}
	return payload
}

func weightsFor(variant catalog.OperationVariant) progress.Weights {
	switch variant {
	case catalog.VariantCleanup:
		return progress.CleanupWeights
	case catalog.VariantFileChanges:
		return progress.FileChangesWeights
	default:
		return progress.ScanWeights
	}
}

func (h *OperationHandlers) recoverStuckScan(w http.ResponseWriter, r *http.Request) {
	n, err := h.eng.RecoverStuckScan()
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, map[string]int64{"reset_count": n})
}

func writeEngineError(w http.ResponseWriter, err error) {
	RespondError(w, apierr.StatusCode(err), err.Error())
}
