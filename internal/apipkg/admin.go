package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"mediaguard/internal/catalog"
	"mediaguard/internal/schedule"
)

// AdminHandlers implements spec.md §4.7's administration routes: simple
// CRUD with validation over exclusions, ignored patterns, schedules,
// and scan configurations (scan roots).
type AdminHandlers struct {
	store *catalog.Store
	sched *schedule.Runner
}

func NewAdminHandlers(store *catalog.Store, sched *schedule.Runner) *AdminHandlers {
	return &AdminHandlers{store: store, sched: sched}
}

func (h *AdminHandlers) Mount(r *mux.Router) {
	r.HandleFunc("/api/v1/admin/exclusions", h.listExclusions).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/admin/exclusions", h.addExclusion).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/admin/exclusions/{id:[0-9]+}", h.removeExclusion).Methods(http.MethodDelete)

	r.HandleFunc("/api/v1/admin/ignored-patterns", h.listIgnoredPatterns).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/admin/ignored-patterns", h.addIgnoredPattern).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/admin/ignored-patterns/{id:[0-9]+}", h.removeIgnoredPattern).Methods(http.MethodDelete)

	r.HandleFunc("/api/v1/admin/scan-roots", h.listScanRoots).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/admin/scan-roots", h.addScanRoot).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/admin/scan-roots/{id:[0-9]+}", h.removeScanRoot).Methods(http.MethodDelete)

	r.HandleFunc("/api/v1/admin/schedules", h.listSchedules).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/admin/schedules", h.addSchedule).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/admin/schedules/{id:[0-9]+}", h.removeSchedule).Methods(http.MethodDelete)
}

// --- exclusions -----------------------------------------------------------

func (h *AdminHandlers) listExclusions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListExclusions()
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, rows)
}

func (h *AdminHandlers) addExclusion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	if err := DecodeJSON(r, &body); err != nil || body.Value == "" {
		RespondError(w, http.StatusBadRequest, "value is required")
		return
	}
	typ := catalog.ExclusionType(body.Type)
	if typ != catalog.ExclusionPath && typ != catalog.ExclusionExtension {
		RespondError(w, http.StatusBadRequest, "type must be \"path\" or \"extension\"")
		return
	}
	id, err := h.store.AddExclusion(typ, body.Value)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AdminHandlers) removeExclusion(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err := h.store.RemoveExclusion(id); err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- ignored error patterns -------------------------------------------------

func (h *AdminHandlers) listIgnoredPatterns(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListIgnoredPatterns()
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, rows)
}

func (h *AdminHandlers) addIgnoredPattern(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pattern string `json:"pattern"`
	}
	if err := DecodeJSON(r, &body); err != nil || body.Pattern == "" {
		RespondError(w, http.StatusBadRequest, "pattern is required")
		return
	}
	id, err := h.store.AddIgnoredPattern(body.Pattern)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AdminHandlers) removeIgnoredPattern(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err := h.store.RemoveIgnoredPattern(id); err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- scan roots (scan_configurations) --------------------------------------

func (h *AdminHandlers) listScanRoots(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListScanConfigurations()
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, rows)
}

func (h *AdminHandlers) addScanRoot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if err := DecodeJSON(r, &body); err != nil || body.Path == "" {
		RespondError(w, http.StatusBadRequest, "path is required")
		return
	}
	id, err := h.store.AddScanConfiguration(body.Path)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AdminHandlers) removeScanRoot(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err := h.store.RemoveScanConfiguration(id); err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- schedules --------------------------------------------------------------

func (h *AdminHandlers) listSchedules(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListSchedules()
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, rows)
}

func (h *AdminHandlers) addSchedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name           string `json:"name"`
		TimeExpression string `json:"time_expression"`
		Variant        string `json:"variant"`
	}
	if err := DecodeJSON(r, &body); err != nil || body.Name == "" || body.TimeExpression == "" {
		RespondError(w, http.StatusBadRequest, "name and time_expression are required")
		return
	}
	variant := catalog.OperationVariant(body.Variant)
	switch variant {
	case catalog.VariantScan, catalog.VariantCleanup, catalog.VariantFileChanges:
	default:
		RespondError(w, http.StatusBadRequest, "variant must be scan, cleanup, or file_changes")
		return
	}
	id, err := h.store.AddSchedule(body.Name, body.TimeExpression, variant)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.sched.Reload(); err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AdminHandlers) removeSchedule(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err := h.store.RemoveSchedule(id); err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.sched.Reload(); err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
