package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"mediaguard/internal/catalog"
)

// ReportHandlers implements spec.md §4.7's report routes: list with
// filters and pagination, fetch one, fetch latest per type, delete one.
// Multi-report bundle download is explicitly out of scope (spec.md §1).
type ReportHandlers struct {
	store *catalog.Store
}

func NewReportHandlers(store *catalog.Store) *ReportHandlers {
	return &ReportHandlers{store: store}
}

func (h *ReportHandlers) Mount(r *mux.Router) {
	r.HandleFunc("/api/v1/reports", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/reports/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/reports/{id}", h.delete).Methods(http.MethodDelete)
	r.HandleFunc("/api/v1/reports/latest/{variant}", h.latest).Methods(http.MethodGet)
}

func (h *ReportHandlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	variant := catalog.OperationVariant(q.Get("variant"))
	limit := atoiDefault(q.Get("limit"), 20)
	offset := atoiDefault(q.Get("offset"), 0)

	rows, err := h.store.ListReports(variant, limit, offset)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"items": rows})
}

func (h *ReportHandlers) get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	row, err := h.store.GetReport(id)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if row == nil {
		RespondError(w, http.StatusNotFound, "no such report")
		return
	}
	RespondJSON(w, http.StatusOK, row)
}

func (h *ReportHandlers) latest(w http.ResponseWriter, r *http.Request) {
	variant := catalog.OperationVariant(mux.Vars(r)["variant"])
	switch variant {
	case catalog.VariantScan, catalog.VariantCleanup, catalog.VariantFileChanges:
	default:
		RespondError(w, http.StatusBadRequest, "variant must be scan, cleanup, or file_changes")
		return
	}
	row, err := h.store.LatestReport(variant)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if row == nil {
		RespondError(w, http.StatusNotFound, "no report for this variant yet")
		return
	}
	RespondJSON(w, http.StatusOK, row)
}

func (h *ReportHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteReport(id); err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
