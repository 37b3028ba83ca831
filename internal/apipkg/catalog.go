package api

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"mediaguard/internal/catalog"
	"mediaguard/internal/logger"
	"mediaguard/internal/writer"
)

// CatalogHandlers serves spec.md §4.7's catalog-query and file-streaming
// routes against a Store read path, plus the one catalog write
// (marked_as_good) that belongs alongside it rather than under admin.
type CatalogHandlers struct {
	store  *catalog.Store
	writer *writer.Serializer
}

func NewCatalogHandlers(store *catalog.Store, wr *writer.Serializer) *CatalogHandlers {
	return &CatalogHandlers{store: store, writer: wr}
}

// Mount attaches the catalog routes to r.
func (h *CatalogHandlers) Mount(r *mux.Router) {
	r.HandleFunc("/api/v1/files", h.List).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/files/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/stats", h.Aggregate).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/system-info", h.SystemInfo).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/files/{id:[0-9]+}/stream", h.Stream).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/files/{id:[0-9]+}/download", h.Download).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/files/{id:[0-9]+}/mark-good", h.MarkGood).Methods(http.MethodPost)
}

// List implements the paginated catalog query (spec.md §4.1/§4.7):
// whitelisted filters and sort column, bounded page size.
func (h *CatalogHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.ListFilter{
		Status:       catalog.ScanStatus(q.Get("status")),
		PathContains: q.Get("path_contains"),
		SortColumn:   q.Get("sort"),
		SortDesc:     q.Get("order") == "desc",
		Limit:        atoiDefault(q.Get("limit"), 50),
		Offset:       atoiDefault(q.Get("offset"), 0),
	}
	if v := q.Get("corrupted"); v != "" {
		b := v == "true" || v == "1"
		f.Corrupted = &b
	}
	if v := q.Get("has_warnings"); v != "" {
		b := v == "true" || v == "1"
		f.HasWarnings = &b
	}
	if v := q.Get("marked_good"); v != "" {
		b := v == "true" || v == "1"
		f.MarkedGood = &b
	}

	rows, total, err := h.store.ListScanResults(f)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"items": rows,
		"total": total,
		"limit": f.Limit,
		"offset": f.Offset,
	})
}

func (h *CatalogHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	row, err := h.store.GetByID(id)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if row == nil {
		RespondError(w, http.StatusNotFound, "no such file record")
		return
	}
	RespondJSON(w, http.StatusOK, row)
}

func (h *CatalogHandlers) Aggregate(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Aggregate()
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, stats)
}

func (h *CatalogHandlers) SystemInfo(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Aggregate()
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"catalog": stats,
	})
}

func (h *CatalogHandlers) MarkGood(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var body struct {
		MarkedAsGood bool `json:"marked_as_good"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.writer.SetMarkedAsGood(id, body.MarkedAsGood)
	RespondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Stream implements spec.md §6's byte-range file serving: 206 responses
// with Content-Range honored in 1 MiB chunks.
func (h *CatalogHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, false)
}

// Download serves the same file as a plain attachment, no range cap.
func (h *CatalogHandlers) Download(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, true)
}

const maxRangeChunk = 1 << 20 // 1 MiB per spec.md §6

func (h *CatalogHandlers) serveFile(w http.ResponseWriter, r *http.Request, download bool) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	row, err := h.store.GetByID(id)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if row == nil {
		RespondError(w, http.StatusNotFound, "no such file record")
		return
	}

	f, err := os.Open(row.FilePath)
	if err != nil {
		RespondError(w, http.StatusNotFound, "file not found on disk")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	size := info.Size()

	if download {
		w.Header().Set("Content-Disposition", "attachment; filename=\""+filenameOf(row.FilePath)+"\"")
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentTypeFor(row.FileType))

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" || download {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, f)
		return
	}

	start, end, ok := parseRange(rangeHeader, size)
	if !ok {
		w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if end-start+1 > maxRangeChunk {
		end = start + maxRangeChunk - 1
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(size, 10))
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	if _, err := io.CopyN(w, f, end-start+1); err != nil {
		logger.Trace("stream: copy interrupted for %s: %v", row.FilePath, err)
	}
}

// parseRange parses a single-range "bytes=start-end" header.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	header = strings.TrimPrefix(header, "bytes=")
	parts := strings.SplitN(header, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	if parts[0] == "" {
		suffix, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || suffix <= 0 {
			return 0, 0, false
		}
		start = size - suffix
		if start < 0 {
			start = 0
		}
		return start, size - 1, true
	}
	s, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || s < 0 || s >= size {
		return 0, 0, false
	}
	if parts[1] == "" {
		return s, size - 1, true
	}
	e, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || e < s {
		return 0, 0, false
	}
	if e >= size {
		e = size - 1
	}
	return s, e, true
}

func filenameOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

func contentTypeFor(fileType string) string {
	if fileType == "" {
		return "application/octet-stream"
	}
	return fileType
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
