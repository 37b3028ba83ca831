package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"mediaguard/internal/catalog"
)

func newTestReportHandlers(t *testing.T) (*ReportHandlers, *catalog.Store) {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewReportHandlers(store), store
}

func TestReportsLatestReturnsNotFoundWhenNoneExist(t *testing.T) {
	h, _ := newTestReportHandlers(t)
	r := mux.NewRouter()
	h.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/latest/scan", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportsLatestRejectsInvalidVariant(t *testing.T) {
	h, _ := newTestReportHandlers(t)
	r := mux.NewRouter()
	h.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/latest/bogus", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportsListGetAndDelete(t *testing.T) {
	h, store := newTestReportHandlers(t)
	r := mux.NewRouter()
	h.Mount(r)

	require.NoError(t, catalog.InsertReport(store.WriterDB(), &catalog.ScanReport{
		ReportID: "rep-1", ScanType: catalog.VariantScan,
		StartTime: time.Now().Add(-time.Minute), EndTime: time.Now(), FilesScanned: 4,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports?variant=scan", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var listBody struct {
		Items []catalog.ScanReport `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listBody))
	require.Len(t, listBody.Items, 1)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports/rep-1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/reports/rep-1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports/rep-1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
