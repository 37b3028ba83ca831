package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"mediaguard/internal/catalog"
	"mediaguard/internal/writer"
)

func newTestCatalogStore(t *testing.T) (*catalog.Store, *writer.Serializer) {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	wr := writer.New(store)
	wr.Start()
	t.Cleanup(wr.Stop)
	return store, wr
}

func TestCatalogListReturnsInsertedRows(t *testing.T) {
	store, wr := newTestCatalogStore(t)
	now := time.Now()
	require.NoError(t, catalog.InsertNewFile(store.WriterDB(), catalog.NewFileInsert{
		FilePath: "/media/a.mp4", CreationDate: now, LastModified: now, DiscoveredDate: now,
	}))

	h := NewCatalogHandlers(store, wr)
	r := mux.NewRouter()
	h.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files?limit=10", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []catalog.ScanResult `json:"items"`
		Total int64                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 1, body.Total)
	require.Len(t, body.Items, 1)
}

func TestCatalogGetReturnsNotFoundForMissingID(t *testing.T) {
	store, wr := newTestCatalogStore(t)
	h := NewCatalogHandlers(store, wr)
	r := mux.NewRouter()
	h.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/9999", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogMarkGoodAcceptsAndPersists(t *testing.T) {
	store, wr := newTestCatalogStore(t)
	now := time.Now()
	require.NoError(t, catalog.InsertNewFile(store.WriterDB(), catalog.NewFileInsert{
		FilePath: "/media/b.mp4", CreationDate: now, LastModified: now, DiscoveredDate: now,
	}))
	row, err := store.GetByPath("/media/b.mp4")
	require.NoError(t, err)

	h := NewCatalogHandlers(store, wr)
	r := mux.NewRouter()
	h.Mount(r)

	body, _ := json.Marshal(map[string]bool{"marked_as_good": true})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/"+strconv.FormatInt(row.ID, 10)+"/mark-good", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Eventually(t, func() bool {
		got, err := store.GetByID(row.ID)
		return err == nil && got.MarkedAsGood
	}, time.Second, 5*time.Millisecond)
}

func TestCatalogAggregateReturnsStats(t *testing.T) {
	store, wr := newTestCatalogStore(t)
	h := NewCatalogHandlers(store, wr)
	r := mux.NewRouter()
	h.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats catalog.AggregateStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.EqualValues(t, 0, stats.Total)
}

