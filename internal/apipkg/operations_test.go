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
	"mediaguard/internal/engine"
	"mediaguard/internal/writer"
)

func newTestOperationHandlers(t *testing.T) (*OperationHandlers, *catalog.Store, *engine.Engine) {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	wr := writer.New(store)
	wr.Start()
	t.Cleanup(wr.Stop)

	eng := engine.New(store, wr, engine.Config{WorkerCount: 2},
		func() ([]string, error) { return nil, nil },
		func() ([]catalog.Exclusion, error) { return nil, nil },
		func() ([]string, error) { return nil, nil },
	)
	return NewOperationHandlers(store, eng), store, eng
}

func TestOperationsStartCleanupThenStatusReportsCompleted(t *testing.T) {
	h, _, eng := newTestOperationHandlers(t)
	r := mux.NewRouter()
	h.Mount(r)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cleanup/start", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started struct {
		OperationID string `json:"operation_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.NotEmpty(t, started.OperationID)

	require.Eventually(t, func() bool {
		st, err := eng.Status(catalog.VariantCleanup)
		return err == nil && st != nil && !st.IsActive
	}, 2*time.Second, 10*time.Millisecond)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cleanup/status", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, false, payload["is_running"])
	require.Equal(t, "completed", payload["phase"])
}

func TestOperationsStartConflictReturns409(t *testing.T) {
	h, _, _ := newTestOperationHandlers(t)
	r := mux.NewRouter()
	h.Mount(r)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/start", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/scan/start", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestOperationsCancelWithNoneActiveReturns400(t *testing.T) {
	h, _, _ := newTestOperationHandlers(t)
	r := mux.NewRouter()
	h.Mount(r)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/cancel", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperationsRecoverStuckScanReturnsCount(t *testing.T) {
	h, store, _ := newTestOperationHandlers(t)
	r := mux.NewRouter()
	h.Mount(r)

	now := time.Now()
	require.NoError(t, catalog.InsertNewFile(store.WriterDB(), catalog.NewFileInsert{
		FilePath: "/media/x.mp4", CreationDate: now, LastModified: now, DiscoveredDate: now,
	}))
	row, err := store.GetByPath("/media/x.mp4")
	require.NoError(t, err)
	require.NoError(t, catalog.MarkScanning(store.WriterDB(), row.ID))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/recover-stuck", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ResetCount int64 `json:"reset_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 1, body.ResetCount)
}
