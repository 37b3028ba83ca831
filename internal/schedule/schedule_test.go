package schedule

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mediaguard/internal/catalog"
	"mediaguard/internal/engine"
)

type recordingSubmitter struct {
	calls []catalog.OperationVariant
}

func (s *recordingSubmitter) Submit(variant catalog.OperationVariant, params engine.Params) (string, error) {
	s.calls = append(s.calls, variant)
	return "op-1", nil
}

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCronSpecAcceptsFiveFieldExpression(t *testing.T) {
	spec, err := cronSpec("0 */6 * * *")
	require.NoError(t, err)
	require.Equal(t, "0 */6 * * *", spec)
}

func TestCronSpecAcceptsEveryDuration(t *testing.T) {
	spec, err := cronSpec("@every 30m")
	require.NoError(t, err)
	require.Equal(t, "@every 30m", spec)
}

func TestCronSpecRejectsMalformed(t *testing.T) {
	_, err := cronSpec("not a cron expression")
	require.Error(t, err)

	_, err = cronSpec("")
	require.Error(t, err)
}

func TestReloadRegistersActiveSchedulesOnly(t *testing.T) {
	store := newTestStore(t)
	sub := &recordingSubmitter{}
	r := New(store, sub)

	id, err := store.AddSchedule("nightly", "0 2 * * *", catalog.VariantScan)
	require.NoError(t, err)

	require.NoError(t, r.Reload())
	require.Len(t, r.entries, 1)

	require.NoError(t, store.RemoveSchedule(id))
	require.NoError(t, r.Reload())
	require.Empty(t, r.entries)
}

func TestReloadSkipsInvalidTimeExpression(t *testing.T) {
	store := newTestStore(t)
	sub := &recordingSubmitter{}
	r := New(store, sub)

	_, err := store.AddSchedule("broken", "garbage", catalog.VariantScan)
	require.NoError(t, err)

	require.NoError(t, r.Reload())
	require.Empty(t, r.entries)
}

func TestFireCallsSubmitter(t *testing.T) {
	store := newTestStore(t)
	sub := &recordingSubmitter{}
	r := New(store, sub)

	r.fire(catalog.VariantCleanup, "test-schedule")
	require.Equal(t, []catalog.OperationVariant{catalog.VariantCleanup}, sub.calls)
}
