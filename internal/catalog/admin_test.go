package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExclusionsCRUD(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddExclusion(ExclusionPath, "/media/.recycle")
	require.NoError(t, err)

	list, err := s.ListExclusions()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "/media/.recycle", list[0].Value)

	require.NoError(t, s.RemoveExclusion(id))
	list, err = s.ListExclusions()
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestIgnoredPatternsActiveOnly(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddIgnoredPattern("benign warning")
	require.NoError(t, err)

	active, err := s.ActiveIgnoredPatterns()
	require.NoError(t, err)
	require.Equal(t, []string{"benign warning"}, active)

	require.NoError(t, s.RemoveIgnoredPattern(id))
	active, err = s.ActiveIgnoredPatterns()
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestScanConfigurationsDedupeByPath(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddScanConfiguration("/media/videos")
	require.NoError(t, err)
	_, err = s.AddScanConfiguration("/media/videos")
	require.NoError(t, err)

	roots, err := s.ActiveRoots()
	require.NoError(t, err)
	require.Equal(t, []string{"/media/videos"}, roots)
}

func TestSchedulesCRUD(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddSchedule("nightly-scan", "0 2 * * *", VariantScan)
	require.NoError(t, err)

	list, err := s.ListSchedules()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "nightly-scan", list[0].Name)
	require.True(t, list[0].Active)

	require.NoError(t, s.RemoveSchedule(id))
	list, err = s.ListSchedules()
	require.NoError(t, err)
	require.Empty(t, list)
}
