package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

func TestWalkSelectsOnlySupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, dir, "a.mp4", now)
	writeFile(t, dir, "b.txt", now)
	writeFile(t, dir, "c.png", now)

	results, err := Walk(context.Background(), Options{Roots: []string{dir}, MaxWorkers: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	var paths []string
	for _, r := range results {
		paths = append(paths, filepath.Base(r.Path))
	}
	require.ElementsMatch(t, []string{"a.mp4", "c.png"}, paths)
}

func TestWalkHonorsPathAndExtensionExclusions(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "excluded")
	require.NoError(t, os.Mkdir(sub, 0o755))
	now := time.Now()
	writeFile(t, dir, "keep.mp4", now)
	writeFile(t, sub, "skip.mp4", now)
	writeFile(t, dir, "skip.gif", now)

	results, err := Walk(context.Background(), Options{
		Roots: []string{dir},
		Exclusions: Exclusions{
			Paths:      []string{sub},
			Extensions: map[string]bool{".gif": true},
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "keep.mp4", filepath.Base(results[0].Path))
}

func TestWalkSkipsExistingPaths(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	existing := writeFile(t, dir, "old.mp4", now)
	writeFile(t, dir, "new.mp4", now)

	results, err := Walk(context.Background(), Options{
		Roots:        []string{dir},
		ExistingPath: func(path string) bool { return path == existing },
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "new.mp4", filepath.Base(results[0].Path))
}

func TestWalkOrdersByCreationTimeAscending(t *testing.T) {
	dir := t.TempDir()
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	writeFile(t, dir, "newer.mp4", newer)
	writeFile(t, dir, "older.mp4", older)

	results, err := Walk(context.Background(), Options{Roots: []string{dir}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "older.mp4", filepath.Base(results[0].Path))
	require.Equal(t, "newer.mp4", filepath.Base(results[1].Path))
}

func TestWalkRespectsGlobalLimit(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	for i := 0; i < 5; i++ {
		writeFile(t, dir, string(rune('a'+i))+".mp4", now)
	}

	results, err := Walk(context.Background(), Options{Roots: []string{dir}, GlobalLimit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestWalkStopsOnCancelledContext(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	for i := 0; i < 5; i++ {
		writeFile(t, dir, string(rune('a'+i))+".mp4", now)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Walk(ctx, Options{Roots: []string{dir}})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestWalkReportsProgress(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, dir, "a.mp4", now)

	var lastExamined, lastSelected int64
	_, err := Walk(context.Background(), Options{
		Roots: []string{dir},
		OnProgress: func(examined, selected int64) {
			lastExamined, lastSelected = examined, selected
		},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, lastExamined)
	require.EqualValues(t, 1, lastSelected)
}
