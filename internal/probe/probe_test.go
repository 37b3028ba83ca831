package probe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashIsStableAndDiffersOnContentChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	h1, err := ContentHash(path)
	require.NoError(t, err)
	h2, err := ContentHash(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	require.NoError(t, os.WriteFile(path, []byte("world"), 0o644))
	h3, err := ContentHash(path)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestContentHashErrorsOnMissingFile(t *testing.T) {
	_, err := ContentHash(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}

func TestTruncateOutputJoinsUntruncatedParts(t *testing.T) {
	out := TruncateOutput("line one", "line two")
	assert.Equal(t, "line one\nline two", out)
}

func TestTruncateOutputAppendsSentinelOnCharLimit(t *testing.T) {
	big := strings.Repeat("x", maxOutputChars+100)
	out := TruncateOutput(big)
	assert.True(t, strings.HasSuffix(out, truncationSentinel))
}

func TestTruncateOutputAppendsSentinelOnLineLimit(t *testing.T) {
	lines := make([]string, maxOutputLines+10)
	for i := range lines {
		lines[i] = "l"
	}
	out := TruncateOutput(strings.Join(lines, "\n"))
	assert.True(t, strings.HasSuffix(out, truncationSentinel))
	assert.Equal(t, maxOutputLines+1, len(strings.Split(out, "\n")))
}

func TestMimeLikeType(t *testing.T) {
	assert.Equal(t, "video/mp4", MimeLikeType(".mp4"))
	assert.Equal(t, "image/png", MimeLikeType(".png"))
	assert.Equal(t, "application/octet-stream", MimeLikeType(".txt"))
}
