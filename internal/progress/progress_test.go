package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercentWithinPhase(t *testing.T) {
	w := Weights{0.20, 0.10, 0.70}

	assert.Equal(t, 0.0, Percent(w, 1, 0, 100))
	assert.InDelta(t, 10.0, Percent(w, 1, 50, 100), 0.001)
	assert.InDelta(t, 20.0, Percent(w, 1, 100, 100), 0.001)

	// Phase 2 starts after phase 1's full weight has accumulated.
	assert.InDelta(t, 25.0, Percent(w, 2, 50, 100), 0.001)
	assert.InDelta(t, 30.0, Percent(w, 2, 100, 100), 0.001)

	// Phase 3 accumulates phases 1+2's weight first.
	assert.InDelta(t, 30.0, Percent(w, 3, 0, 100), 0.001)
	assert.InDelta(t, 100.0, Percent(w, 3, 100, 100), 0.001)
}

func TestPercentZeroTotalDoesNotDivideByZero(t *testing.T) {
	w := ScanWeights
	assert.Equal(t, 0.0, Percent(w, 1, 0, 0))
}

func TestPercentClampsOutOfRangePhase(t *testing.T) {
	w := ScanWeights
	assert.Equal(t, 0.0, Percent(w, 0, 5, 10))
	assert.Equal(t, 0.0, Percent(w, 4, 5, 10))
}

func TestETASuppressedUntilProgress(t *testing.T) {
	_, ok := ETA(10*time.Second, 0, 100)
	assert.False(t, ok)

	_, ok = ETA(0, 10, 100)
	assert.False(t, ok)

	eta, ok := ETA(10*time.Second, 50, 100)
	assert.True(t, ok)
	assert.NotEmpty(t, eta)
}

func TestETACompleteReturnsFalse(t *testing.T) {
	_, ok := ETA(10*time.Second, 100, 100)
	assert.False(t, ok)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45))
	assert.Equal(t, "2m 5s", FormatDuration(125))
	assert.Equal(t, "1h 1m", FormatDuration(3660))
}

func TestMessageWithAndWithoutCurrentFile(t *testing.T) {
	msg := Message("scanning", "/media/videos/clip.mp4", 10, 100, "1m 0s", true)
	assert.Equal(t, "scanning: current file: clip.mp4 - 10 of 100 files ETA: 1m 0s", msg)

	msg = Message("discovery", "", 0, 0, "", false)
	assert.Equal(t, "discovery: 0 of 0 files", msg)
}
