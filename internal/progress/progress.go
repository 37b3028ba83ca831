// Package progress implements the Progress Tracker (spec.md §4.6): it
// turns a phase_number/phase_current/phase_total triple plus elapsed
// wall-clock time into a percentage, an ETA string, and a user-facing
// message. It holds no state of its own — every call is a pure function
// of the values the Operation Engine already tracks.
package progress

import (
	"fmt"
	"path/filepath"
	"time"
)

// Weights names a phase sequence's progress weights, in phase order,
// summing to 1.0. The three operation variants each define their own.
type Weights []float64

var (
	ScanWeights        = Weights{0.20, 0.10, 0.70}
	CleanupWeights     = Weights{0.10, 0.80, 0.10}
	FileChangesWeights = Weights{0.05, 0.80, 0.15}
)

// Percent implements spec.md's formula:
//
//	percent = (Σ_{i<n} w_i + w_n * phase_current/phase_total) * 100
//
// phaseNumber is 1-indexed. Clamped to [0, 100].
func Percent(w Weights, phaseNumber int, phaseCurrent, phaseTotal int64) float64 {
	if phaseNumber < 1 || phaseNumber > len(w) {
		return 0
	}
	var sum float64
	for i := 0; i < phaseNumber-1; i++ {
		sum += w[i]
	}
	if phaseTotal > 0 {
		sum += w[phaseNumber-1] * float64(phaseCurrent) / float64(phaseTotal)
	}
	pct := sum * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ETA computes a remaining-time estimate from elapsed wall-clock time
// and processed/total file counts. It returns ("", false) until
// processed > 0, matching spec.md's "ETA is suppressed until processed >
// 0" rule.
func ETA(elapsed time.Duration, processed, total int64) (string, bool) {
	if processed <= 0 || elapsed <= 0 || total <= processed {
		return "", false
	}
	rate := float64(processed) / elapsed.Seconds()
	if rate <= 0 {
		return "", false
	}
	remainingSeconds := float64(total-processed) / rate
	return FormatDuration(remainingSeconds), true
}

// FormatDuration renders seconds as "Ns", "Nm Ks", or "Nh Km" per
// spec.md §4.6.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds + 0.5)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// Message formats the user-facing progress string:
//
//	"{phase_name}: current file: {basename} - {processed} of {total} files ETA: {eta}"
//
// or, when currentFile is empty, the same without the "current file"
// clause. When eta is not yet available the trailing "ETA: ..." clause
// is omitted entirely.
func Message(phaseName string, currentFile string, processed, total int64, eta string, etaOK bool) string {
	msg := phaseName + ":"
	if currentFile != "" {
		msg += fmt.Sprintf(" current file: %s -", filepath.Base(currentFile))
	}
	msg += fmt.Sprintf(" %d of %d files", processed, total)
	if etaOK {
		msg += " ETA: " + eta
	}
	return msg
}
