// Package probe implements the Media Prober (spec.md §4.2): given a file
// path and a deep-scan flag, it produces a tagged verdict plus free-text
// details, the tool name, and captured (truncated) output. The prober is
// pure with respect to the catalog — it never touches the database;
// internal/engine persists its verdicts through internal/writer.
package probe

import (
	"strings"
	"time"
)

// Verdict is the tagged-variant result of probing one file (spec.md
// §9's "use tagged variants with explicit fields per verdict" design
// note). Callers switch on Kind rather than inspecting a loosely typed
// map.
type VerdictKind string

const (
	Healthy   VerdictKind = "healthy"
	Warning   VerdictKind = "warning"
	Corrupted VerdictKind = "corrupted"
	Errored   VerdictKind = "error"
)

// Verdict is what a probe call returns. Exactly one of the boolean-ish
// Kind values applies; Details carries the human-readable explanation
// for Warning/Corrupted/Errored, and Output carries the captured,
// truncated tool output.
type Verdict struct {
	Kind     VerdictKind
	Details  string // warning_details or corruption_details, depending on Kind
	Tool     string // which probe produced the verdict ("libimage", "ffprobe", "identify", "unsupported", ...)
	Output   string // truncated combined tool output
	Hash     string // content hash, hex; empty when not computed (e.g. error before read)
	Duration time.Duration
}

// HealthyVerdict builds a Healthy verdict with the given tool name.
func HealthyVerdict(tool string, d time.Duration) Verdict {
	return Verdict{Kind: Healthy, Tool: tool, Duration: d}
}

// WarningVerdict builds a Warning verdict.
func WarningVerdict(tool, details, output string, d time.Duration) Verdict {
	return Verdict{Kind: Warning, Tool: tool, Details: details, Output: output, Duration: d}
}

// CorruptedVerdict builds a Corrupted verdict.
func CorruptedVerdict(tool, details, output string, d time.Duration) Verdict {
	return Verdict{Kind: Corrupted, Tool: tool, Details: details, Output: output, Duration: d}
}

// ErrorVerdict builds an Errored verdict for an exception during
// probing (spec.md §4.2 "an exception during probing yields
// scan_status=error").
func ErrorVerdict(tool, details string, d time.Duration) Verdict {
	return Verdict{Kind: Errored, Tool: tool, Details: details, Duration: d}
}

// MediaType classifies a file by extension (spec.md §4.2).
type MediaType string

const (
	TypeVideo       MediaType = "video"
	TypeImage       MediaType = "image"
	TypeUnsupported MediaType = "unsupported"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tiff": true, ".webp": true,
}

// ClassifyExtension returns the MediaType for a file extension with a
// leading dot, e.g. ".mp4", matched case-insensitively.
func ClassifyExtension(ext string) MediaType {
	ext = strings.ToLower(ext)
	switch {
	case videoExtensions[ext]:
		return TypeVideo
	case imageExtensions[ext]:
		return TypeImage
	default:
		return TypeUnsupported
	}
}

// MimeLikeType returns the coarse "video/..." or "image/..." MIME-like
// string the catalog stores for file_type (spec.md §3).
func MimeLikeType(ext string) string {
	switch ClassifyExtension(ext) {
	case TypeVideo:
		return "video/" + trimDot(ext)
	case TypeImage:
		return "image/" + trimDot(ext)
	default:
		return "application/octet-stream"
	}
}

func trimDot(ext string) string {
	if len(ext) > 0 && ext[0] == '.' {
		return ext[1:]
	}
	return ext
}
