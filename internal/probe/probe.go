package probe

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// Request bundles everything one Probe call needs: the caller (Operation
// Engine) resolves the file's extension, deep-scan flag, and active
// ignored-error patterns before calling in, keeping this package free of
// any catalog dependency.
type Request struct {
	Path            string
	Deep            bool
	IgnoredPatterns []string
}

// Probe classifies one file per spec.md §4.2 and returns its verdict.
// Any panic-worthy condition is converted to an Errored verdict rather
// than propagated, since a worker-local failure must never abort the
// whole operation (spec.md §7).
func Probe(ctx context.Context, req Request) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v = ErrorVerdict("probe", "panic during probe", 0)
		}
	}()

	start := time.Now()
	ext := strings.ToLower(filepath.Ext(req.Path))

	switch ClassifyExtension(ext) {
	case TypeImage:
		v = probeImage(ctx, req.Path, ext, req.IgnoredPatterns)
	case TypeVideo:
		v = probeVideo(ctx, req.Path, req.Deep, req.IgnoredPatterns)
	default:
		return HealthyVerdict("unsupported", time.Since(start))
	}

	if v.Kind == Errored {
		return v
	}

	hash, err := ContentHash(req.Path)
	if err != nil {
		return ErrorVerdict(v.Tool, "hash: "+err.Error(), time.Since(start))
	}
	v.Hash = hash
	return v
}
