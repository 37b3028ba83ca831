package probe

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	rasterIdentifyTimeout = 30 * time.Second
	imageDecodeTimeout    = 30 * time.Second
)

// rasterIdentifyTool is the argv[0] for the raster "identify" tool
// (modeled on ImageMagick's identify, spec.md §6).
var rasterIdentifyTool = "identify"

// probeImage runs the four-step image algorithm of spec.md §4.2:
// header-verify, load-and-transform, external raster identify, and a
// video/audio probe invoked in decode-to-null-sink mode on the image
// file itself.
func probeImage(ctx context.Context, path string, ext string, ignoredPatterns []string) Verdict {
	start := time.Now()

	headerErr := headerVerify(path)
	loadErr := loadAndTransform(path)

	res, err := runTool(ctx, rasterIdentifyTimeout, rasterIdentifyTool, "-verbose", path)
	if err != nil {
		return ErrorVerdict("identify", err.Error(), time.Since(start))
	}

	videoRes, err := runTool(ctx, imageDecodeTimeout, decodeVideoTool, "-v", "error", "-i", path, "-f", "null", "-")
	if err != nil {
		return ErrorVerdict(decodeVideoTool, err.Error(), time.Since(start))
	}

	stderr := StripIgnoredPatterns(res.Stderr, ignoredPatterns)
	videoStderr := StripIgnoredPatterns(videoRes.Stderr, ignoredPatterns)
	combined := TruncateOutput(res.Combined, videoRes.Combined)
	isGIF := ext == ".gif"
	isWebP := ext == ".webp"

	// A header/library-decode failure is itself evidence of corruption,
	// unless the GIF demotion rule applies.
	headerFailed := headerErr != nil || loadErr != nil

	rasterWarning, rasterCorrupted, rasterPhrase := classifyRasterStderr(stderr)
	videoWarning, videoCorrupted, videoPhrase := classifyVideoStderr(videoStderr)

	if isGIF && headerFailed {
		// GIF demotion (spec.md §4.2): a header complaint is demoted to a
		// warning when the video/audio probe accepts the file.
		if !videoCorrupted {
			details := fmt.Sprintf("GIF header check failed (%v) but video/audio probe accepted the file", firstNonNil(headerErr, loadErr))
			return WarningVerdict(decodeVideoTool, details, combined, time.Since(start))
		}
	}

	if headerFailed && !isGIF {
		details := firstNonNil(headerErr, loadErr).Error()
		if rasterCorrupted {
			details += "; " + rasterPhrase
		}
		if videoCorrupted {
			details += "; " + videoPhrase
		}
		return CorruptedVerdict(rasterIdentifyTool, details, combined, time.Since(start))
	}

	if rasterCorrupted {
		return CorruptedVerdict(rasterIdentifyTool, rasterPhrase, combined, time.Since(start))
	}

	if videoCorrupted {
		return CorruptedVerdict(decodeVideoTool, videoPhrase, combined, time.Since(start))
	}

	if isWebP {
		// WebP EXIF demotion (spec.md §4.2): only applies when header-verify
		// and raster-identify otherwise pass, which is already established
		// at this point — the video/audio probe's own EXIF demotion is the
		// signal, not a raster-stderr substring check.
		if videoWarning {
			return WarningVerdict(decodeVideoTool, "WebP EXIF metadata warning", combined, time.Since(start))
		}
	}

	if rasterWarning {
		return WarningVerdict(rasterIdentifyTool, "raster profile/metadata warning", combined, time.Since(start))
	}

	if videoWarning {
		return WarningVerdict(decodeVideoTool, "video/audio probe metadata warning", combined, time.Since(start))
	}

	if res.TimedOut || videoRes.TimedOut {
		// spec.md §4.2: "a tool timeout is corruption for the bounded
		// decode and a warning for the structural probe." Raster identify
		// and the image decode-to-null pass are both cheap metadata-level
		// steps akin to a structural probe.
		return WarningVerdict(rasterIdentifyTool, "identify/decode timed out", combined, time.Since(start))
	}

	return HealthyVerdict("libimage+identify+"+decodeVideoTool, time.Since(start))
}

// headerVerify decodes only the image header/config, matching spec.md
// §4.2 step 1 ("Header-verify step using a library decoder").
func headerVerify(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("header decode: %w", err)
	}
	return nil
}

// loadAndTransform fully decodes the image and forces every pixel to be
// materialized via draw.Draw into a scratch buffer, catching truncation
// that a header-only check misses (spec.md §4.2 step 2).
func loadAndTransform(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("full decode: %w", err)
	}

	bounds := img.Bounds()
	scratch := image.NewRGBA(bounds)
	draw.Draw(scratch, bounds, img, bounds.Min, draw.Src)
	return nil
}

func firstNonNil(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
