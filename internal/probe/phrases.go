package probe

import "strings"

// Phrase tables centralized in one file per spec.md §9's design note:
// "centralize the phrase table and the GIF/WebP/NAL demotion rules in
// one place to avoid divergence." Every substring match used anywhere in
// this package is declared here.

// rasterWarningSubstrings are recognizable profile/metadata warnings
// from the raster "identify" tool that do not indicate corruption
// (spec.md §4.2 step 3).
var rasterWarningSubstrings = []string{
	"CorruptImageProfile",
	"iCCP",
	"known incorrect sRGB profile",
	"unknown field with tag",
}

// corruptionKeywords are the keywords that, outside the warning
// whitelist, indicate corruption in raster/video stderr (spec.md §4.2
// step 3).
var corruptionKeywords = []string{
	"error",
	"corrupt",
	"truncated",
	"damaged",
}

// exifWarningSubstrings demote EXIF metadata complaints from the
// video/audio probe to warnings (spec.md §4.2 step 4).
var exifWarningSubstrings = []string{
	"Invalid EXIF",
	"exif",
	"EXIF",
}

// nalWarningSubstrings are standalone NAL-unit complaints treated as a
// warning, never corruption, when they appear without any other error
// class (spec.md §4.2 video step 2).
var nalWarningSubstrings = []string{
	"invalid NAL unit",
	"non-existing PPS",
	"non-existing SPS",
}

// referenceFramesWarning is explicitly called out as a warning in
// spec.md §4.2 ("reference frames exceed profile limit").
const referenceFramesWarning = "reference frames exceed profile limit"

// strictErrorKeywords are the full stderr pattern table for the
// enhanced pipeline's strict error pass (spec.md §4.2 step 4d).
var strictErrorKeywords = []string{
	"macroblock decode",
	"CABAC",
	"error concealment",
	"corrupted frame",
	"packet corrupt",
	"CRC mismatch",
}

// gifHeaderWarningSubstrings list header complaints about GIF structure.
// probeImage's GIF demotion does not consult this list: it demotes any
// header-verify or full-decode failure of a .gif file to a warning when
// the video/audio probe reports no corruption.
var gifHeaderWarningSubstrings = []string{
	"invalid GIF",
	"truncated GIF",
	"GIF89a",
	"GIF87a",
}

func containsAny(s string, substrs []string) (string, bool) {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return sub, true
		}
	}
	return "", false
}

// StripIgnoredPatterns removes lines matching any active
// catalog.IgnoredErrorPattern from output before classification
// (spec.md §3, §4.2 "ignored patterns strip matching lines").
func StripIgnoredPatterns(output string, patterns []string) string {
	if len(patterns) == 0 {
		return output
	}
	lines := strings.Split(output, "\n")
	kept := lines[:0]
	for _, line := range lines {
		matched := false
		for _, p := range patterns {
			if p != "" && strings.Contains(line, p) {
				matched = true
				break
			}
		}
		if !matched {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// classifyRasterStderr implements spec.md §4.2 step 3's classification:
// pure metadata/profile warnings pass; corruption keywords outside that
// whitelist indicate corruption. Returns (isWarning, isCorrupted,
// matchedPhrase).
func classifyRasterStderr(stderr string) (warning bool, corrupted bool, phrase string) {
	if stderr == "" {
		return false, false, ""
	}
	if _, ok := containsAny(stderr, rasterWarningSubstrings); ok {
		// A recognized warning substring does not by itself rule out an
		// independent corruption keyword elsewhere in the output, so we
		// still check for one.
		if kw, hit := containsAny(stderr, corruptionKeywords); hit {
			return false, true, kw
		}
		return true, false, ""
	}
	if kw, hit := containsAny(stderr, corruptionKeywords); hit {
		return false, true, kw
	}
	return false, false, ""
}

// classifyVideoStderr implements spec.md §4.2 step 4's classification
// with the EXIF demotion.
func classifyVideoStderr(stderr string) (warning bool, corrupted bool, phrase string) {
	if stderr == "" {
		return false, false, ""
	}
	if _, ok := containsAny(stderr, exifWarningSubstrings); ok {
		if kw, hit := containsAny(stderr, corruptionKeywords); hit {
			return false, true, kw
		}
		return true, false, ""
	}
	if kw, hit := containsAny(stderr, corruptionKeywords); hit {
		return false, true, kw
	}
	return false, false, ""
}

// classifyBoundedDecodeStderr implements spec.md §4.2 video step 2's
// NAL/reference-frames demotion rules.
func classifyBoundedDecodeStderr(stderr string) (warning bool, corrupted bool, phrase string) {
	if stderr == "" {
		return false, false, ""
	}
	if strings.Contains(stderr, referenceFramesWarning) {
		return true, false, referenceFramesWarning
	}
	_, isNAL := containsAny(stderr, nalWarningSubstrings)
	kw, isCorruption := containsAny(stderr, corruptionKeywords)
	switch {
	case isCorruption:
		return false, true, kw
	case isNAL:
		return true, false, ""
	default:
		return false, false, ""
	}
}

// classifyStrictErrors implements spec.md §4.2 step 4d: any strict
// keyword is corruption; NAL-only outcomes remain warnings.
func classifyStrictErrors(stderr string) (corrupted bool, phrase string) {
	if kw, hit := containsAny(stderr, strictErrorKeywords); hit {
		return true, kw
	}
	return false, ""
}
