package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	structuralProbeTimeout = 30 * time.Second
	quickScanSeconds       = 10
	boundedDecodeSeconds   = 30
	maxBoundedTimeout      = 300 * time.Second

	temporalOutlierMinBytes = 1 << 30 // 1 GiB
	multiPointMinBytes      = 5 << 30 // 5 GiB
)

// probeVideoTool and decodeVideoTool are the argv[0]s for the structural
// probe and decode-to-null invocations (modeled on ffprobe/ffmpeg,
// spec.md §6).
var (
	probeVideoTool  = "ffprobe"
	decodeVideoTool = "ffmpeg"
)

// ffprobeStream is the subset of ffprobe's JSON stream output this
// package reads.
type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	RFrameRate string `json:"r_frame_rate"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

// structuralInfo is what the structural probe step extracts.
type structuralInfo struct {
	HasVideoStream bool
	DurationSecs   float64
	FrameRate      float64
	Raw            string
}

// probeVideo runs the full video algorithm of spec.md §4.2: structural
// probe, bounded decode, a second-pass quick scan, and (conditionally)
// the enhanced pipeline.
func probeVideo(ctx context.Context, path string, deep bool, ignoredPatterns []string) Verdict {
	start := time.Now()

	fi, statErr := os.Stat(path)
	if statErr != nil {
		return ErrorVerdict(decodeVideoTool, statErr.Error(), time.Since(start))
	}
	sizeGB := float64(fi.Size()) / (1 << 30)

	structural, warnMsg, err := structuralProbe(ctx, path)
	if err != nil {
		return ErrorVerdict(probeVideoTool, err.Error(), time.Since(start))
	}
	if !structural.HasVideoStream {
		return CorruptedVerdict(probeVideoTool, "no video stream detected", TruncateOutput(structural.Raw), time.Since(start))
	}

	boundedWarning := warnMsg != ""

	boundedTimeout := time.Duration(float64(boundedDecodeSeconds)+10*sizeGB) * time.Second
	if boundedTimeout > maxBoundedTimeout {
		boundedTimeout = maxBoundedTimeout
	}

	boundedOut, boundedCorrupted, boundedDetail, err := boundedDecode(ctx, path, boundedTimeout, boundedDecodeSeconds, ignoredPatterns)
	if err != nil {
		return ErrorVerdict(decodeVideoTool, err.Error(), time.Since(start))
	}

	// Second-pass quick scan (spec.md §4.2 step 3): a short independent
	// decode used only as a corroborating signal; its own failures
	// contribute to boundedCorrupted/boundedDetail rather than
	// short-circuiting, since the primary bounded decode already ran.
	if qOut, qCorrupted, qDetail, qErr := boundedDecode(ctx, path, structuralProbeTimeout, quickScanSeconds, ignoredPatterns); qErr == nil && qCorrupted {
		boundedCorrupted = true
		boundedDetail = appendDetail(boundedDetail, qDetail)
		boundedOut += "\n" + qOut
	}

	basicCorrupted := boundedCorrupted
	basicDetail := boundedDetail
	basicOutput := TruncateOutput(structural.Raw, boundedOut)

	if !basicCorrupted && !deep {
		if boundedWarning {
			return WarningVerdict(decodeVideoTool, warnMsg, basicOutput, time.Since(start))
		}
		return HealthyVerdict(decodeVideoTool, time.Since(start))
	}

	// Enhanced pipeline (spec.md §4.2 step 4): runs when the basic verdict
	// is corrupted OR deep=true.
	enhancedCorrupted, enhancedDetail, enhancedOutput := enhancedPipeline(ctx, path, structural, sizeGB, ignoredPatterns)

	corrupted := basicCorrupted || enhancedCorrupted
	output := TruncateOutput(basicOutput, enhancedOutput)

	if corrupted {
		detail := appendDetail(basicDetail, enhancedDetail)
		return CorruptedVerdict(decodeVideoTool, detail, output, time.Since(start))
	}
	if boundedWarning || enhancedDetail != "" {
		return WarningVerdict(decodeVideoTool, appendDetail(warnMsg, enhancedDetail), output, time.Since(start))
	}
	return HealthyVerdict(decodeVideoTool, time.Since(start))
}

func appendDetail(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}

// structuralProbe implements spec.md §4.2 video step 1: enumerate
// streams and codecs via a JSON stream probe; missing video stream is
// corruption (handled by the caller), missing/non-positive duration is
// a warning.
func structuralProbe(ctx context.Context, path string) (structuralInfo, string, error) {
	res, err := runTool(ctx, structuralProbeTimeout, probeVideoTool,
		"-v", "error", "-print_format", "json",
		"-show_entries", "stream=codec_type,r_frame_rate",
		"-show_entries", "format=duration",
		path,
	)
	if err != nil {
		return structuralInfo{}, "", err
	}
	if res.TimedOut {
		// spec.md §4.2: a timeout on the structural probe is a warning,
		// not corruption.
		return structuralInfo{HasVideoStream: true}, "structural probe timed out", nil
	}

	var parsed ffprobeOutput
	_ = json.Unmarshal([]byte(res.Stdout), &parsed)

	info := structuralInfo{Raw: res.Combined}
	for _, s := range parsed.Streams {
		if s.CodecType == "video" {
			info.HasVideoStream = true
			info.FrameRate = parseFrameRate(s.RFrameRate)
		}
	}

	duration, _ := strconv.ParseFloat(strings.TrimSpace(parsed.Format.Duration), 64)
	info.DurationSecs = duration

	if duration <= 0 {
		return info, "missing or non-positive duration", nil
	}
	return info, "", nil
}

func parseFrameRate(expr string) float64 {
	parts := strings.SplitN(expr, "/", 2)
	if len(parts) != 2 {
		v, _ := strconv.ParseFloat(expr, 64)
		return v
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// boundedDecode runs a decode-to-null-sink pass limited to seconds of
// content, applying the NAL/reference-frames demotion rules (spec.md
// §4.2 video step 2).
func boundedDecode(ctx context.Context, path string, timeout time.Duration, seconds int, ignoredPatterns []string) (output string, corrupted bool, detail string, err error) {
	res, runErr := runTool(ctx, timeout, decodeVideoTool,
		"-v", "error", "-xerror",
		"-t", strconv.Itoa(seconds),
		"-i", path,
		"-f", "null", "-",
	)
	if runErr != nil {
		return "", false, "", runErr
	}
	if res.TimedOut {
		// spec.md §4.2: "a tool timeout is corruption for the bounded decode."
		return res.Combined, true, "decode timed out", nil
	}

	stderr := StripIgnoredPatterns(res.Stderr, ignoredPatterns)
	warning, isCorrupted, phrase := classifyBoundedDecodeStderr(stderr)
	if isCorrupted {
		return res.Combined, true, phrase, nil
	}
	if warning {
		return res.Combined, false, phrase, nil
	}
	return res.Combined, false, "", nil
}

// enhancedPipeline runs the four enhanced-pipeline checks of spec.md
// §4.2 step 4 and folds their results into a single (corrupted, detail,
// output) triple.
func enhancedPipeline(ctx context.Context, path string, structural structuralInfo, sizeGB float64, ignoredPatterns []string) (corrupted bool, detail string, output string) {
	var details []string
	var outputs []string

	if c, d, o := frameIntegrityCheck(ctx, path, structural); d != "" {
		details = append(details, d)
		outputs = append(outputs, o)
		corrupted = corrupted || c
	}

	if sizeGB > 1 {
		if c, d, o := temporalOutlierCheck(ctx, path); d != "" {
			details = append(details, d)
			outputs = append(outputs, o)
			corrupted = corrupted || c
		}
	}

	if sizeGB > 5 {
		if c, d, o := multiPointSamplingCheck(ctx, path, structural.DurationSecs); d != "" {
			details = append(details, d)
			outputs = append(outputs, o)
			corrupted = corrupted || c
		}
	}

	if c, d, o := strictErrorPass(ctx, path, ignoredPatterns); d != "" {
		details = append(details, d)
		outputs = append(outputs, o)
		corrupted = corrupted || c
	}

	return corrupted, strings.Join(details, "; "), TruncateOutput(outputs...)
}

// frameIntegrityCheck compares counted frames against
// expected = framerate * duration (spec.md §4.2 step 4a).
func frameIntegrityCheck(ctx context.Context, path string, structural structuralInfo) (corrupted bool, detail string, output string) {
	if structural.FrameRate <= 0 || structural.DurationSecs <= 0 {
		return false, "", ""
	}
	res, err := runTool(ctx, structuralProbeTimeout, probeVideoTool,
		"-v", "error", "-count_frames",
		"-show_entries", "stream=nb_read_frames",
		"-print_format", "json",
		path,
	)
	if err != nil || res.TimedOut {
		return false, "", ""
	}

	var parsed struct {
		Streams []struct {
			NbReadFrames string `json:"nb_read_frames"`
		} `json:"streams"`
	}
	_ = json.Unmarshal([]byte(res.Stdout), &parsed)
	if len(parsed.Streams) == 0 {
		return false, "", ""
	}
	counted, _ := strconv.ParseFloat(parsed.Streams[0].NbReadFrames, 64)
	if counted <= 0 {
		return false, "", ""
	}

	expected := structural.FrameRate * structural.DurationSecs
	if expected <= 0 {
		return false, "", ""
	}
	lossRatio := (expected - counted) / expected
	switch {
	case lossRatio >= 0.05:
		return true, fmt.Sprintf("frame loss %.1f%% exceeds threshold", lossRatio*100), res.Combined
	case lossRatio >= 0.01:
		return false, fmt.Sprintf("minor frame-count inconsistency: %.1f%% loss", lossRatio*100), res.Combined
	default:
		return false, "", ""
	}
}

var touRe = regexp.MustCompile(`TOUT:\s*([0-9.]+)`)
var vrepRe = regexp.MustCompile(`VREP:\s*([0-9.]+)`)

// temporalOutlierCheck runs a signalstats-style per-frame telemetry pass
// for files over 1 GiB (spec.md §4.2 step 4b).
func temporalOutlierCheck(ctx context.Context, path string) (corrupted bool, detail string, output string) {
	res, err := runTool(ctx, boundedDecodeSeconds*time.Second, decodeVideoTool,
		"-v", "info",
		"-i", path,
		"-vf", "signalstats",
		"-f", "null", "-",
	)
	if err != nil || res.TimedOut {
		return false, "", ""
	}

	touValues := extractFloats(touRe, res.Combined)
	vrepValues := extractFloats(vrepRe, res.Combined)
	highTOUT := countAbove(touValues, 0)
	highVREP := countAbove(vrepValues, 0)

	total := len(touValues)
	if total == 0 {
		return false, "", ""
	}
	toutRatio := float64(highTOUT) / float64(total)
	vrepRatio := float64(highVREP) / float64(total)

	if toutRatio > 0.05 {
		return true, fmt.Sprintf("%.1f%% high-TOUT frames", toutRatio*100), res.Combined
	}
	if vrepRatio > 0.10 {
		return true, fmt.Sprintf("%.1f%% high-VREP frames", vrepRatio*100), res.Combined
	}
	return false, "", ""
}

func extractFloats(re *regexp.Regexp, text string) []float64 {
	matches := re.FindAllStringSubmatch(text, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			out = append(out, v)
		}
	}
	return out
}

func countAbove(values []float64, threshold float64) int {
	n := 0
	for _, v := range values {
		if v > threshold {
			n++
		}
	}
	return n
}

// multiPointSamplingCheck decodes three 10-second windows (start, 50%,
// end-10s) with strict CRC+bitstream error detection, for files over 5
// GiB (spec.md §4.2 step 4c).
func multiPointSamplingCheck(ctx context.Context, path string, durationSecs float64) (corrupted bool, detail string, output string) {
	if durationSecs <= 0 {
		return false, "", ""
	}
	positions := []float64{0, durationSecs * 0.5, math.Max(0, durationSecs-10)}
	var outputs []string
	for i, pos := range positions {
		res, err := runTool(ctx, boundedDecodeSeconds*time.Second, decodeVideoTool,
			"-v", "error", "-xerror", "-err_detect", "crccheck+bitstream",
			"-ss", fmt.Sprintf("%.2f", pos),
			"-t", "10",
			"-i", path,
			"-f", "null", "-",
		)
		if err != nil {
			continue
		}
		outputs = append(outputs, res.Combined)
		if res.TimedOut {
			return true, fmt.Sprintf("sample %d timed out", i+1), strings.Join(outputs, "\n")
		}
		if c, _ := classifyStrictErrors(res.Stderr); c {
			return true, fmt.Sprintf("sample %d at %.0fs failed strict decode", i+1, pos), strings.Join(outputs, "\n")
		}
	}
	return false, "", strings.Join(outputs, "\n")
}

// strictErrorPass is the full stderr pattern table pass of spec.md
// §4.2 step 4d: any strict keyword is corruption, NAL-only outcomes
// remain warnings.
func strictErrorPass(ctx context.Context, path string, ignoredPatterns []string) (corrupted bool, detail string, output string) {
	res, err := runTool(ctx, boundedDecodeSeconds*time.Second, decodeVideoTool,
		"-v", "error", "-xerror", "-err_detect", "explode",
		"-i", path,
		"-f", "null", "-",
	)
	if err != nil {
		return false, "", ""
	}
	stderr := StripIgnoredPatterns(res.Stderr, ignoredPatterns)
	if res.TimedOut {
		return true, "strict decode pass timed out", res.Combined
	}
	if c, phrase := classifyStrictErrors(stderr); c {
		return true, phrase, res.Combined
	}
	if nal, isNAL := containsAny(stderr, nalWarningSubstrings); isNAL {
		return false, nal, res.Combined
	}
	return false, "", ""
}
