package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRasterStderr(t *testing.T) {
	warning, corrupted, _ := classifyRasterStderr("")
	assert.False(t, warning)
	assert.False(t, corrupted)

	warning, corrupted, _ = classifyRasterStderr("identify: CorruptImageProfile `iCCP' @ warning/png.c/PNGWarning")
	assert.True(t, warning)
	assert.False(t, corrupted)

	warning, corrupted, phrase := classifyRasterStderr("identify: corrupt image data")
	assert.False(t, warning)
	assert.True(t, corrupted)
	assert.Equal(t, "corrupt", phrase)

	// A recognized warning substring doesn't mask an independent
	// corruption keyword elsewhere in the same output.
	warning, corrupted, _ = classifyRasterStderr("CorruptImageProfile iCCP, but also: truncated at end")
	assert.False(t, warning)
	assert.True(t, corrupted)
}

func TestClassifyVideoStderrEXIFDemotion(t *testing.T) {
	warning, corrupted, _ := classifyVideoStderr("Invalid EXIF data, ignoring")
	assert.True(t, warning)
	assert.False(t, corrupted)

	warning, corrupted, _ = classifyVideoStderr("stream error: damaged packet")
	assert.False(t, warning)
	assert.True(t, corrupted)
}

func TestClassifyBoundedDecodeStderr(t *testing.T) {
	warning, corrupted, phrase := classifyBoundedDecodeStderr("reference frames exceed profile limit, decoding anyway")
	assert.True(t, warning)
	assert.False(t, corrupted)
	assert.Equal(t, referenceFramesWarning, phrase)

	warning, corrupted, _ = classifyBoundedDecodeStderr("non-existing PPS 0 referenced")
	assert.True(t, warning)
	assert.False(t, corrupted)

	warning, corrupted, _ = classifyBoundedDecodeStderr("non-existing PPS referenced, corrupt decoder state")
	assert.False(t, warning)
	assert.True(t, corrupted)

	warning, corrupted, _ = classifyBoundedDecodeStderr("")
	assert.False(t, warning)
	assert.False(t, corrupted)
}

func TestClassifyStrictErrors(t *testing.T) {
	corrupted, phrase := classifyStrictErrors("macroblock decode error at frame 12")
	assert.True(t, corrupted)
	assert.Equal(t, "macroblock decode", phrase)

	corrupted, _ = classifyStrictErrors("non-existing SPS referenced")
	assert.False(t, corrupted)
}

func TestStripIgnoredPatterns(t *testing.T) {
	output := "line one\nbenign warning XYZ\nline three"
	stripped := StripIgnoredPatterns(output, []string{"benign warning"})
	assert.Equal(t, "line one\nline three", stripped)

	assert.Equal(t, output, StripIgnoredPatterns(output, nil))
}

func TestClassifyExtension(t *testing.T) {
	assert.Equal(t, TypeImage, ClassifyExtension(".png"))
	assert.Equal(t, TypeImage, ClassifyExtension(".PNG"))
	assert.Equal(t, TypeVideo, ClassifyExtension(".mp4"))
	assert.Equal(t, TypeUnsupported, ClassifyExtension(".txt"))
}
