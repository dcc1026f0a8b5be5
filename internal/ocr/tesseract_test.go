package ocr

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"hwr-pad/internal/config"
	"hwr-pad/internal/recognize"

	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeConfidence(t *testing.T) {
	assert.Equal(t, 0.92, normalizeConfidence(92))
	assert.Equal(t, 1.0, normalizeConfidence(140))
	assert.Equal(t, 0.0, normalizeConfidence(-1))
}

func TestToDetectionsFiltersAndRescales(t *testing.T) {
	boxes := []gosseract.BoundingBox{
		{Box: image.Rect(20, 40, 60, 80), Word: "A", Confidence: 92},
		{Box: image.Rect(0, 0, 10, 10), Word: "4", Confidence: 5},
		{Box: image.Rect(0, 0, 10, 10), Word: "  ", Confidence: 99},
	}

	got := toDetections(boxes, 0.1, 2)
	assert.Equal(t, []recognize.Detection{
		{Bounds: image.Rect(10, 20, 30, 40), Text: "A", Confidence: 0.92},
	}, got)
}

func TestSearchModes(t *testing.T) {
	assert.Equal(t, []gosseract.PageSegMode{gosseract.PSM_SINGLE_CHAR},
		searchModes(recognize.DecoderGreedy, gosseract.PSM_SINGLE_CHAR))
	assert.Equal(t, []gosseract.PageSegMode{gosseract.PSM_SINGLE_BLOCK},
		searchModes("", gosseract.PSM_SINGLE_BLOCK))

	assert.Equal(t,
		[]gosseract.PageSegMode{gosseract.PSM_SINGLE_CHAR, gosseract.PSM_SINGLE_WORD, gosseract.PSM_SINGLE_LINE},
		searchModes(recognize.DecoderBeamSearch, gosseract.PSM_SINGLE_CHAR))
	assert.Equal(t,
		[]gosseract.PageSegMode{gosseract.PSM_SINGLE_BLOCK, gosseract.PSM_SINGLE_CHAR, gosseract.PSM_SINGLE_WORD, gosseract.PSM_SINGLE_LINE},
		searchModes(recognize.DecoderBeamSearch, gosseract.PSM_SINGLE_BLOCK))
}

func TestMergeDetectionsKeepsBestPerText(t *testing.T) {
	char := []recognize.Detection{{Text: "A", Confidence: 0.6}, {Text: "4", Confidence: 0.3}}
	word := []recognize.Detection{{Text: "A", Confidence: 0.9}, {Text: "H", Confidence: 0.2}}

	got := mergeDetections(char, word, nil)
	assert.Equal(t, []recognize.Detection{
		{Text: "A", Confidence: 0.9},
		{Text: "4", Confidence: 0.3},
		{Text: "H", Confidence: 0.2},
	}, got)
	assert.Empty(t, mergeDetections())
}

func TestWriteInitConfig(t *testing.T) {
	dir := t.TempDir()
	path, err := writeInitConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "load_system_dawg F\nload_freq_dawg F\n", string(data))

	_, err = writeInitConfig(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestUpscaleFactor(t *testing.T) {
	assert.Equal(t, 1.0, upscaleFactor(image.Rect(0, 0, 140, 140), 1))
	assert.Equal(t, 2.0, upscaleFactor(image.Rect(0, 0, 140, 300), 2))
	// a 32px tall crop is brought up to minSide
	assert.InDelta(t, 2.0, upscaleFactor(image.Rect(0, 0, 200, 32), 1), 1e-9)
	assert.Equal(t, 1.0, upscaleFactor(image.Rect(0, 0, 140, 140), 0))
}

func TestTessdataPrefix(t *testing.T) {
	fast := t.TempDir()
	sep := string(filepath.Separator)

	cfg := config.ModelConfig{Quantize: true, TessdataDir: "/usr/share/tessdata", TessdataFastDir: fast}
	assert.Equal(t, fast+sep, tessdataPrefix(cfg))

	cfg.Quantize = false
	assert.Equal(t, "/usr/share/tessdata"+sep, tessdataPrefix(cfg))

	cfg.Quantize = true
	cfg.TessdataFastDir = filepath.Join(fast, "missing")
	assert.Equal(t, "/usr/share/tessdata"+sep, tessdataPrefix(cfg))

	assert.Empty(t, tessdataPrefix(config.ModelConfig{}))
}

func TestReadOptions(t *testing.T) {
	opts := ReadOptions(config.Default().Model)
	assert.Equal(t, recognize.DefaultReadOptions(), opts)

	opts = ReadOptions(config.ModelConfig{Decoder: "beamsearch", MagRatio: 2, Threshold: 0.3})
	assert.Equal(t, recognize.ReadOptions{Decoder: recognize.DecoderBeamSearch, MagRatio: 2, Threshold: 0.3}, opts)

	opts = ReadOptions(config.ModelConfig{})
	assert.Equal(t, recognize.DecoderGreedy, opts.Decoder)
	assert.Equal(t, 1.0, opts.MagRatio)
	assert.Zero(t, opts.Threshold)
}
