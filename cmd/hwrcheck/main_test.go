package main

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"hwr-pad/internal/recognize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	r := Result{Path: "a.png", Candidates: []recognize.Candidate{
		{Text: "A", Confidence: 0.92},
		{Text: "4", Confidence: 0.31},
		{Text: "H", Confidence: 0.2},
	}}
	assert.Equal(t, "a.png: A (92%), 4 (31%)", format(r, 2))
	assert.Equal(t, "a.png: A (92%), 4 (31%), H (20%)", format(r, 0))

	assert.Equal(t, "b.png: No character detected.", format(Result{Path: "b.png"}, 3))
	assert.Equal(t, "c.png: error: boom", format(Result{Path: "c.png", Error: errors.New("boom").Error()}, 3))
}

func TestCropName(t *testing.T) {
	assert.Equal(t, "glyph_crop.png", cropName(filepath.Join("in", "glyph.jpeg")))
	assert.Equal(t, "x_crop.png", cropName("x"))
}

func TestSaveAndLoadPNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{A: 255})

	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, savePNG(path, img))

	got, err := loadImage(path)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), got.Bounds())

	_, err = loadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
