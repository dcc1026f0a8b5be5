// Package preprocess crops a canvas snapshot down to its drawn content before
// recognition.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"hwr-pad/pkg/geometry"

	"gocv.io/x/gocv"
)

// DefaultPadding is the margin kept around the drawn content.
const DefaultPadding = 20

// ErrEmptyCanvas means the snapshot holds no drawn pixels.
var ErrEmptyCanvas = errors.New("nothing drawn on canvas")

// Preprocessor crops images to their content plus a fixed padding.
type Preprocessor struct {
	padding int
}

// New creates a preprocessor. A negative padding is treated as zero.
func New(padding int) *Preprocessor {
	return &Preprocessor{padding: max(0, padding)}
}

// Preprocess returns a copy of the original image cropped to the tight
// bounding box of non-background pixels, grown by the padding and clamped to
// the image. The crop's origin is (0,0).
// It returns ErrEmptyCanvas when nothing has been drawn.
func (p *Preprocessor) Preprocess(img image.Image) (image.Image, error) {
	box, err := p.ContentBounds(img)
	if err != nil {
		return nil, err
	}
	return Crop(img, box.ImageRect()), nil
}

// ContentBounds returns the padded crop rectangle Preprocess would use.
func (p *Preprocessor) ContentBounds(img image.Image) (geometry.RectInt, error) {
	if img == nil || img.Bounds().Empty() {
		return geometry.RectInt{}, ErrEmptyCanvas
	}

	ink, err := inkBounds(img)
	if err != nil {
		return geometry.RectInt{}, err
	}
	if ink.Empty() {
		return geometry.RectInt{}, ErrEmptyCanvas
	}

	return ink.Pad(p.padding).ClampTo(img.Bounds()), nil
}

// inkBounds converts to luminance, inverts so ink is bright, and returns the
// bounding box of every non-zero pixel in image coordinates.
func inkBounds(img image.Image) (geometry.RectInt, error) {
	src, err := gocv.ImageToMatRGB(Compact(img))
	if err != nil {
		return geometry.RectInt{}, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(gray, &inverted)

	if gocv.CountNonZero(inverted) == 0 {
		return geometry.RectInt{}, nil
	}

	rows, cols := inverted.Rows(), inverted.Cols()
	data := inverted.ToBytes()

	minX, minY := cols, rows
	maxX, maxY := -1, -1
	for y := 0; y < rows; y++ {
		row := data[y*cols : (y+1)*cols]
		for x, v := range row {
			if v == 0 {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}
	if maxX < 0 {
		return geometry.RectInt{}, nil
	}

	origin := img.Bounds().Min
	return geometry.RectInt{
		X:      origin.X + minX,
		Y:      origin.Y + minY,
		Width:  maxX - minX + 1,
		Height: maxY - minY + 1,
	}, nil
}

// Crop returns a compact copy of the part of img inside r, with its origin
// at (0,0). The copy has no row padding, which gocv's *image.RGBA fast path
// requires.
func Crop(img image.Image, r image.Rectangle) *image.RGBA {
	r = r.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}

// Compact returns img as an *image.RGBA whose pixels start at Pix[0] with
// Stride 4*Dx, copying only when img is not already laid out that way.
func Compact(img image.Image) *image.RGBA {
	if m, ok := img.(*image.RGBA); ok && m.Rect.Min == (image.Point{}) && m.Stride == 4*m.Rect.Dx() {
		return m
	}
	return Crop(img, img.Bounds())
}
