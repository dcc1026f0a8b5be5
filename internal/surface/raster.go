package surface

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"hwr-pad/pkg/geometry"

	"golang.org/x/image/vector"
)

// capSteps is the number of points used for each semicircular line cap.
const capSteps = 12

// strokeRasterizer accumulates round-capped segments as capsule polygons and
// fills them in a single pass.
type strokeRasterizer struct {
	z      *vector.Rasterizer
	radius float64
	sx, sy float64
	empty  bool
}

func newStrokeRasterizer(w, h int, radius, sx, sy float64) *strokeRasterizer {
	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Over
	return &strokeRasterizer{z: z, radius: radius, sx: sx, sy: sy, empty: true}
}

// add appends the capsule around seg. All capsules share the same winding,
// so overlaps saturate instead of cancelling.
func (r *strokeRasterizer) add(seg Segment) {
	a := geometry.NewPoint2D(seg.From.X*r.sx, seg.From.Y*r.sy)
	b := geometry.NewPoint2D(seg.To.X*r.sx, seg.To.Y*r.sy)

	dir := b.Sub(a).Unit()
	n := dir.Perp().Scale(r.radius)

	start := a.Add(n)
	r.z.MoveTo(float32(start.X), float32(start.Y))
	p := b.Add(n)
	r.z.LineTo(float32(p.X), float32(p.Y))
	r.arc(b, n)
	p = a.Sub(n)
	r.z.LineTo(float32(p.X), float32(p.Y))
	r.arc(a, n.Scale(-1))
	r.z.ClosePath()
	r.empty = false
}

// arc traces a half circle around c starting at c+from and ending at c-from.
func (r *strokeRasterizer) arc(c, from geometry.Point2D) {
	base := math.Atan2(from.Y, from.X)
	for i := 1; i <= capSteps; i++ {
		theta := base - math.Pi*float64(i)/capSteps
		x := c.X + r.radius*math.Cos(theta)
		y := c.Y + r.radius*math.Sin(theta)
		r.z.LineTo(float32(x), float32(y))
	}
}

func (r *strokeRasterizer) drawTo(dst *image.RGBA, c color.RGBA) {
	if r.empty {
		return
	}
	r.z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}
