// Package surface holds the drawing surface: strokes, stroke history,
// the guideline overlay, and rasterization of all of it.
package surface

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"hwr-pad/pkg/colorutil"
	"hwr-pad/pkg/geometry"
)

// ErrNotRealized is returned by CaptureRaster before the surface has a size.
var ErrNotRealized = errors.New("drawing surface is not realized")

// StrokeID identifies one pointer-down to pointer-up gesture.
type StrokeID int

// Segment is one drawn line primitive of a stroke.
type Segment struct {
	From, To geometry.Point2D
}

// Style controls how the surface is painted.
type Style struct {
	Background     color.RGBA
	Stroke         color.RGBA
	StrokeWidth    float64
	Guideline      color.RGBA
	GuidelineWidth float64
}

// DefaultStyle returns the stock white canvas with dark 20px ink.
func DefaultStyle() Style {
	return Style{
		Background:     colorutil.White,
		Stroke:         colorutil.Ink,
		StrokeWidth:    20,
		Guideline:      colorutil.Guideline,
		GuidelineWidth: 2,
	}
}

// Surface is the model behind the drawing canvas. It is safe for concurrent
// use; the widget renders from fyne's draw goroutine while the controller
// mutates it from event handlers.
type Surface struct {
	mu    sync.RWMutex
	style Style

	// Logical size; zero until the widget is laid out.
	width, height int

	counter StrokeID
	current StrokeID
	active  bool
	last    geometry.Point2D

	strokes map[StrokeID][]Segment
	history []StrokeID

	guidelines bool
}

// New creates an empty surface with guidelines visible.
func New(style Style) *Surface {
	return &Surface{
		style:      style,
		strokes:    make(map[StrokeID][]Segment),
		guidelines: true,
	}
}

// SetSize realizes the surface at the given logical size.
func (s *Surface) SetSize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()
}

// Size returns the logical size (zero before SetSize).
func (s *Surface) Size() (width, height int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

// BeginStroke starts a new gesture at p. Nothing is drawn until ExtendStroke.
func (s *Surface) BeginStroke(p geometry.Point2D) StrokeID {
	s.mu.Lock()
	defer s.mu.Unlock()

	// An unfinished gesture is discarded rather than merged.
	if s.active {
		delete(s.strokes, s.current)
	}

	s.counter++
	s.current = s.counter
	s.active = true
	s.last = p
	return s.current
}

// ExtendStroke draws a segment from the last point to p.
// It returns false when no gesture is in progress.
func (s *Surface) ExtendStroke(p geometry.Point2D) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return false
	}
	s.strokes[s.current] = append(s.strokes[s.current], Segment{From: s.last, To: p})
	s.last = p
	return true
}

// EndStroke finishes the current gesture and records it in the history.
// A gesture that was never extended leaves no trace and returns false.
func (s *Surface) EndStroke() (StrokeID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return 0, false
	}
	s.active = false
	id := s.current
	if len(s.strokes[id]) == 0 {
		delete(s.strokes, id)
		return id, false
	}
	s.history = append(s.history, id)
	return id, true
}

// UndoLast erases the most recently finished stroke.
func (s *Surface) UndoLast() (StrokeID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return 0, false
	}
	id := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	delete(s.strokes, id)
	return id, true
}

// ClearAll erases every stroke and resets the counter and history.
func (s *Surface) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.strokes = make(map[StrokeID][]Segment)
	s.history = nil
	s.counter = 0
	s.current = 0
	s.active = false
}

// StrokeCount returns the stroke counter (the id of the latest gesture).
func (s *Surface) StrokeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.counter)
}

// History returns a copy of the finished stroke ids, oldest first.
func (s *Surface) History() []StrokeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]StrokeID(nil), s.history...)
}

// Segments returns a copy of the segments owned by id.
func (s *Surface) Segments(id StrokeID) []Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Segment(nil), s.strokes[id]...)
}

// ShowGuidelines makes the midpoint guidelines visible.
func (s *Surface) ShowGuidelines() {
	s.mu.Lock()
	s.guidelines = true
	s.mu.Unlock()
}

// HideGuidelines removes the midpoint guidelines.
func (s *Surface) HideGuidelines() {
	s.mu.Lock()
	s.guidelines = false
	s.mu.Unlock()
}

// GuidelinesVisible reports whether the guidelines are shown.
func (s *Surface) GuidelinesVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guidelines
}

// CaptureRaster renders the strokes at the logical size for recognition.
// Guidelines are never part of the capture.
func (s *Surface) CaptureRaster() (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.width <= 0 || s.height <= 0 {
		return nil, ErrNotRealized
	}
	return s.paint(s.width, s.height, false), nil
}

// Render paints the surface for display at w x h pixels, scaling from the
// logical size. Guidelines are drawn beneath strokes when visible.
func (s *Surface) Render(w, h int) *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paint(w, h, s.guidelines)
}

func (s *Surface) paint(w, h int, guidelines bool) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(s.style.Background), image.Point{}, draw.Src)
	if w == 0 || h == 0 {
		return out
	}

	sx, sy := 1.0, 1.0
	if s.width > 0 && s.height > 0 {
		sx = float64(w) / float64(s.width)
		sy = float64(h) / float64(s.height)
	}

	if guidelines {
		drawGuidelines(out, s.style.Guideline, s.style.GuidelineWidth*sx)
	}

	r := newStrokeRasterizer(w, h, s.style.StrokeWidth*sx/2, sx, sy)
	for _, segs := range s.strokes {
		for _, seg := range segs {
			r.add(seg)
		}
	}
	r.drawTo(out, s.style.Stroke)
	return out
}

// drawGuidelines paints the vertical and horizontal midlines.
func drawGuidelines(out *image.RGBA, c color.RGBA, width float64) {
	b := out.Bounds()
	half := int(width / 2)
	if width > 0 && half == 0 {
		half = 1
	}
	if half == 0 {
		return
	}
	src := image.NewUniform(c)
	cx, cy := b.Dx()/2, b.Dy()/2
	draw.Draw(out, image.Rect(cx-half, b.Min.Y, cx+half, b.Max.Y).Intersect(b), src, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(b.Min.X, cy-half, b.Max.X, cy+half).Intersect(b), src, image.Point{}, draw.Src)
}
