// Package canvas provides the drawing canvas widget.
package canvas

import (
	"image"

	"hwr-pad/internal/surface"
	"hwr-pad/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// PointerHandler receives pointer gestures in surface coordinates.
type PointerHandler interface {
	PointerDown(p geometry.Point2D)
	PointerMove(p geometry.Point2D)
	PointerUp()
}

// DrawingCanvas displays a surface.Surface and forwards mouse and touch
// gestures to a PointerHandler.
type DrawingCanvas struct {
	widget.DisableableWidget

	surface *surface.Surface
	handler PointerHandler

	// Logical surface size; widget positions are scaled into it.
	logical fyne.Size

	raster *fynecanvas.Raster

	// Interaction state
	down bool
}

var (
	_ fyne.Draggable     = (*DrawingCanvas)(nil)
	_ fyne.Disableable   = (*DrawingCanvas)(nil)
	_ desktop.Mouseable  = (*DrawingCanvas)(nil)
	_ desktop.Cursorable = (*DrawingCanvas)(nil)
)

// NewDrawingCanvas creates a canvas of the given logical size.
func NewDrawingCanvas(s *surface.Surface, handler PointerHandler, width, height int) *DrawingCanvas {
	dc := &DrawingCanvas{
		surface: s,
		handler: handler,
		logical: fyne.NewSize(float32(width), float32(height)),
	}

	dc.raster = fynecanvas.NewRaster(dc.draw)
	dc.raster.ScaleMode = fynecanvas.ImageScaleSmooth
	dc.raster.SetMinSize(dc.logical)

	dc.ExtendBaseWidget(dc)
	return dc
}

// draw is the raster drawing function.
func (dc *DrawingCanvas) draw(w, h int) image.Image {
	return dc.surface.Render(w, h)
}

// Resize lays the widget out and realizes the surface at its logical size.
func (dc *DrawingCanvas) Resize(size fyne.Size) {
	dc.DisableableWidget.Resize(size)
	if size.Width > 0 && size.Height > 0 {
		dc.surface.SetSize(int(dc.logical.Width), int(dc.logical.Height))
	}
}

// Refresh redraws the surface.
func (dc *DrawingCanvas) Refresh() {
	dc.raster.Refresh()
}

// Cursor implements desktop.Cursorable.
func (dc *DrawingCanvas) Cursor() desktop.Cursor {
	if dc.Disabled() {
		return desktop.DefaultCursor
	}
	return desktop.CrosshairCursor
}

// MouseDown starts a stroke on the primary button.
func (dc *DrawingCanvas) MouseDown(ev *desktop.MouseEvent) {
	if dc.Disabled() || ev.Button != desktop.MouseButtonPrimary {
		return
	}
	dc.down = true
	dc.handler.PointerDown(dc.toSurface(ev.Position))
}

// MouseUp finishes the stroke.
func (dc *DrawingCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	dc.release()
}

// Dragged extends the stroke. Touch input has no MouseDown, so the first
// drag event starts the stroke at the drag origin.
func (dc *DrawingCanvas) Dragged(ev *fyne.DragEvent) {
	if dc.Disabled() {
		return
	}
	if !dc.down {
		dc.down = true
		dc.handler.PointerDown(dc.toSurface(ev.Position.Subtract(ev.Dragged)))
	}
	dc.handler.PointerMove(dc.toSurface(ev.Position))
}

// DragEnd finishes the stroke.
func (dc *DrawingCanvas) DragEnd() {
	dc.release()
}

func (dc *DrawingCanvas) release() {
	if !dc.down {
		return
	}
	dc.down = false
	dc.handler.PointerUp()
}

// toSurface converts widget coordinates to surface coordinates.
func (dc *DrawingCanvas) toSurface(pos fyne.Position) geometry.Point2D {
	size := dc.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return geometry.NewPoint2D(float64(pos.X), float64(pos.Y))
	}
	return geometry.NewPoint2D(
		float64(pos.X*dc.logical.Width/size.Width),
		float64(pos.Y*dc.logical.Height/size.Height),
	)
}

// MinSize is the logical surface size.
func (dc *DrawingCanvas) MinSize() fyne.Size {
	return dc.logical
}

// CreateRenderer implements fyne.Widget.
func (dc *DrawingCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &drawingCanvasRenderer{canvas: dc}
}

type drawingCanvasRenderer struct {
	canvas *DrawingCanvas
}

func (r *drawingCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
}

func (r *drawingCanvasRenderer) MinSize() fyne.Size {
	return r.canvas.logical
}

func (r *drawingCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *drawingCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *drawingCanvasRenderer) Destroy() {}
