package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"hwr-pad/internal/preprocess"
	"hwr-pad/internal/recognize"
	"hwr-pad/internal/surface"
	"hwr-pad/pkg/geometry"
)

// Status messages shown in the result display.
const (
	MsgReady       = "Ready to draw..."
	MsgProcessing  = "Processing..."
	MsgNoCharacter = recognize.MsgNoCharacter
	MsgCleared     = "Canvas cleared."
)

var (
	// ErrCaptureFailed wraps any failure to snapshot the drawing surface.
	ErrCaptureFailed = errors.New("canvas capture failed")
	// ErrClipboardUnavailable is returned by CopyText without a clipboard.
	ErrClipboardUnavailable = errors.New("clipboard unavailable")
)

// Surface is the drawing surface the controller drives.
type Surface interface {
	BeginStroke(p geometry.Point2D) surface.StrokeID
	ExtendStroke(p geometry.Point2D) bool
	EndStroke() (surface.StrokeID, bool)
	UndoLast() (surface.StrokeID, bool)
	ClearAll()
	ShowGuidelines()
	HideGuidelines()
	CaptureRaster() (image.Image, error)
}

// Preprocessor crops a snapshot to its content.
type Preprocessor interface {
	Preprocess(img image.Image) (image.Image, error)
}

// Recognizer ranks character candidates for an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]recognize.Candidate, error)
}

// Clipboard receives copied text.
type Clipboard interface {
	SetContent(content string)
}

// OutcomeKind classifies how a recognition pass ended.
type OutcomeKind int

const (
	OutcomeRecognized OutcomeKind = iota
	OutcomeEmptyCanvas
	OutcomeNoCandidate
	OutcomeCaptureFailed
	OutcomeRecognitionFailed
)

// Outcome is the only value handed back from the recognition worker.
type Outcome struct {
	Kind       OutcomeKind
	Stroke     surface.StrokeID
	Candidates []recognize.Candidate
	Err        error
}

// Best returns the top candidate of a recognized outcome.
func (o Outcome) Best() (recognize.Candidate, bool) {
	if o.Kind != OutcomeRecognized || len(o.Candidates) == 0 {
		return recognize.Candidate{}, false
	}
	return o.Candidates[0], true
}

// Message is the text shown in the result display for this outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeRecognized:
		best, _ := o.Best()
		return best.String()
	case OutcomeEmptyCanvas, OutcomeNoCandidate:
		return MsgNoCharacter
	case OutcomeCaptureFailed:
		return fmt.Sprintf("Capture error: %v", o.Err)
	default:
		return fmt.Sprintf("Recognition error: %v", o.Err)
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithDispatcher sets how worker results are delivered back to the UI.
// The default runs the completion on the worker goroutine; state is
// mutex-guarded and listeners must tolerate being called off the UI loop.
func WithDispatcher(dispatch func(func())) Option {
	return func(c *Controller) { c.dispatch = dispatch }
}

// WithSyncRecognition runs recognition inline instead of on a worker.
func WithSyncRecognition() Option {
	return func(c *Controller) { c.run = func(f func()) { f() } }
}

// Controller owns the draw / recognize interaction:
// Idle -> Drawing on pointer down, Drawing -> Recognizing on pointer up,
// and back to Idle when the recognition outcome arrives.
type Controller struct {
	listeners

	mu      sync.Mutex
	surface Surface
	pre     Preprocessor
	rec     Recognizer

	state  State
	result string
	text   string

	dispatch func(func())
	run      func(func())

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController wires the surface, preprocessor and recognizer together.
// The recognizer is built once by the caller and owned for the process lifetime.
func NewController(s Surface, pre Preprocessor, rec Recognizer, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		surface:  s,
		pre:      pre,
		rec:      rec,
		state:    StateIdle,
		result:   MsgReady,
		// TODO: default to fyne.Do once the module moves to fyne v2.6.
		dispatch: func(f func()) { f() },
		run:      func(f func()) { go f() },
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current interaction state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the text of the result display.
func (c *Controller) Result() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Text returns the accumulated text.
func (c *Controller) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// PointerDown starts a stroke. Ignored unless Idle.
func (c *Controller) PointerDown(p geometry.Point2D) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	c.surface.BeginStroke(p)
	c.surface.HideGuidelines()
	events := c.setStateLocked(StateDrawing)
	c.mu.Unlock()

	c.emitAll(append(events, event{typ: EventSurfaceChanged}))
}

// PointerMove extends the current stroke. Ignored unless Drawing.
func (c *Controller) PointerMove(p geometry.Point2D) {
	c.mu.Lock()
	if c.state != StateDrawing {
		c.mu.Unlock()
		return
	}
	drawn := c.surface.ExtendStroke(p)
	c.mu.Unlock()

	if drawn {
		c.Emit(EventSurfaceChanged, nil)
	}
}

// PointerUp finishes the stroke and starts recognition. A stroke that never
// moved returns straight to Idle without recognizing.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	if c.state != StateDrawing {
		c.mu.Unlock()
		return
	}

	id, ok := c.surface.EndStroke()
	if !ok {
		c.surface.ShowGuidelines()
		events := c.setStateLocked(StateIdle)
		c.mu.Unlock()
		c.emitAll(append(events, event{typ: EventSurfaceChanged}))
		return
	}

	// Capture on the caller's goroutine so only the image crosses to the worker.
	img, err := c.surface.CaptureRaster()
	if err != nil {
		events := c.finishLocked(Outcome{
			Kind:   OutcomeCaptureFailed,
			Stroke: id,
			Err:    fmt.Errorf("%w: %v", ErrCaptureFailed, err),
		})
		c.mu.Unlock()
		c.emitAll(events)
		return
	}

	events := c.setStateLocked(StateRecognizing)
	events = append(events, c.setResultLocked(MsgProcessing)...)
	ctx := c.ctx
	c.mu.Unlock()
	c.emitAll(events)

	c.wg.Add(1)
	c.run(func() {
		defer c.wg.Done()
		outcome := c.process(ctx, id, img)
		c.dispatch(func() { c.complete(outcome) })
	})
}

// process runs preprocess and recognition. It touches no controller state.
func (c *Controller) process(ctx context.Context, id surface.StrokeID, img image.Image) (outcome Outcome) {
	outcome.Stroke = id
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Kind: OutcomeRecognitionFailed, Stroke: id, Err: fmt.Errorf("recognizer panic: %v", r)}
		}
	}()

	cropped, err := c.pre.Preprocess(img)
	if errors.Is(err, preprocess.ErrEmptyCanvas) {
		outcome.Kind = OutcomeEmptyCanvas
		outcome.Err = err
		return outcome
	}
	if err != nil {
		outcome.Kind = OutcomeRecognitionFailed
		outcome.Err = fmt.Errorf("preprocess: %w", err)
		return outcome
	}

	candidates, err := c.rec.Recognize(ctx, cropped)
	if err != nil {
		outcome.Kind = OutcomeRecognitionFailed
		outcome.Err = err
		return outcome
	}
	if len(candidates) == 0 {
		outcome.Kind = OutcomeNoCandidate
		outcome.Err = recognize.ErrNoCandidate
		return outcome
	}

	outcome.Kind = OutcomeRecognized
	outcome.Candidates = candidates
	return outcome
}

// complete applies a worker outcome and returns to Idle.
func (c *Controller) complete(outcome Outcome) {
	c.mu.Lock()
	events := c.finishLocked(outcome)
	c.mu.Unlock()

	c.emitAll(events)
}

// finishLocked updates the display and text for outcome, restores the
// guidelines and returns to Idle.
func (c *Controller) finishLocked(outcome Outcome) []event {
	events := c.setResultLocked(outcome.Message())

	switch outcome.Kind {
	case OutcomeRecognized:
		best, _ := outcome.Best()
		log.Printf("controller: stroke %d recognized as %q (%.2f)", outcome.Stroke, best.Text, best.Confidence)
		c.text += best.Text
		events = append(events, event{typ: EventTextChanged, data: c.text})
	case OutcomeEmptyCanvas, OutcomeNoCandidate:
		log.Printf("controller: stroke %d: %v", outcome.Stroke, outcome.Err)
	default:
		log.Printf("controller: stroke %d failed: %v", outcome.Stroke, outcome.Err)
	}

	c.surface.ShowGuidelines()
	events = append(events, event{typ: EventSurfaceChanged})
	events = append(events, c.setStateLocked(StateIdle)...)
	return append(events, event{typ: EventRecognized, data: outcome})
}

// Undo erases the last stroke. It reports whether anything was removed and
// does nothing outside Idle.
func (c *Controller) Undo() bool {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return false
	}
	_, ok := c.surface.UndoLast()
	c.mu.Unlock()

	if ok {
		c.Emit(EventSurfaceChanged, nil)
	}
	return ok
}

// Clear erases the whole canvas. It does nothing outside Idle.
func (c *Controller) Clear() bool {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return false
	}
	c.surface.ClearAll()
	c.surface.ShowGuidelines()
	events := c.setResultLocked(MsgCleared)
	c.mu.Unlock()

	c.emitAll(append(events, event{typ: EventSurfaceChanged}))
	return true
}

// SetText replaces the accumulated text after a user edit. No event is
// emitted since the edit came from the view.
func (c *Controller) SetText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

// ClearText empties the accumulated text.
func (c *Controller) ClearText() {
	c.mu.Lock()
	c.text = ""
	c.mu.Unlock()
	c.Emit(EventTextChanged, "")
}

// CopyText writes the accumulated text to cb.
func (c *Controller) CopyText(cb Clipboard) error {
	if cb == nil {
		return ErrClipboardUnavailable
	}
	cb.SetContent(c.Text())
	return nil
}

// Close cancels any in-flight recognition and waits for the worker.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) setStateLocked(s State) []event {
	if c.state == s {
		return nil
	}
	c.state = s
	return []event{{typ: EventStateChanged, data: s}}
}

func (c *Controller) setResultLocked(msg string) []event {
	if c.result == msg {
		return nil
	}
	c.result = msg
	return []event{{typ: EventResultChanged, data: msg}}
}
