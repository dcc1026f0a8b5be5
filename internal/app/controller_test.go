package app

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"hwr-pad/internal/preprocess"
	"hwr-pad/internal/recognize"
	"hwr-pad/internal/surface"
	"hwr-pad/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type passThrough struct {
	err   error
	calls int
}

func (p *passThrough) Preprocess(img image.Image) (image.Image, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return img, nil
}

type fakeRecognizer struct {
	mu         sync.Mutex
	candidates []recognize.Candidate
	err        error
	calls      int
	block      chan struct{} // when set, Recognize waits for it
}

func (r *fakeRecognizer) Recognize(ctx context.Context, _ image.Image) ([]recognize.Candidate, error) {
	r.mu.Lock()
	r.calls++
	block := r.block
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.candidates, r.err
}

func (r *fakeRecognizer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type clipboard struct{ content string }

func (c *clipboard) SetContent(s string) { c.content = s }

func pt(x, y float64) geometry.Point2D { return geometry.NewPoint2D(x, y) }

func newSurface() *surface.Surface {
	s := surface.New(surface.DefaultStyle())
	s.SetSize(600, 600)
	return s
}

func newSyncController(s Surface, pre Preprocessor, rec Recognizer) *Controller {
	return NewController(s, pre, rec, WithSyncRecognition())
}

func drawStroke(c *Controller) {
	c.PointerDown(pt(250, 250))
	c.PointerMove(pt(300, 300))
	c.PointerMove(pt(350, 250))
	c.PointerUp()
}

func TestRecognizedCharacterIsAppended(t *testing.T) {
	s := newSurface()
	rec := &fakeRecognizer{candidates: []recognize.Candidate{{Text: "A", Confidence: 0.92}, {Text: "4", Confidence: 0.31}}}
	c := newSyncController(s, &passThrough{}, rec)

	var outcomes []Outcome
	c.On(EventRecognized, func(data interface{}) { outcomes = append(outcomes, data.(Outcome)) })

	drawStroke(c)

	assert.Equal(t, "A (92%)", c.Result())
	assert.Equal(t, "A", c.Text())
	assert.Equal(t, StateIdle, c.State())
	assert.True(t, s.GuidelinesVisible())
	assert.Equal(t, []surface.StrokeID{1}, s.History())
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeRecognized, outcomes[0].Kind)

	drawStroke(c)
	assert.Equal(t, "AA", c.Text())
}

func TestNoCandidateLeavesTextUnchanged(t *testing.T) {
	rec := &fakeRecognizer{}
	c := newSyncController(newSurface(), &passThrough{}, rec)
	c.SetText("xy")

	var outcome Outcome
	c.On(EventRecognized, func(data interface{}) { outcome = data.(Outcome) })

	drawStroke(c)

	assert.Equal(t, MsgNoCharacter, c.Result())
	assert.Equal(t, "xy", c.Text())
	assert.Equal(t, OutcomeNoCandidate, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, recognize.ErrNoCandidate)
	assert.Equal(t, 1, rec.Calls())
}

func TestEmptyCanvasSkipsModel(t *testing.T) {
	rec := &fakeRecognizer{candidates: []recognize.Candidate{{Text: "A", Confidence: 1}}}
	c := newSyncController(newSurface(), &passThrough{err: preprocess.ErrEmptyCanvas}, rec)

	var outcome Outcome
	c.On(EventRecognized, func(data interface{}) { outcome = data.(Outcome) })

	drawStroke(c)

	assert.Equal(t, MsgNoCharacter, c.Result())
	assert.Equal(t, OutcomeEmptyCanvas, outcome.Kind)
	assert.Zero(t, rec.Calls())
	assert.Empty(t, c.Text())
}

func TestClickWithoutMoveDoesNotRecognize(t *testing.T) {
	s := newSurface()
	pre := &passThrough{}
	rec := &fakeRecognizer{}
	c := newSyncController(s, pre, rec)

	for i := 0; i < 3; i++ {
		c.PointerDown(pt(100, 100))
		assert.False(t, s.GuidelinesVisible())
		c.PointerUp()
	}

	assert.Empty(t, s.History())
	assert.Zero(t, pre.calls)
	assert.Zero(t, rec.Calls())
	assert.Equal(t, MsgReady, c.Result())
	assert.Equal(t, StateIdle, c.State())
	assert.True(t, s.GuidelinesVisible())
}

func TestCaptureFailureKeepsControllerIdle(t *testing.T) {
	s := surface.New(surface.DefaultStyle()) // never realized
	rec := &fakeRecognizer{candidates: []recognize.Candidate{{Text: "A", Confidence: 1}}}
	c := newSyncController(s, &passThrough{}, rec)
	c.SetText("keep")

	var outcome Outcome
	c.On(EventRecognized, func(data interface{}) { outcome = data.(Outcome) })

	drawStroke(c)

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "keep", c.Text())
	assert.Contains(t, c.Result(), "Capture error")
	assert.Equal(t, OutcomeCaptureFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, ErrCaptureFailed)
	assert.Zero(t, rec.Calls())

	// still interactive
	s.SetSize(600, 600)
	drawStroke(c)
	assert.Equal(t, "keepA", c.Text())
}

func TestRecognizerErrorIsReported(t *testing.T) {
	c := newSyncController(newSurface(), &passThrough{}, &fakeRecognizer{err: errors.New("model exploded")})

	drawStroke(c)

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "Recognition error: model exploded", c.Result())
	assert.Empty(t, c.Text())
}

type panickyRecognizer struct{}

func (panickyRecognizer) Recognize(context.Context, image.Image) ([]recognize.Candidate, error) {
	panic("cgo went sideways")
}

func TestRecognizerPanicDoesNotWedgeController(t *testing.T) {
	c := newSyncController(newSurface(), &passThrough{}, panickyRecognizer{})

	drawStroke(c)

	assert.Equal(t, StateIdle, c.State())
	assert.Contains(t, c.Result(), "cgo went sideways")
}

func TestUndoAfterStrokeThenNoop(t *testing.T) {
	s := newSurface()
	c := newSyncController(s, &passThrough{}, &fakeRecognizer{})

	drawStroke(c)
	require.Len(t, s.History(), 1)

	assert.True(t, c.Undo())
	assert.Empty(t, s.History())
	assert.False(t, c.Undo())
}

func TestUndoDoesNotRecognize(t *testing.T) {
	rec := &fakeRecognizer{candidates: []recognize.Candidate{{Text: "A", Confidence: 1}}}
	c := newSyncController(newSurface(), &passThrough{}, rec)

	drawStroke(c)
	drawStroke(c)
	require.Equal(t, 2, rec.Calls())

	c.Undo()
	assert.Equal(t, 2, rec.Calls())
	assert.Equal(t, "AA", c.Text())
}

func TestClearResetsCanvas(t *testing.T) {
	s := newSurface()
	c := newSyncController(s, &passThrough{}, &fakeRecognizer{candidates: []recognize.Candidate{{Text: "b", Confidence: 0.5}}})

	drawStroke(c)
	drawStroke(c)
	require.True(t, c.Clear())

	assert.Equal(t, 0, s.StrokeCount())
	assert.Empty(t, s.History())
	assert.True(t, s.GuidelinesVisible())
	assert.Equal(t, MsgCleared, c.Result())
	assert.Equal(t, "bb", c.Text(), "clearing the canvas keeps the text")
}

func TestTextActions(t *testing.T) {
	c := newSyncController(newSurface(), &passThrough{}, &fakeRecognizer{})

	var changes []string
	c.On(EventTextChanged, func(data interface{}) { changes = append(changes, data.(string)) })

	c.SetText("hello")
	cb := &clipboard{}
	require.NoError(t, c.CopyText(cb))
	assert.Equal(t, "hello", cb.content)

	assert.ErrorIs(t, c.CopyText(nil), ErrClipboardUnavailable)
	assert.Equal(t, "hello", c.Text())

	c.ClearText()
	assert.Empty(t, c.Text())
	assert.Equal(t, []string{""}, changes)
}

func TestInputIsGatedWhileRecognizing(t *testing.T) {
	s := newSurface()
	rec := &fakeRecognizer{
		candidates: []recognize.Candidate{{Text: "Z", Confidence: 0.8}},
		block:      make(chan struct{}),
	}
	done := make(chan Outcome, 1)
	c := NewController(s, &passThrough{}, rec)
	defer c.Close()
	c.On(EventRecognized, func(data interface{}) { done <- data.(Outcome) })

	drawStroke(c)
	require.Equal(t, StateRecognizing, c.State())
	assert.Equal(t, MsgProcessing, c.Result())

	// drawing, undo and clear are ignored while the worker runs
	c.PointerDown(pt(10, 10))
	c.PointerMove(pt(20, 20))
	c.PointerUp()
	assert.False(t, c.Undo())
	assert.False(t, c.Clear())
	assert.Equal(t, 1, s.StrokeCount())
	assert.Equal(t, []surface.StrokeID{1}, s.History())

	close(rec.block)
	select {
	case outcome := <-done:
		assert.Equal(t, OutcomeRecognized, outcome.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("recognition never completed")
	}

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "Z (80%)", c.Result())
	assert.Equal(t, "Z", c.Text())
	assert.Equal(t, 1, rec.Calls())
}

func TestDispatcherReceivesCompletion(t *testing.T) {
	var queued []func()
	rec := &fakeRecognizer{candidates: []recognize.Candidate{{Text: "Q", Confidence: 0.5}}}
	c := NewController(newSurface(), &passThrough{}, rec,
		WithSyncRecognition(),
		WithDispatcher(func(f func()) { queued = append(queued, f) }),
	)

	drawStroke(c)
	require.Len(t, queued, 1)
	assert.Equal(t, StateRecognizing, c.State())
	assert.Empty(t, c.Text())

	queued[0]()
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, "Q", c.Text())
}

func TestCloseCancelsInFlightRecognition(t *testing.T) {
	rec := &fakeRecognizer{block: make(chan struct{})}
	c := NewController(newSurface(), &passThrough{}, rec)

	drawStroke(c)
	c.Close()

	assert.Equal(t, StateIdle, c.State())
	assert.Contains(t, c.Result(), context.Canceled.Error())
}

func TestStateEvents(t *testing.T) {
	c := newSyncController(newSurface(), &passThrough{}, &fakeRecognizer{})

	var states []State
	c.On(EventStateChanged, func(data interface{}) { states = append(states, data.(State)) })

	drawStroke(c)
	assert.Equal(t, []State{StateDrawing, StateRecognizing, StateIdle}, states)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "drawing", StateDrawing.String())
	assert.Equal(t, "recognizing", StateRecognizing.String())
}
