// Package recognize turns model detections into ranked character candidates.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"
)

// MsgNoCharacter is shown when an image yields no candidate.
const MsgNoCharacter = "No character detected."

// ErrNoCandidate means the model found no character in the image.
var ErrNoCandidate = errors.New("no character detected")

// Decoder selects the model's decoding strategy.
type Decoder string

const (
	DecoderGreedy     Decoder = "greedy"
	DecoderBeamSearch Decoder = "beamsearch"
)

// ReadOptions are passed to the model on every call.
type ReadOptions struct {
	Decoder   Decoder
	MagRatio  float64 // image scale factor applied before reading
	Threshold float64 // detections below this confidence are dropped
}

// DefaultReadOptions matches the tuning used for single hand-drawn characters.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{Decoder: DecoderGreedy, MagRatio: 1.0, Threshold: 0.1}
}

// Detection is one text region found by the model.
type Detection struct {
	Bounds     image.Rectangle
	Text       string
	Confidence float64
}

// Model is a pretrained text recognizer. It is expensive to build and is
// created once per process.
type Model interface {
	ReadText(ctx context.Context, img image.Image, opts ReadOptions) ([]Detection, error)
	Close() error
}

// Candidate is a recognized string with its confidence in [0,1].
// Confidence is a ranking signal only; it is not calibrated across calls.
type Candidate struct {
	Text       string
	Confidence float64
}

// String renders the candidate as "A (92%)".
func (c Candidate) String() string {
	return fmt.Sprintf("%s (%.0f%%)", c.Text, c.Confidence*100)
}

// Recognizer wraps a Model and ranks its output.
type Recognizer struct {
	model Model
	opts  ReadOptions
}

// New creates a recognizer that owns model.
func New(model Model, opts ReadOptions) *Recognizer {
	return &Recognizer{model: model, opts: opts}
}

// Recognize returns candidates ordered by descending confidence.
// An empty slice means no character was detected.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) ([]Candidate, error) {
	if img == nil {
		return nil, errors.New("recognize: nil image")
	}
	detections, err := r.model.ReadText(ctx, img, r.opts)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	return Rank(detections), nil
}

// Best returns the top candidate or ErrNoCandidate.
func (r *Recognizer) Best(ctx context.Context, img image.Image) (Candidate, error) {
	candidates, err := r.Recognize(ctx, img)
	if err != nil {
		return Candidate{}, err
	}
	if len(candidates) == 0 {
		return Candidate{}, ErrNoCandidate
	}
	return candidates[0], nil
}

// Close releases the underlying model.
func (r *Recognizer) Close() error {
	return r.model.Close()
}

// Rank drops bounding regions and blank text, clamps confidences into [0,1],
// and sorts by descending confidence. Ties keep model order.
func Rank(detections []Detection) []Candidate {
	candidates := make([]Candidate, 0, len(detections))
	for _, d := range detections {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			Text:       text,
			Confidence: min(1, max(0, d.Confidence)),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}
