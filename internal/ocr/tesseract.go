// Package ocr provides the Tesseract-backed handwriting recognition model.
package ocr

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"hwr-pad/internal/config"
	"hwr-pad/internal/preprocess"
	"hwr-pad/internal/recognize"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// minSide is the smallest image side handed to Tesseract; smaller crops
// are upscaled first.
const minSide = 64

var pageModes = map[string]gosseract.PageSegMode{
	"char":  gosseract.PSM_SINGLE_CHAR,
	"word":  gosseract.PSM_SINGLE_WORD,
	"line":  gosseract.PSM_SINGLE_LINE,
	"block": gosseract.PSM_SINGLE_BLOCK,
}

// Engine is a recognize.Model backed by a single Tesseract client.
// The client is not safe for concurrent use, so calls are serialized.
type Engine struct {
	mu       sync.Mutex
	client   *gosseract.Client
	pageMode gosseract.PageSegMode
	decoder  recognize.Decoder
	confPath string // init-time Tesseract config, removed on Close
}

var _ recognize.Model = (*Engine)(nil)

// NewEngine creates and configures the Tesseract client. This loads the
// language models and should happen once at startup.
func NewEngine(cfg config.ModelConfig) (*Engine, error) {
	client := gosseract.NewClient()

	if cfg.Device == "gpu" {
		log.Printf("ocr: GPU requested but Tesseract runs on CPU only, continuing on CPU")
	}

	if prefix := tessdataPrefix(cfg); prefix != "" {
		if err := client.SetTessdataPrefix(prefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
		log.Printf("ocr: using tessdata from %s", prefix)
	}

	if err := client.SetLanguage(cfg.Languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	mode, ok := pageModes[cfg.PageMode]
	if !ok {
		mode = gosseract.PSM_SINGLE_CHAR
	}

	// Init-only parameters are ignored by SetVariable; they go in a config
	// file read during Init.
	confPath, err := writeInitConfig(os.TempDir())
	if err != nil {
		client.Close()
		return nil, err
	}
	if err := client.SetConfigFile(confPath); err != nil {
		client.Close()
		os.Remove(confPath)
		return nil, fmt.Errorf("failed to set tesseract config: %w", err)
	}

	log.Printf("ocr: tesseract %s, languages %s", client.Version(), strings.Join(cfg.Languages, "+"))

	return &Engine{
		client:   client,
		pageMode: mode,
		decoder:  recognize.Decoder(cfg.Decoder),
		confPath: confPath,
	}, nil
}

// initParams are applied when Tesseract initializes. A single drawn glyph is
// not a dictionary word, so the word lists are not loaded.
var initParams = []string{
	"load_system_dawg F",
	"load_freq_dawg F",
}

// writeInitConfig writes initParams to a new Tesseract config file in dir.
func writeInitConfig(dir string) (string, error) {
	f, err := os.CreateTemp(dir, "hwr-pad-tesseract-*.conf")
	if err != nil {
		return "", fmt.Errorf("failed to create tesseract config: %w", err)
	}
	_, err = f.WriteString(strings.Join(initParams, "\n") + "\n")
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write tesseract config: %w", err)
	}
	return f.Name(), nil
}

// NewRecognizer builds the engine from cfg and wraps it in a recognizer
// using the configured read options. Closing the recognizer closes the engine.
func NewRecognizer(cfg config.ModelConfig) (*recognize.Recognizer, error) {
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return recognize.New(engine, ReadOptions(cfg)), nil
}

// ReadOptions converts the model configuration into per-call options.
func ReadOptions(cfg config.ModelConfig) recognize.ReadOptions {
	opts := recognize.DefaultReadOptions()
	if cfg.Decoder != "" {
		opts.Decoder = recognize.Decoder(cfg.Decoder)
	}
	if cfg.MagRatio > 0 {
		opts.MagRatio = cfg.MagRatio
	}
	opts.Threshold = cfg.Threshold
	return opts
}

// tessdataPrefix picks the model directory. Quantized models live in the
// tessdata_fast directory when one is configured.
func tessdataPrefix(cfg config.ModelConfig) string {
	if cfg.Quantize && cfg.TessdataFastDir != "" {
		if info, err := os.Stat(cfg.TessdataFastDir); err == nil && info.IsDir() {
			return withSlash(cfg.TessdataFastDir)
		}
		log.Printf("ocr: tessdata_fast directory %s not found, using default models", cfg.TessdataFastDir)
	}
	if cfg.TessdataDir != "" {
		return withSlash(cfg.TessdataDir)
	}
	return ""
}

func withSlash(dir string) string {
	return strings.TrimSuffix(dir, string(filepath.Separator)) + string(filepath.Separator)
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	if e.confPath != "" {
		os.Remove(e.confPath)
	}
	return err
}

// ReadText recognizes the text in img and returns word-level detections with
// confidences normalized to [0,1].
func (e *Engine) ReadText(ctx context.Context, img image.Image, opts recognize.ReadOptions) ([]recognize.Detection, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	png, err := encodeForOCR(img, opts.MagRatio)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return nil, fmt.Errorf("OCR engine is closed")
	}

	decoder := opts.Decoder
	if decoder == "" {
		decoder = e.decoder
	}

	scale := upscaleFactor(img.Bounds(), opts.MagRatio)
	var passes [][]recognize.Detection
	for _, mode := range searchModes(decoder, e.pageMode) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.client.SetPageSegMode(mode); err != nil {
			return nil, fmt.Errorf("failed to set PSM: %w", err)
		}
		if err := e.client.SetImageFromBytes(png); err != nil {
			return nil, fmt.Errorf("failed to set image: %w", err)
		}
		boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
		if err != nil {
			return nil, fmt.Errorf("failed to get boxes: %w", err)
		}
		passes = append(passes, toDetections(boxes, opts.Threshold, scale))
	}

	return mergeDetections(passes...), nil
}

// searchModes lists the page segmentation modes read for one image. Greedy
// reads once with the configured mode; beam search also reads with the
// single char, word and line modes and merges the results.
func searchModes(d recognize.Decoder, base gosseract.PageSegMode) []gosseract.PageSegMode {
	if d != recognize.DecoderBeamSearch {
		return []gosseract.PageSegMode{base}
	}
	modes := []gosseract.PageSegMode{base}
	for _, m := range []gosseract.PageSegMode{gosseract.PSM_SINGLE_CHAR, gosseract.PSM_SINGLE_WORD, gosseract.PSM_SINGLE_LINE} {
		if m != base {
			modes = append(modes, m)
		}
	}
	return modes
}

// mergeDetections concatenates the passes, keeping only the most confident
// detection of each text. First-seen order is preserved.
func mergeDetections(passes ...[]recognize.Detection) []recognize.Detection {
	var out []recognize.Detection
	index := make(map[string]int)
	for _, pass := range passes {
		for _, d := range pass {
			if i, ok := index[d.Text]; ok {
				if d.Confidence > out[i].Confidence {
					out[i] = d
				}
				continue
			}
			index[d.Text] = len(out)
			out = append(out, d)
		}
	}
	return out
}

// toDetections converts Tesseract boxes into detections in the caller's
// image coordinates, dropping anything below threshold.
func toDetections(boxes []gosseract.BoundingBox, threshold, scale float64) []recognize.Detection {
	var out []recognize.Detection
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		conf := normalizeConfidence(box.Confidence)
		if conf < threshold {
			continue
		}
		out = append(out, recognize.Detection{
			Bounds: image.Rect(
				int(float64(box.Box.Min.X)/scale),
				int(float64(box.Box.Min.Y)/scale),
				int(float64(box.Box.Max.X)/scale),
				int(float64(box.Box.Max.Y)/scale),
			),
			Text:       text,
			Confidence: conf,
		})
	}
	return out
}

// normalizeConfidence maps Tesseract's 0-100 score to [0,1].
func normalizeConfidence(c float64) float64 {
	return min(1, max(0, c/100))
}

// upscaleFactor is the total scale encodeForOCR applies for the given ratio.
func upscaleFactor(b image.Rectangle, ratio float64) float64 {
	if ratio <= 0 {
		ratio = 1
	}
	scale := ratio
	if side := float64(min(b.Dx(), b.Dy())) * scale; side < minSide {
		scale *= minSide / side
	}
	return scale
}

// encodeForOCR scales, binarizes and PNG-encodes img. Ink stays dark on a
// light background, which is what Tesseract expects.
func encodeForOCR(img image.Image, ratio float64) ([]byte, error) {
	if ratio <= 0 {
		ratio = 1
	}

	src, err := gocv.ImageToMatRGB(preprocess.Compact(img))
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	scaled := gocv.NewMat()
	defer scaled.Close()
	if scale := upscaleFactor(img.Bounds(), ratio); scale != 1 {
		interp := gocv.InterpolationCubic
		if scale < 1 {
			interp = gocv.InterpolationArea
		}
		gocv.Resize(src, &scaled, image.Point{}, scale, scale, interp)
	} else {
		src.CopyTo(&scaled)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(scaled, &gray, gocv.ColorBGRToGray)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, binary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory released by Close.
	return append([]byte(nil), buf.GetBytes()...), nil
}
