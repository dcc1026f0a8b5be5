// Command hwrcheck runs the recognition pipeline headlessly over image files.
// It crops each image the way the pad does and prints the ranked candidates.
//
// Usage: hwrcheck [options] <image>...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"hwr-pad/internal/config"
	"hwr-pad/internal/ocr"
	"hwr-pad/internal/preprocess"
	"hwr-pad/internal/recognize"
	"hwr-pad/pkg/geometry"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// Result is the report for one input file.
type Result struct {
	Path       string                `json:"path"`
	Crop       *geometry.RectInt     `json:"crop,omitempty"`
	Candidates []recognize.Candidate `json:"candidates"`
	Error      string                `json:"error,omitempty"`
}

var (
	flagConfig   = flag.String("config", config.DefaultPath(), "Config file")
	flagParallel = flag.Int("j", 1, "Number of files preprocessed in parallel")
	flagCropDir  = flag.String("crop-dir", "", "Save cropped PNGs to this directory")
	flagJSON     = flag.String("json", "", "Output results to JSON file")
	flagTop      = flag.Int("top", 3, "Candidates printed per file")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <image>...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	rec, err := ocr.NewRecognizer(cfg.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing model: %v\n", err)
		os.Exit(1)
	}
	defer rec.Close()

	if *flagCropDir != "" {
		if err := os.MkdirAll(*flagCropDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating crop directory: %v\n", err)
			os.Exit(1)
		}
	}

	pre := preprocess.New(cfg.Preprocess.Padding)
	results := make([]Result, flag.NArg())

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(1, *flagParallel))
	for i, path := range flag.Args() {
		g.Go(func() error {
			results[i] = check(ctx, pre, rec, path)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		fmt.Println(format(r, *flagTop))
	}

	if *flagJSON != "" {
		data, err := json.MarshalIndent(results, "", "  ")
		if err == nil {
			err = os.WriteFile(*flagJSON, data, 0o644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	}

	if failed > 0 {
		os.Exit(2)
	}
}

// check runs preprocess and recognition for one file. An empty image or
// no candidate is a result, not an error.
func check(ctx context.Context, pre *preprocess.Preprocessor, rec *recognize.Recognizer, path string) Result {
	res := Result{Path: path}

	img, err := loadImage(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	box, err := pre.ContentBounds(img)
	if errors.Is(err, preprocess.ErrEmptyCanvas) {
		return res
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Crop = &box
	cropped := preprocess.Crop(img, box.ImageRect())

	if *flagCropDir != "" {
		if err := savePNG(filepath.Join(*flagCropDir, cropName(path)), cropped); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	res.Candidates, err = rec.Recognize(ctx, cropped)
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func format(r Result, top int) string {
	switch {
	case r.Error != "":
		return fmt.Sprintf("%s: error: %s", r.Path, r.Error)
	case len(r.Candidates) == 0:
		return fmt.Sprintf("%s: %s", r.Path, recognize.MsgNoCharacter)
	}
	parts := make([]string, 0, top)
	for i, c := range r.Candidates {
		if top > 0 && i >= top {
			break
		}
		parts = append(parts, c.String())
	}
	return fmt.Sprintf("%s: %s", r.Path, strings.Join(parts, ", "))
}

func cropName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_crop.png"
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
