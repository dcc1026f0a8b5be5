// Package config loads the handwriting pad's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"hwr-pad/pkg/colorutil"

	"gopkg.in/yaml.v3"
)

const (
	appDir     = "hwr-pad"
	configFile = "config.yaml"
)

// Config is the full application configuration.
type Config struct {
	Window     WindowConfig     `yaml:"window"`
	Canvas     CanvasConfig     `yaml:"canvas"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Model      ModelConfig      `yaml:"model"`
}

// WindowConfig describes the main window.
type WindowConfig struct {
	Title  string  `yaml:"title"`
	Width  float32 `yaml:"width"`
	Height float32 `yaml:"height"`
}

// CanvasConfig describes the drawing surface.
type CanvasConfig struct {
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	Background     string  `yaml:"background"`
	StrokeColor    string  `yaml:"stroke_color"`
	StrokeWidth    float64 `yaml:"stroke_width"`
	GuidelineColor string  `yaml:"guideline_color"`
	GuidelineWidth float64 `yaml:"guideline_width"`
}

// PreprocessConfig tunes the crop applied before recognition.
type PreprocessConfig struct {
	Padding int `yaml:"padding"`
}

// ModelConfig configures the recognition model. It is applied once at startup.
type ModelConfig struct {
	Languages       []string `yaml:"languages"`
	Device          string   `yaml:"device"`   // "cpu" or "gpu"
	Quantize        bool     `yaml:"quantize"` // prefer integer (tessdata_fast) models
	TessdataDir     string   `yaml:"tessdata_dir"`
	TessdataFastDir string   `yaml:"tessdata_fast_dir"`
	PageMode        string   `yaml:"page_mode"` // char, word, line, block
	Decoder         string   `yaml:"decoder"`   // greedy or beamsearch
	MagRatio        float64  `yaml:"mag_ratio"`
	Threshold       float64  `yaml:"threshold"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Handwriting Recognition Interface",
			Width:  1000,
			Height: 900,
		},
		Canvas: CanvasConfig{
			Width:          600,
			Height:         600,
			Background:     "white",
			StrokeColor:    "#282828",
			StrokeWidth:    20,
			GuidelineColor: "#f3f4f6",
			GuidelineWidth: 2,
		},
		Preprocess: PreprocessConfig{Padding: 20},
		Model: ModelConfig{
			Languages: []string{"eng"},
			Device:    "cpu",
			Quantize:  true,
			PageMode:  "char",
			Decoder:   "greedy",
			MagRatio:  1.0,
			Threshold: 0.1,
		},
	}
}

// DefaultPath returns ~/.config/hwr-pad/config.yaml (or the platform equivalent).
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir, configFile)
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides are applied last, then the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if langs := os.Getenv("HWRPAD_LANGUAGES"); langs != "" {
		var list []string
		for _, l := range strings.Split(langs, ",") {
			if l = strings.TrimSpace(l); l != "" {
				list = append(list, l)
			}
		}
		if len(list) > 0 {
			c.Model.Languages = list
		}
	}
	if prefix := os.Getenv("TESSDATA_PREFIX"); prefix != "" && c.Model.TessdataDir == "" {
		c.Model.TessdataDir = prefix
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.StrokeWidth <= 0 {
		return fmt.Errorf("stroke width must be positive, got %v", c.Canvas.StrokeWidth)
	}
	if c.Canvas.GuidelineWidth < 0 {
		return fmt.Errorf("guideline width must not be negative, got %v", c.Canvas.GuidelineWidth)
	}
	for name, s := range map[string]string{
		"background":      c.Canvas.Background,
		"stroke_color":    c.Canvas.StrokeColor,
		"guideline_color": c.Canvas.GuidelineColor,
	} {
		if _, err := colorutil.ParseHex(s); err != nil {
			return fmt.Errorf("canvas %s: %w", name, err)
		}
	}
	if c.Preprocess.Padding < 0 {
		return fmt.Errorf("padding must not be negative, got %d", c.Preprocess.Padding)
	}

	m := c.Model
	if len(m.Languages) == 0 {
		return errors.New("at least one recognition language is required")
	}
	switch m.Device {
	case "cpu", "gpu":
	default:
		return fmt.Errorf("unknown device %q (want cpu or gpu)", m.Device)
	}
	switch m.PageMode {
	case "char", "word", "line", "block":
	default:
		return fmt.Errorf("unknown page mode %q", m.PageMode)
	}
	switch m.Decoder {
	case "greedy", "beamsearch":
	default:
		return fmt.Errorf("unknown decoder %q (want greedy or beamsearch)", m.Decoder)
	}
	if m.MagRatio <= 0 {
		return fmt.Errorf("mag ratio must be positive, got %v", m.MagRatio)
	}
	if m.Threshold < 0 || m.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0,1], got %v", m.Threshold)
	}
	return nil
}

// Colors returns the parsed canvas colors: background, stroke, guideline.
// Validate must have succeeded first.
func (c CanvasConfig) Colors() (bg, stroke, guide color.RGBA) {
	bg, _ = colorutil.ParseHex(c.Background)
	stroke, _ = colorutil.ParseHex(c.StrokeColor)
	guide, _ = colorutil.ParseHex(c.GuidelineColor)
	return bg, stroke, guide
}
