// Package colorutil provides shared color utilities for the handwriting pad.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Palette used by the drawing surface and theme.
var (
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Ink       = color.RGBA{R: 0x28, G: 0x28, B: 0x28, A: 255}
	Guideline = color.RGBA{R: 0xf3, G: 0xf4, B: 0xf6, A: 255}
	Accent    = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 255}
	Danger    = color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 255}
	Window    = color.RGBA{R: 0xf4, G: 0xf6, B: 0xf9, A: 255}
)

var named = map[string]color.RGBA{
	"white": White,
	"black": {A: 255},
}

// ParseHex parses "#rgb", "#rrggbb" or "#rrggbbaa" (the leading # is optional).
// The names "white" and "black" are also accepted.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := named[s]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")

	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// Hex formats c as "#rrggbb", dropping alpha when opaque.
func Hex(c color.RGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Luminance returns the Rec. 601 luma of c in 0-255, matching OpenCV's BGR2GRAY.
func Luminance(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	y := (299*(r>>8) + 587*(g>>8) + 114*(b>>8) + 500) / 1000
	return uint8(y)
}
