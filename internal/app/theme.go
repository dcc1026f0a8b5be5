package app

import (
	"image/color"

	"hwr-pad/pkg/colorutil"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// HandwritingTheme is the light theme used by the pad: blue accent, red for
// destructive actions, and a pale window background.
type HandwritingTheme struct{}

var _ fyne.Theme = (*HandwritingTheme)(nil)

func (t *HandwritingTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus, theme.ColorNameHyperlink:
		return colorutil.Accent
	case theme.ColorNameError:
		return colorutil.Danger
	case theme.ColorNameBackground:
		return colorutil.Window
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0x40}
	default:
		// Light variant only.
		return theme.DefaultTheme().Color(name, theme.VariantLight)
	}
}

func (t *HandwritingTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *HandwritingTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *HandwritingTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 15
	case theme.SizeNameHeadingText:
		return 20
	default:
		return theme.DefaultTheme().Size(name)
	}
}
