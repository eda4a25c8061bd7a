package og

import (
	"fmt"
	"image/color"
	"strconv"

	"github.com/chand1012/personal-site/internal/content"
)

// Theme selects a palette.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// ParseTheme maps a query value to a Theme. Anything but "dark" is light.
func ParseTheme(s string) Theme {
	if s == string(Dark) {
		return Dark
	}
	return Light
}

// Palette is the set of colours a scene is painted with.
type Palette struct {
	Background      color.NRGBA
	Foreground      color.NRGBA
	Muted           color.NRGBA
	MutedForeground color.NRGBA
	Card            color.NRGBA
	CardForeground  color.NRGBA
	Border          color.NRGBA
	AccentRed       color.NRGBA
	AccentYellow    color.NRGBA
	AccentBlue      color.NRGBA
	AccentGreen     color.NRGBA
}

var palettes = map[Theme]Palette{
	Light: {
		Background:      mustHex("#ffffff"),
		Foreground:      mustHex("#171717"),
		Muted:           mustHex("#f5f5f5"),
		MutedForeground: mustHex("#737373"),
		Card:            mustHex("#ffffff"),
		CardForeground:  mustHex("#171717"),
		Border:          mustHex("#e5e5e5"),
		AccentRed:       mustHex("#c93c37"),
		AccentYellow:    mustHex("#c9a41a"),
		AccentBlue:      mustHex("#2563eb"),
		AccentGreen:     mustHex("#22a55e"),
	},
	Dark: {
		Background:      mustHex("#171717"),
		Foreground:      mustHex("#fafafa"),
		Muted:           mustHex("#404040"),
		MutedForeground: mustHex("#a3a3a3"),
		Card:            mustHex("#262626"),
		CardForeground:  mustHex("#fafafa"),
		Border:          mustHex("#ffffff1a"),
		AccentRed:       mustHex("#ef5350"),
		AccentYellow:    mustHex("#fbbf24"),
		AccentBlue:      mustHex("#3b82f6"),
		AccentGreen:     mustHex("#34d399"),
	},
}

// PaletteFor returns the palette of t.
func PaletteFor(t Theme) Palette {
	return palettes[ParseTheme(string(t))]
}

// Accent resolves a named content accent.
func (p Palette) Accent(a content.Accent) color.NRGBA {
	switch a {
	case content.AccentRed:
		return p.AccentRed
	case content.AccentYellow:
		return p.AccentYellow
	case content.AccentGreen:
		return p.AccentGreen
	default:
		return p.AccentBlue
	}
}

// withAlpha returns c with its alpha replaced.
func withAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}

// parseHex parses #rrggbb or #rrggbbaa.
func parseHex(s string) (color.NRGBA, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid hex colour %q", s)
	}
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func mustHex(s string) color.NRGBA {
	c, err := parseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}
