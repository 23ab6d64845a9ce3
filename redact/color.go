package redact

import (
	"fmt"
	"image/color"
	"strings"
)

var fillColors = map[string]color.Color{
	"black": color.Black,
	"white": color.White,
	"red":   color.RGBA{R: 0xFF, A: 0xFF},
	"green": color.RGBA{G: 0xFF, A: 0xFF},
	"blue":  color.RGBA{B: 0xFF, A: 0xFF},
	"gray":  color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF},
	"grey":  color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF},
}

// ParseFillColor resolves a color name to the fill used for redaction boxes.
func ParseFillColor(name string) (color.Color, error) {
	if name == "" {
		return color.Black, nil
	}
	if c, ok := fillColors[strings.ToLower(name)]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unknown fill color %q", name)
}
