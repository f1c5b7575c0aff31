package render

import (
	"fmt"
	"image/color"
	"math"
)

// ScaleColor maps v from [0,1] onto a linear green (0) to red (1) scale.
// Values outside the range are clamped.
func ScaleColor(v float64) color.RGBA {
	if math.IsNaN(v) {
		v = 0
	}
	v = math.Max(0, math.Min(1, v))
	return color.RGBA{
		R: uint8(math.Floor(255 * v)),
		G: uint8(math.Floor(255 * (1 - v))),
		B: 0,
		A: 255,
	}
}

// Normalize returns value/max, or 0 if max is not positive.
func Normalize(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return value / max
}

// CSSColor formats c as a CSS rgb() color.
func CSSColor(c color.RGBA) string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}
