// Package aspect picks the output aspect ratio requested from the image editing model.
//
// Explicit ratio wording in the edit instructions always wins over geometry. Without
// it, the ratio closest to the original image is chosen so an edit never reframes a
// photo more than necessary.
package aspect

import (
	"math"
	"strings"
)

// Ratio is a width:height category accepted by the image editing model.
type Ratio string

// Supported output ratios.
const (
	Square        Ratio = "1:1"
	Portrait3x4   Ratio = "3:4"
	Landscape4x3  Ratio = "4:3"
	Portrait9x16  Ratio = "9:16"
	Landscape16x9 Ratio = "16:9"
)

// candidate pairs a ratio with its numeric width/height value.
type candidate struct {
	ratio Ratio
	value float64
}

// candidates is scanned in order; on equal distance the earlier entry wins.
var candidates = []candidate{
	{Square, 1.0},
	{Portrait3x4, 0.75},
	{Landscape4x3, 1.3333},
	{Portrait9x16, 0.5625},
	{Landscape16x9, 1.7778},
}

// keyword maps an instruction token to the ratio it requests.
type keyword struct {
	token string
	ratio Ratio
}

// keywords is checked in priority order. "16:9" must precede "9:16" and so on so
// that the first explicit request in this list wins, not the first in the text.
var keywords = []keyword{
	{"16:9", Landscape16x9},
	{"9:16", Portrait9x16},
	{"4:3", Landscape4x3},
	{"3:4", Portrait3x4},
	{"1:1", Square},
	{"square", Square},
}

// Select returns the ratio to request for an edit of a width×height image.
//
// It never fails: non-positive dimensions with no keyword present yield Square.
func Select(width, height int, editInstructions []string) Ratio {
	if r, ok := FromInstructions(editInstructions); ok {
		return r
	}
	if width <= 0 || height <= 0 {
		return Square
	}
	return Closest(float64(width) / float64(height))
}

// FromInstructions reports the ratio explicitly named in the instructions, if any.
func FromInstructions(editInstructions []string) (Ratio, bool) {
	text := strings.ToLower(strings.Join(editInstructions, " "))
	for _, kw := range keywords {
		if strings.Contains(text, kw.token) {
			return kw.ratio, true
		}
	}
	return "", false
}

// Closest returns the supported ratio nearest to value (width divided by height).
func Closest(value float64) Ratio {
	best := candidates[0]
	bestDiff := math.Abs(best.value - value)
	for _, c := range candidates[1:] {
		if d := math.Abs(c.value - value); d < bestDiff {
			best, bestDiff = c, d
		}
	}
	return best.ratio
}

// Value returns the numeric width/height of r, or 0 for an unknown ratio.
func (r Ratio) Value() float64 {
	for _, c := range candidates {
		if c.ratio == r {
			return c.value
		}
	}
	return 0
}

// Valid reports whether r is one of the supported ratios.
func (r Ratio) Valid() bool {
	return r.Value() != 0
}

// All returns the supported ratios in table order.
func All() []Ratio {
	out := make([]Ratio, len(candidates))
	for i, c := range candidates {
		out[i] = c.ratio
	}
	return out
}
