package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/histogram"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in multiple representations.
type ColorResult struct {
	Hex string   `json:"hex"` // Hex format "#RRGGBB" (no alpha)
	RGB RGBColor `json:"rgb"` // RGB components
	HSL HSLColor `json:"hsl"` // HSL representation
}

// newColorResult converts a colorful.Color into all representations.
func newColorResult(c colorful.Color) ColorResult {
	c = c.Clamped()
	r, g, b := c.RGB255()
	h, s, l := c.Hsl()
	return ColorResult{
		Hex: fmt.Sprintf("#%02X%02X%02X", r, g, b),
		RGB: RGBColor{R: r, G: g, B: b},
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
	}
}

// SampleColor returns the color at (x, y).
//
// Coordinates are 0-based relative to the image bounds. Alpha is ignored.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	px, py := bounds.Min.X+x, bounds.Min.Y+y
	if x < 0 || y < 0 || px >= bounds.Max.X || py >= bounds.Max.Y {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}
	c, _ := colorful.MakeColor(img.At(px, py))
	res := newColorResult(c)
	return &res, nil
}

// ChannelStats summarizes the distribution of one color channel.
type ChannelStats struct {
	// Mean is the average 8-bit channel value.
	Mean float64 `json:"mean"`

	// ShadowClipPct is the percentage of pixels at 0.
	ShadowClipPct float64 `json:"shadow_clip_pct"`

	// HighlightClipPct is the percentage of pixels at 255.
	HighlightClipPct float64 `json:"highlight_clip_pct"`
}

// Summary describes the overall tone of a rendered image.
type Summary struct {
	// Average is the mean color of all pixels.
	Average ColorResult `json:"average"`

	Red   ChannelStats `json:"red"`
	Green ChannelStats `json:"green"`
	Blue  ChannelStats `json:"blue"`
}

// Summarize computes the average color and per-channel exposure statistics
// of img from its RGBA histogram. Channel values are alpha-premultiplied, so
// transparent pixels count as black.
func Summarize(img image.Image) *Summary {
	hist := histogram.NewRGBAHistogram(img)

	red := channelStats(hist.R.Bins)
	green := channelStats(hist.G.Bins)
	blue := channelStats(hist.B.Bins)

	avg := colorful.Color{R: red.Mean / 255, G: green.Mean / 255, B: blue.Mean / 255}
	return &Summary{
		Average: newColorResult(avg),
		Red:     red,
		Green:   green,
		Blue:    blue,
	}
}

func channelStats(bins []int) ChannelStats {
	total := 0
	sum := 0.0
	for v, n := range bins {
		total += n
		sum += float64(v * n)
	}
	if total == 0 || len(bins) == 0 {
		return ChannelStats{}
	}
	return ChannelStats{
		Mean:             sum / float64(total),
		ShadowClipPct:    float64(bins[0]) / float64(total) * 100,
		HighlightClipPct: float64(bins[len(bins)-1]) / float64(total) * 100,
	}
}
