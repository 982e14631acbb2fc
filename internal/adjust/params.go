package adjust

import (
	"fmt"
	"math"
	"strings"
)

// Param names one adjustment parameter.
type Param string

// Adjustment parameters, in canonical filter order.
const (
	Brightness Param = "brightness"
	Contrast   Param = "contrast"
	Grayscale  Param = "grayscale"
	Invert     Param = "invert"
	Opacity    Param = "opacity"
	Saturate   Param = "saturate"
	Sepia      Param = "sepia"
	Blur       Param = "blur"
	HueRotate  Param = "hueRotate"
)

// Params lists every parameter in canonical filter order.
var Params = []Param{
	Brightness,
	Contrast,
	Grayscale,
	Invert,
	Opacity,
	Saturate,
	Sepia,
	Blur,
	HueRotate,
}

// Range describes the valid values of a parameter.
type Range struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Default float64 `json:"default"`
}

var ranges = map[Param]Range{
	Brightness: {Min: 0, Max: 4, Step: 0.01, Default: 1},
	Contrast:   {Min: 0, Max: 4, Step: 0.01, Default: 1},
	Grayscale:  {Min: 0, Max: 1, Step: 0.01, Default: 0},
	Invert:     {Min: 0, Max: 1, Step: 0.01, Default: 0},
	Opacity:    {Min: 0, Max: 1, Step: 0.01, Default: 1},
	Saturate:   {Min: 0, Max: 4, Step: 0.01, Default: 1},
	Sepia:      {Min: 0, Max: 1, Step: 0.01, Default: 0},
	Blur:       {Min: 0, Max: 20, Step: 0.1, Default: 0},
	HueRotate:  {Min: 0, Max: 360, Step: 1, Default: 0},
}

// RangeOf returns the range of p. The boolean is false for unknown names.
func RangeOf(p Param) (Range, bool) {
	r, ok := ranges[p]
	return r, ok
}

// Valid reports whether p is a known parameter.
func (p Param) Valid() bool {
	_, ok := ranges[p]
	return ok
}

// Coerce forces v into the range using the package coercion policy.
func (r Range) Coerce(v float64) float64 {
	if math.IsNaN(v) {
		return r.Default
	}
	v = r.clamp(v)
	if r.Step > 0 {
		steps := math.Round((v - r.Min) / r.Step)
		v = r.clamp(r.Min + steps*r.Step)
		// Trim float noise left by the step multiplication (0.30000000000000004).
		v = math.Round(v*1e6) / 1e6
	}
	return v
}

func (r Range) clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

var aliases = map[string]Param{
	"hue-rotate": HueRotate,
	"hue_rotate": HueRotate,
	"huerotate":  HueRotate,
	"hue":        HueRotate,
	"saturation": Saturate,
}

// ParseParam resolves a user-supplied parameter name. Canonical names match
// case-insensitively; CSS-style spellings such as "hue-rotate" are accepted.
func ParseParam(name string) (Param, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range Params {
		if strings.ToLower(string(p)) == key {
			return p, nil
		}
	}
	if p, ok := aliases[key]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown adjustment %q", name)
}
