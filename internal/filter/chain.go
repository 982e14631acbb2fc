// Package filter turns an adjustment set into the ordered filter chain a
// rasterizer applies.
//
// The chain always holds one operation per adjustment in a fixed order:
// brightness, contrast, grayscale, invert, opacity, saturate, sepia, blur,
// hue-rotate. Which parameter was edited last never changes the order, so the
// live preview and the exported image are rendered from identical chains.
package filter

import (
	"strconv"
	"strings"

	"github.com/ironsheep/image-adjust-mcp/internal/adjust"
)

// Kind identifies a filter operation.
type Kind uint8

// Operation kinds in canonical order.
const (
	KindBrightness Kind = iota
	KindContrast
	KindGrayscale
	KindInvert
	KindOpacity
	KindSaturate
	KindSepia
	KindBlur
	KindHueRotate
)

// NumKinds is the length of every composed chain.
const NumKinds = 9

// String returns the CSS filter function name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBrightness:
		return "brightness"
	case KindContrast:
		return "contrast"
	case KindGrayscale:
		return "grayscale"
	case KindInvert:
		return "invert"
	case KindOpacity:
		return "opacity"
	case KindSaturate:
		return "saturate"
	case KindSepia:
		return "sepia"
	case KindBlur:
		return "blur"
	case KindHueRotate:
		return "hue-rotate"
	default:
		return "unknown"
	}
}

// Unit is the unit suffix of the kind's value: "px" for blur, "deg" for
// hue-rotate and empty for unitless amounts.
func (k Kind) Unit() string {
	switch k {
	case KindBlur:
		return "px"
	case KindHueRotate:
		return "deg"
	default:
		return ""
	}
}

// Identity returns the value at which the kind leaves pixels unchanged.
func (k Kind) Identity() float64 {
	switch k {
	case KindBrightness, KindContrast, KindOpacity, KindSaturate:
		return 1
	default:
		return 0
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Op is one filter operation. Value is in the rasterizer's units: a pixel
// radius for blur, degrees for hue-rotate, a multiplier or amount otherwise.
type Op struct {
	Kind  Kind    `json:"kind"`
	Value float64 `json:"value"`
}

// IsIdentity reports whether the op leaves pixels unchanged.
func (o Op) IsIdentity() bool {
	return o.Value == o.Kind.Identity()
}

// String renders the op as a CSS filter function, e.g. "blur(5px)".
func (o Op) String() string {
	return o.Kind.String() + "(" + strconv.FormatFloat(o.Value, 'f', -1, 64) + o.Kind.Unit() + ")"
}

// Chain is an ordered list of filter operations.
type Chain []Op

// Compose renders an adjustment set into its canonical chain. It is pure and
// total: equal sets always yield equal chains.
func Compose(s adjust.Set) Chain {
	return Chain{
		{Kind: KindBrightness, Value: s.Brightness},
		{Kind: KindContrast, Value: s.Contrast},
		{Kind: KindGrayscale, Value: s.Grayscale},
		{Kind: KindInvert, Value: s.Invert},
		{Kind: KindOpacity, Value: s.Opacity},
		{Kind: KindSaturate, Value: s.Saturate},
		{Kind: KindSepia, Value: s.Sepia},
		{Kind: KindBlur, Value: s.Blur},
		{Kind: KindHueRotate, Value: s.HueRotate},
	}
}

// IsIdentity reports whether every op in the chain is an identity.
func (c Chain) IsIdentity() bool {
	for _, op := range c {
		if !op.IsIdentity() {
			return false
		}
	}
	return true
}

// String renders the chain as a CSS filter shorthand.
func (c Chain) String() string {
	if len(c) == 0 {
		return "none"
	}
	parts := make([]string, len(c))
	for i, op := range c {
		parts[i] = op.String()
	}
	return strings.Join(parts, " ")
}
