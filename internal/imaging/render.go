package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-adjust-mcp/internal/filter"
)

// ApplyChain renders img through every op of chain and returns a new image
// with the same width and height as img, anchored at the origin.
//
// # Pipeline
//
// Consecutive per-pixel ops (everything except blur) are fused into a single
// pass over the pixels; blur splits the chain into separate passes:
//
//	[brightness … sepia] -> blur -> [hue-rotate]
//
// Per-pixel ops work on non-premultiplied channels in [0,1] and clamp after
// every op, matching CSS filter function semantics:
//
//   - brightness(b): c*b
//   - contrast(c):   (c-0.5)*k + 0.5
//   - grayscale(a), saturate(s), sepia(a): the CSS Filter Effects color matrices
//   - invert(a):     c*(1-a) + (1-c)*a
//   - opacity(a):    alpha*a
//   - hue-rotate(d): the CSS Filter Effects luminance-preserving rotation
//
// Blur is a Gaussian with standard deviation equal to the op value in
// pixels. Identity ops are skipped.
func ApplyChain(img image.Image, chain filter.Chain) *image.NRGBA {
	out := imaging.Clone(img)
	if chain.IsIdentity() {
		return out
	}

	var pending []pixelOp
	flush := func() {
		if len(pending) == 0 {
			return
		}
		ops := pending
		pending = nil
		out = imaging.AdjustFunc(out, func(c color.NRGBA) color.NRGBA {
			r := float64(c.R) / 255
			g := float64(c.G) / 255
			b := float64(c.B) / 255
			a := float64(c.A) / 255
			for _, op := range ops {
				r, g, b, a = op(r, g, b, a)
			}
			return color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: to8(a)}
		})
	}

	for _, op := range chain {
		if op.IsIdentity() {
			continue
		}
		if op.Kind == filter.KindBlur {
			flush()
			out = imaging.Blur(out, op.Value)
			continue
		}
		if fn := pixelOpFor(op); fn != nil {
			pending = append(pending, fn)
		}
	}
	flush()

	return out
}

// pixelOp transforms one non-premultiplied pixel with channels in [0,1].
type pixelOp func(r, g, b, a float64) (float64, float64, float64, float64)

func pixelOpFor(op filter.Op) pixelOp {
	v := op.Value
	switch op.Kind {
	case filter.KindBrightness:
		return func(r, g, b, a float64) (float64, float64, float64, float64) {
			return clamp01(r * v), clamp01(g * v), clamp01(b * v), a
		}
	case filter.KindContrast:
		return func(r, g, b, a float64) (float64, float64, float64, float64) {
			return clamp01((r-0.5)*v + 0.5), clamp01((g-0.5)*v + 0.5), clamp01((b-0.5)*v + 0.5), a
		}
	case filter.KindGrayscale:
		return matrixOp(grayscaleMatrix(math.Min(v, 1)))
	case filter.KindInvert:
		return func(r, g, b, a float64) (float64, float64, float64, float64) {
			return r*(1-v) + (1-r)*v, g*(1-v) + (1-g)*v, b*(1-v) + (1-b)*v, a
		}
	case filter.KindOpacity:
		return func(r, g, b, a float64) (float64, float64, float64, float64) {
			return r, g, b, clamp01(a * v)
		}
	case filter.KindSaturate:
		return matrixOp(saturateMatrix(v))
	case filter.KindSepia:
		return matrixOp(sepiaMatrix(math.Min(v, 1)))
	case filter.KindHueRotate:
		return matrixOp(hueRotateMatrix(v))
	}
	return nil
}

type matrix3 [3][3]float64

func matrixOp(m matrix3) pixelOp {
	return func(r, g, b, a float64) (float64, float64, float64, float64) {
		return clamp01(m[0][0]*r + m[0][1]*g + m[0][2]*b),
			clamp01(m[1][0]*r + m[1][1]*g + m[1][2]*b),
			clamp01(m[2][0]*r + m[2][1]*g + m[2][2]*b),
			a
	}
}

func grayscaleMatrix(amount float64) matrix3 {
	k := 1 - amount
	return matrix3{
		{0.2126 + 0.7874*k, 0.7152 - 0.7152*k, 0.0722 - 0.0722*k},
		{0.2126 - 0.2126*k, 0.7152 + 0.2848*k, 0.0722 - 0.0722*k},
		{0.2126 - 0.2126*k, 0.7152 - 0.7152*k, 0.0722 + 0.9278*k},
	}
}

func saturateMatrix(s float64) matrix3 {
	return matrix3{
		{0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s},
	}
}

func sepiaMatrix(amount float64) matrix3 {
	k := 1 - amount
	return matrix3{
		{0.393 + 0.607*k, 0.769 - 0.769*k, 0.189 - 0.189*k},
		{0.349 - 0.349*k, 0.686 + 0.314*k, 0.168 - 0.168*k},
		{0.272 - 0.272*k, 0.534 - 0.534*k, 0.131 + 0.869*k},
	}
}

func hueRotateMatrix(degrees float64) matrix3 {
	sin, cos := math.Sincos(degrees * math.Pi / 180)
	return matrix3{
		{0.213 + 0.787*cos - 0.213*sin, 0.715 - 0.715*cos - 0.715*sin, 0.072 - 0.072*cos + 0.928*sin},
		{0.213 - 0.213*cos + 0.143*sin, 0.715 + 0.285*cos + 0.140*sin, 0.072 - 0.072*cos - 0.283*sin},
		{0.213 - 0.213*cos - 0.787*sin, 0.715 - 0.715*cos + 0.715*sin, 0.072 + 0.928*cos + 0.072*sin},
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}
