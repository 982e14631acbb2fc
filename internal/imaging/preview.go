package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-adjust-mcp/internal/filter"
)

// PreviewResult contains a rendered preview image.
type PreviewResult struct {
	// Width and Height are the displayed (scaled) dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// NativeWidth and NativeHeight are the source dimensions.
	NativeWidth  int `json:"native_width"`
	NativeHeight int `json:"native_height"`

	// Scale is the viewport scale the preview was rendered at.
	Scale float64 `json:"scale"`

	// Filter is the CSS description of the applied chain.
	Filter string `json:"filter"`

	ImageBase64 string   `json:"image_base64"`
	MimeType    string   `json:"mime_type"`
	Summary     *Summary `json:"summary"`
}

// Preview renders src through chain at native resolution, then scales the
// result for display.
//
// Filtering happens before scaling so the preview shows exactly the pixels
// an export of the same chain would produce, only resized. Scale only
// affects the displayed size; values <= 0 are treated as 1.
func Preview(src image.Image, chain filter.Chain, scale float64) (*PreviewResult, error) {
	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}

	rendered := ApplyChain(src, chain)
	nw, nh := rendered.Bounds().Dx(), rendered.Bounds().Dy()

	display := image.Image(rendered)
	if scale != 1 {
		w := max(1, int(math.Round(float64(nw)*scale)))
		h := max(1, int(math.Round(float64(nh)*scale)))
		display = imaging.Resize(rendered, w, h, imaging.Linear)
	}

	var buf bytes.Buffer
	if err := EncodePNG(&buf, display); err != nil {
		return nil, err
	}

	return &PreviewResult{
		Width:        display.Bounds().Dx(),
		Height:       display.Bounds().Dy(),
		NativeWidth:  nw,
		NativeHeight: nh,
		Scale:        scale,
		Filter:       chain.String(),
		ImageBase64:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:     "image/png",
		Summary:      Summarize(rendered),
	}, nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// EncodeJPEG writes img as JPEG. Quality is on a [0,1] scale and maps to the
// encoder's 1-100 range; out-of-range values are clamped.
//
// JPEG has no alpha channel: transparent pixels are composited onto black,
// as a browser canvas does when exporting to JPEG.
func EncodeJPEG(w io.Writer, img image.Image, quality float64) error {
	q := int(math.Round(quality * 100))
	q = min(100, max(1, q))
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return nil
}
