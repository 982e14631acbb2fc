package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Decode decodes encoded image bytes into a pixel surface.
//
// The EXIF orientation tag of JPEG sources is honoured, so the returned
// image is upright the way a browser would display it.
//
// # Errors
//
//   - Returns error if raw is empty
//   - Returns error if raw is not a PNG, JPEG, GIF, WebP, BMP or TIFF image
func Decode(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("failed to decode image: no data")
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// ImageCache keeps decoded source images so the live preview does not decode
// the staged bytes on every adjustment.
//
// Entries are keyed by the handoff slot the bytes came from. ImageCache is
// safe for concurrent use by multiple goroutines.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load returns the cached image for key, decoding raw on a miss.
//
// A failed decode is not cached; the next Load retries.
func (c *ImageCache) Load(key string, raw []byte) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[key]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[key] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// ImageInfo contains metadata about an encoded source image.
type ImageInfo struct {
	// Width is the native image width in pixels.
	Width int `json:"width"`

	// Height is the native image height in pixels.
	Height int `json:"height"`

	// Format is the format name reported by the decoder: "png", "jpeg",
	// "gif", "webp", "bmp" or "tiff".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the color model carries transparency.
	HasAlpha bool `json:"has_alpha"`

	// SizeBytes is the length of the encoded data.
	SizeBytes int `json:"size_bytes"`
}

// Inspect reads the header of raw and reports its metadata without decoding
// the pixel data.
//
// Dimensions are the stored dimensions; for a rotated JPEG they may be
// swapped relative to the decoded, auto-oriented image.
func Inspect(raw []byte) (*ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch cfg.ColorModel {
	case color.RGBAModel, color.NRGBAModel:
		hasAlpha = true
	case color.RGBA64Model, color.NRGBA64Model:
		hasAlpha = true
		colorDepth = "16-bit"
	case color.Gray16Model:
		colorDepth = "16-bit"
	}

	return &ImageInfo{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Format:     format,
		ColorDepth: colorDepth,
		HasAlpha:   hasAlpha,
		SizeBytes:  len(raw),
	}, nil
}
