// Package imaging rasterizes filter chains onto decoded images.
//
// This package owns everything that touches pixels: decoding staged bytes
// (PNG, JPEG, GIF, WebP, BMP, TIFF), caching decoded sources, applying a
// filter.Chain, scaling previews, summarizing tone, and encoding results.
// All functions work with standard Go image.Image types; rendered images are
// *image.NRGBA anchored at (0,0).
//
// # Resolution
//
// ApplyChain always returns an image with the source's native width and
// height. Viewport scaling is applied afterwards by Preview and never feeds
// back into rendering, so a preview at any zoom shows the same pixels an
// export produces.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Rendering functions are
// stateless and never modify their input image.
//
// # Color Representation
//
// Colors are returned in multiple formats:
//   - Hex: 6-character format "#RRGGBB" (alpha excluded)
//   - RGB: 8-bit components (0-255)
//   - HSL: Hue (0-360), Saturation (0-100), Lightness (0-100)
//
// # Error Handling
//
// Functions return errors for:
//   - Empty or undecodable image data
//   - Coordinates outside image bounds
//   - Encoding failures
package imaging
