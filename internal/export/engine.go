// Package export rasterizes a source image through a filter chain at native
// resolution and encodes the result.
//
// The engine is a pure transform from (source bytes, chain) to encoded
// bytes. It never touches the handoff store and never navigates; committing
// the result is the caller's job.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ironsheep/image-adjust-mcp/internal/filter"
	"github.com/ironsheep/image-adjust-mcp/internal/imaging"
)

// DefaultQuality is the JPEG quality on a [0,1] scale.
const DefaultQuality = 0.95

// MimeType is the mime type of every exported image.
const MimeType = "image/jpeg"

// DecodeError reports source bytes that are not a decodable image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "export: decode source: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a failure to compress the rendered surface.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "export: encode result: " + e.Err.Error() }
func (e *EncodeError) Unwrap() error { return e.Err }

// Result is an encoded export.
type Result struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
	Elapsed  time.Duration
}

// Exporter renders and encodes a source image. *Engine implements it.
type Exporter interface {
	Export(ctx context.Context, src []byte, chain filter.Chain) (*Result, error)
}

// Engine is the default Exporter.
type Engine struct {
	quality float64
	logger  *slog.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithQuality sets the JPEG quality on a [0,1] scale.
func WithQuality(q float64) Option { return func(e *Engine) { e.quality = q } }

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// NewEngine creates an Engine with DefaultQuality.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{quality: DefaultQuality}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// Export decodes src, renders chain onto a surface of the decoded image's
// native width and height, and encodes the surface as JPEG.
//
// Decode failures return *DecodeError and encode failures *EncodeError. A
// canceled ctx is checked between stages and returned as is.
func (e *Engine) Export(ctx context.Context, src []byte, chain filter.Chain) (*Result, error) {
	start := time.Now()

	img, err := imaging.Decode(src)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rendered := imaging.ApplyChain(img, chain)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.EncodeJPEG(&buf, rendered, e.quality); err != nil {
		return nil, &EncodeError{Err: err}
	}
	if buf.Len() == 0 {
		return nil, &EncodeError{Err: fmt.Errorf("encoder produced no data")}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Data:     buf.Bytes(),
		MimeType: MimeType,
		Width:    rendered.Bounds().Dx(),
		Height:   rendered.Bounds().Dy(),
		Elapsed:  time.Since(start),
	}
	e.logger.Debug("export rendered",
		"width", res.Width, "height", res.Height,
		"bytes", len(res.Data), "filter", chain.String(), "elapsed", res.Elapsed)
	return res, nil
}
