// Package session drives one image editing session: it reads the staged
// source, holds the adjustment and viewport state, renders previews, and
// commits exactly one export to the handoff store.
//
// A session is created Uninitialized and started with Start. Start either
// moves to Editing or, when the upload step did not hand off an image, to
// Redirected. Export moves Editing to Exporting; on success the result is
// written under the result slot, the session becomes Committed and the
// downstream step is signalled. A failed export returns to Editing without
// writing anything. Only one export may be pending at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ironsheep/image-adjust-mcp/internal/adjust"
	"github.com/ironsheep/image-adjust-mcp/internal/export"
	"github.com/ironsheep/image-adjust-mcp/internal/filter"
	"github.com/ironsheep/image-adjust-mcp/internal/handoff"
	"github.com/ironsheep/image-adjust-mcp/internal/imaging"
	"github.com/ironsheep/image-adjust-mcp/internal/viewport"
)

// Navigator transfers control to the neighbouring pipeline steps.
type Navigator interface {
	// RedirectToUpload sends the user back to the upload step.
	RedirectToUpload(ctx context.Context, reason error)

	// Finalize hands the committed result slot to the finalize step. It is
	// called only after the result is durably stored.
	Finalize(ctx context.Context, slot string) error
}

// Options configures a Session.
type Options struct {
	// SourcePrefix selects the staged source slot.
	SourcePrefix string

	// ResultSlot is the well-known slot the export is written to.
	ResultSlot string

	// ResultName is the declared name of the exported image.
	ResultName string

	// Sensitivity converts zoom deltas to scale changes.
	Sensitivity float64
}

// Default slot layout.
const (
	DefaultSourcePrefix = "pending/"
	DefaultResultSlot   = "export/edited"
	DefaultResultName   = "edited-image.jpg"
)

// Session is one editing session over one staged source image. All methods
// are safe for concurrent use.
type Session struct {
	id       string
	opts     Options
	store    handoff.Store
	exporter export.Exporter
	nav      Navigator
	cache    *imaging.ImageCache
	logger   *slog.Logger

	adjustments *adjust.Model
	view        *viewport.State

	mu           sync.Mutex
	state        State
	sourceSlot   string
	sourceName   string
	sourceBytes  []byte
	cancelExport context.CancelFunc
	lastErr      error
	result       *Outcome
}

// New creates an Uninitialized session. A nil exporter selects
// export.NewEngine(); a nil logger discards output.
func New(store handoff.Store, exporter export.Exporter, nav Navigator, opts Options, logger *slog.Logger) *Session {
	if opts.SourcePrefix == "" {
		opts.SourcePrefix = DefaultSourcePrefix
	}
	if opts.ResultSlot == "" {
		opts.ResultSlot = DefaultResultSlot
	}
	if opts.ResultName == "" {
		opts.ResultName = DefaultResultName
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if exporter == nil {
		exporter = export.NewEngine(export.WithLogger(logger))
	}
	id := uuid.Must(uuid.NewV7()).String()
	return &Session{
		id:          id,
		opts:        opts,
		store:       store,
		exporter:    exporter,
		nav:         nav,
		cache:       imaging.NewImageCache(),
		logger:      logger.With("session", id),
		adjustments: adjust.NewModel(),
		view:        viewport.New(opts.Sensitivity),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start reads the staged source image. fromUpload is the navigation flag
// set by the upload step. When the flag is missing or nothing is staged the
// session moves to Redirected, the navigator is asked to redirect, and a
// *PreconditionError is returned.
func (s *Session) Start(ctx context.Context, fromUpload bool) error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st != Uninitialized {
		return fmt.Errorf("session: cannot start from state %s", st)
	}

	// s.mu is not held across the store read; Close may run meanwhile.
	slot, raw, name, err := s.readSource(ctx, fromUpload)

	s.mu.Lock()
	if s.state != Uninitialized {
		st := s.state
		s.mu.Unlock()
		if st == Closed {
			return ErrClosed
		}
		return fmt.Errorf("session: cannot start from state %s", st)
	}
	if err != nil {
		s.state = Redirected
		s.lastErr = err
		s.mu.Unlock()

		s.logger.Info("redirecting to upload", "error", err)
		if s.nav != nil {
			s.nav.RedirectToUpload(ctx, err)
		}
		return err
	}

	s.sourceSlot = slot
	s.sourceName = name
	s.sourceBytes = raw
	s.state = Editing
	s.mu.Unlock()

	s.logger.Info("session editing", "slot", slot, "name", name, "bytes", len(raw))
	return nil
}

func (s *Session) readSource(ctx context.Context, fromUpload bool) (slot string, raw []byte, name string, err error) {
	if !fromUpload {
		return "", nil, "", &PreconditionError{Reason: "not opened from the upload step"}
	}
	if s.store == nil {
		return "", nil, "", &PreconditionError{Reason: "no handoff store"}
	}

	slot, staged, err := s.store.Find(ctx, s.opts.SourcePrefix)
	if err != nil {
		if errors.Is(err, handoff.ErrNotFound) {
			return "", nil, "", &PreconditionError{Reason: "no staged source image", Err: err}
		}
		return "", nil, "", &PreconditionError{Reason: "handoff store unavailable", Err: err}
	}

	if staged.Empty() {
		return "", nil, "", &PreconditionError{Reason: "staged source is empty"}
	}
	raw, _, err = staged.Decode()
	if err != nil {
		return "", nil, "", &PreconditionError{Reason: "staged source is not image data", Err: err}
	}
	return slot, raw, staged.Name, nil
}

// Adjustments returns the current adjustment set.
func (s *Session) Adjustments() adjust.Set {
	return s.adjustments.Get()
}

// Adjust coerces value into the range of p and returns the new set.
func (s *Session) Adjust(p adjust.Param, value float64) (adjust.Set, error) {
	if err := s.requireEditable(); err != nil {
		return adjust.Set{}, err
	}
	if !p.Valid() {
		return adjust.Set{}, fmt.Errorf("session: unknown adjustment %q", p)
	}
	set := s.adjustments.Set(p, value)
	s.logger.Debug("adjusted", "param", p, "value", set.Get(p))
	return set, nil
}

// AdjustMany applies several values as one change.
func (s *Session) AdjustMany(values map[adjust.Param]float64) (adjust.Set, error) {
	if err := s.requireEditable(); err != nil {
		return adjust.Set{}, err
	}
	for p := range values {
		if !p.Valid() {
			return adjust.Set{}, fmt.Errorf("session: unknown adjustment %q", p)
		}
	}
	set := s.adjustments.Apply(values)
	s.logger.Debug("adjusted", "count", len(values))
	return set, nil
}

// ResetAdjustments restores the default set. The viewport is untouched.
func (s *Session) ResetAdjustments() (adjust.Set, error) {
	if err := s.requireEditable(); err != nil {
		return adjust.Set{}, err
	}
	return s.adjustments.Reset(), nil
}

// Zoom applies a raw zoom delta and returns the new preview scale.
func (s *Session) Zoom(delta float64) (float64, error) {
	if err := s.requireEditable(); err != nil {
		return 0, err
	}
	return s.view.Zoom(delta), nil
}

// ResetZoom restores the default preview scale. Adjustments are untouched.
func (s *Session) ResetZoom() (float64, error) {
	if err := s.requireEditable(); err != nil {
		return 0, err
	}
	return s.view.Reset(), nil
}

// Scale returns the current preview scale.
func (s *Session) Scale() float64 {
	return s.view.Scale()
}

// Chain composes the current adjustments.
func (s *Session) Chain() filter.Chain {
	return filter.Compose(s.adjustments.Get())
}

func (s *Session) requireEditable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editableLocked()
}

// editableLocked is requireEditable with s.mu held.
func (s *Session) editableLocked() error {
	switch {
	case s.state == Closed:
		return ErrClosed
	case s.state.Terminal():
		return fmt.Errorf("%w: session finished as %s", ErrNotEditing, s.state)
	case !s.state.editable():
		return fmt.Errorf("%w: state %s", ErrNotEditing, s.state)
	}
	return nil
}

// Preview renders the current adjustments at the current viewport scale.
// Previews stay available while an export is pending. Undecodable source
// bytes return *export.DecodeError.
func (s *Session) Preview(ctx context.Context) (*imaging.PreviewResult, error) {
	img, err := s.source(ctx)
	if err != nil {
		return nil, err
	}
	return imaging.Preview(img, s.Chain(), s.view.Scale())
}

// SampleColor returns the adjusted color at native coordinates (x, y).
func (s *Session) SampleColor(ctx context.Context, x, y int) (*imaging.ColorResult, error) {
	img, err := s.source(ctx)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(imaging.ApplyChain(img, s.Chain()), x, y)
}

// source returns the cached decoded source image.
func (s *Session) source(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	slot, raw := s.sourceSlot, s.sourceBytes
	s.mu.Unlock()

	img, err := s.cache.Load(slot, raw)
	if err != nil {
		return nil, &export.DecodeError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// Outcome describes a committed export.
type Outcome struct {
	Slot     string `json:"slot"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bytes    int    `json:"bytes"`
	Filter   string `json:"filter"`
}

// Export renders the current adjustments at native resolution, writes the
// encoded result under the result slot and signals the finalize step.
//
// The adjustments are snapshotted when Export is called; later edits do not
// affect the pending export. A second Export while one is pending returns
// ErrExportInProgress. On *export.DecodeError or *export.EncodeError the
// session returns to Editing and the store is left untouched. If the session
// is closed while the export is pending the result is discarded and
// ErrClosed is returned.
func (s *Session) Export(ctx context.Context) (*Outcome, error) {
	s.mu.Lock()
	switch {
	case s.state == Closed:
		s.mu.Unlock()
		return nil, ErrClosed
	case s.state == Exporting:
		s.mu.Unlock()
		return nil, ErrExportInProgress
	case s.state != Editing:
		st := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: state %s", ErrNotEditing, st)
	}
	exportCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.state = Exporting
	s.cancelExport = cancel
	src := s.sourceBytes
	s.mu.Unlock()

	chain := s.Chain()
	s.logger.Info("export started", "filter", chain.String())

	res, err := s.exporter.Export(exportCtx, src, chain)

	outcome, err := s.commit(ctx, exportCtx, chain, res, err)
	if err != nil {
		return nil, err
	}

	if s.nav != nil {
		if err := s.nav.Finalize(ctx, outcome.Slot); err != nil {
			s.logger.Error("finalize handoff failed", "error", err)
			return outcome, fmt.Errorf("session: finalize: %w", err)
		}
	}
	return outcome, nil
}

// commit settles a finished export under the session lock: it discards the
// result if the session was closed, returns to Editing on failure, and
// otherwise writes the result slot and moves to Committed.
func (s *Session) commit(ctx, exportCtx context.Context, chain filter.Chain, res *export.Result, err error) (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelExport = nil

	if s.state == Closed {
		s.logger.Info("export discarded, session closed")
		return nil, ErrClosed
	}
	if err == nil {
		err = exportCtx.Err()
	}
	if err != nil {
		s.state = Editing
		s.lastErr = err
		s.logger.Warn("export failed", "error", err)
		return nil, err
	}

	staged := handoff.NewStagedImage(s.opts.ResultName, res.MimeType, res.Data)
	if err := s.store.Put(ctx, s.opts.ResultSlot, staged); err != nil {
		s.state = Editing
		s.lastErr = err
		s.logger.Warn("export not committed", "error", err)
		return nil, fmt.Errorf("session: commit export: %w", err)
	}

	s.state = Committed
	s.lastErr = nil
	s.result = &Outcome{
		Slot:     s.opts.ResultSlot,
		Name:     s.opts.ResultName,
		MimeType: res.MimeType,
		Width:    res.Width,
		Height:   res.Height,
		Bytes:    len(res.Data),
		Filter:   chain.String(),
	}
	s.logger.Info("export committed",
		"slot", s.opts.ResultSlot, "width", res.Width, "height", res.Height, "bytes", len(res.Data))
	out := *s.result
	return &out, nil
}

// Close tears the session down. A pending export is canceled and its result
// is never written. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	if s.cancelExport != nil {
		s.cancelExport()
	}
	s.state = Closed
	s.cache.Clear()
	s.sourceBytes = nil
	s.logger.Info("session closed")
}

// Status is a snapshot of the session for display.
type Status struct {
	ID          string     `json:"id"`
	State       State      `json:"state"`
	SourceSlot  string     `json:"source_slot,omitempty"`
	SourceName  string     `json:"source_name,omitempty"`
	Adjustments adjust.Set `json:"adjustments"`
	Filter      string     `json:"filter"`
	Scale       float64    `json:"scale"`
	ZoomPercent int        `json:"zoom_percent"`
	Done        bool       `json:"done"`
	LastError   string     `json:"last_error,omitempty"`
	Result      *Outcome   `json:"result,omitempty"`
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		ID:         s.id,
		State:      s.state,
		SourceSlot: s.sourceSlot,
		SourceName: s.sourceName,
		Done:       s.state.Terminal(),
	}
	if s.result != nil {
		out := *s.result
		st.Result = &out
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	s.mu.Unlock()

	st.Adjustments = s.adjustments.Get()
	st.Filter = filter.Compose(st.Adjustments).String()
	st.Scale = s.view.Scale()
	st.ZoomPercent = s.view.Percent()
	return st
}
