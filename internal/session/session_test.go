package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/ironsheep/image-adjust-mcp/internal/adjust"
	"github.com/ironsheep/image-adjust-mcp/internal/export"
	"github.com/ironsheep/image-adjust-mcp/internal/filter"
	"github.com/ironsheep/image-adjust-mcp/internal/handoff"
)

// fakeNavigator records navigation requests.
type fakeNavigator struct {
	mu         sync.Mutex
	redirects  []error
	finalized  []string
	finalizeFn func(slot string) error
}

func (n *fakeNavigator) RedirectToUpload(_ context.Context, reason error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, reason)
}

func (n *fakeNavigator) Finalize(_ context.Context, slot string) error {
	n.mu.Lock()
	n.finalized = append(n.finalized, slot)
	fn := n.finalizeFn
	n.mu.Unlock()
	if fn != nil {
		return fn(slot)
	}
	return nil
}

// blockingExporter waits for release before delegating to the real engine.
type blockingExporter struct {
	started chan struct{}
	release chan struct{}
	engine  *export.Engine
}

func newBlockingExporter() *blockingExporter {
	return &blockingExporter{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		engine:  export.NewEngine(),
	}
}

func (b *blockingExporter) Export(ctx context.Context, src []byte, chain filter.Chain) (*export.Result, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.engine.Export(ctx, src, chain)
}

// failingExporter always fails with err.
type failingExporter struct{ err error }

func (f failingExporter) Export(context.Context, []byte, filter.Chain) (*export.Result, error) {
	return nil, f.err
}

func sourcePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 90, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode source: %v", err)
	}
	return buf.Bytes()
}

func stagedStore(t *testing.T, raw []byte) *handoff.MemoryStore {
	t.Helper()
	store := handoff.NewMemoryStore()
	if raw != nil {
		img := handoff.NewStagedImage("photo.png", "image/png", raw)
		if err := store.Put(context.Background(), "pending/upload-1", img); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func startedSession(t *testing.T, store handoff.Store, exporter export.Exporter, nav Navigator) *Session {
	t.Helper()
	s := New(store, exporter, nav, Options{}, nil)
	if err := s.Start(context.Background(), true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestStart_EmptyStoreRedirects(t *testing.T) {
	nav := &fakeNavigator{}
	s := New(handoff.NewMemoryStore(), nil, nav, Options{}, nil)

	err := s.Start(context.Background(), true)
	var pre *PreconditionError
	if !errors.As(err, &pre) {
		t.Fatalf("err = %v, want *PreconditionError", err)
	}
	if !errors.Is(err, handoff.ErrNotFound) {
		t.Errorf("err should wrap handoff.ErrNotFound: %v", err)
	}
	if s.State() != Redirected {
		t.Errorf("state = %s, want redirected", s.State())
	}
	if len(nav.redirects) != 1 {
		t.Errorf("redirects = %d, want 1", len(nav.redirects))
	}
	if _, err := s.Adjust(adjust.Brightness, 2); !errors.Is(err, ErrNotEditing) {
		t.Errorf("Adjust after redirect: err = %v, want ErrNotEditing", err)
	}
	if _, err := s.Export(context.Background()); !errors.Is(err, ErrNotEditing) {
		t.Errorf("Export after redirect: err = %v, want ErrNotEditing", err)
	}
}

func TestStart_MissingUploadFlagRedirects(t *testing.T) {
	nav := &fakeNavigator{}
	s := New(stagedStore(t, sourcePNG(t, 10, 10)), nil, nav, Options{}, nil)

	var pre *PreconditionError
	if err := s.Start(context.Background(), false); !errors.As(err, &pre) {
		t.Fatalf("err = %v, want *PreconditionError", err)
	}
	if s.State() != Redirected {
		t.Errorf("state = %s, want redirected", s.State())
	}
}

func TestStart_MalformedRecordRedirects(t *testing.T) {
	store := handoff.NewMemoryStore()
	_ = store.Put(context.Background(), "pending/x", handoff.StagedImage{Name: "x", Data: "not a uri"})

	s := New(store, nil, nil, Options{}, nil)
	var pre *PreconditionError
	if err := s.Start(context.Background(), true); !errors.As(err, &pre) {
		t.Fatalf("err = %v, want *PreconditionError", err)
	}
}

func TestStart_Twice(t *testing.T) {
	s := startedSession(t, stagedStore(t, sourcePNG(t, 10, 10)), nil, nil)
	if err := s.Start(context.Background(), true); err == nil {
		t.Error("second Start should fail")
	}
}

func TestExport_CommitsNativeResolution(t *testing.T) {
	store := stagedStore(t, sourcePNG(t, 800, 600))
	nav := &fakeNavigator{}
	s := startedSession(t, store, nil, nav)

	if _, err := s.AdjustMany(map[adjust.Param]float64{adjust.Brightness: 1.5, adjust.Blur: 5}); err != nil {
		t.Fatal(err)
	}

	out, err := s.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if out.Width != 800 || out.Height != 600 {
		t.Errorf("outcome %dx%d, want 800x600", out.Width, out.Height)
	}
	if out.Slot == "pending/upload-1" || out.Slot != DefaultResultSlot {
		t.Errorf("result slot = %s", out.Slot)
	}
	if s.State() != Committed {
		t.Errorf("state = %s, want committed", s.State())
	}

	staged, err := store.Get(context.Background(), DefaultResultSlot)
	if err != nil {
		t.Fatalf("result not staged: %v", err)
	}
	if staged.Name != DefaultResultName || staged.MimeType() != "image/jpeg" {
		t.Errorf("staged = %s %s", staged.Name, staged.MimeType())
	}
	raw, _, err := staged.Decode()
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("staged result is not jpeg: %v", err)
	}
	if cfg.Width != 800 || cfg.Height != 600 {
		t.Errorf("staged result %dx%d, want 800x600", cfg.Width, cfg.Height)
	}

	// The source slot is untouched.
	if _, err := store.Get(context.Background(), "pending/upload-1"); err != nil {
		t.Errorf("source slot lost: %v", err)
	}
	if len(nav.finalized) != 1 || nav.finalized[0] != DefaultResultSlot {
		t.Errorf("finalized = %v", nav.finalized)
	}
}

func TestExport_IgnoresViewportScale(t *testing.T) {
	for _, delta := range []float64{-1000, 1000} {
		store := stagedStore(t, sourcePNG(t, 120, 80))
		s := startedSession(t, store, nil, nil)

		scale, _ := s.Zoom(delta)
		out, err := s.Export(context.Background())
		if err != nil {
			t.Fatalf("Export at scale %v: %v", scale, err)
		}
		if out.Width != 120 || out.Height != 80 {
			t.Errorf("scale %v: output %dx%d, want 120x80", scale, out.Width, out.Height)
		}
	}
}

func TestExport_UndecodableSource(t *testing.T) {
	store := stagedStore(t, []byte("these bytes are not an image"))
	s := startedSession(t, store, nil, nil)

	_, err := s.Export(context.Background())
	var decErr *export.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("err = %v, want *export.DecodeError", err)
	}
	if s.State() != Editing {
		t.Errorf("state = %s, want editing", s.State())
	}
	if store.Len() != 1 {
		t.Errorf("store has %d records, want only the source", store.Len())
	}
	if s.Status().LastError == "" {
		t.Error("LastError should be surfaced")
	}

	if _, err := s.Preview(context.Background()); !errors.As(err, &decErr) {
		t.Errorf("Preview err = %v, want *export.DecodeError", err)
	}
}

func TestExport_EncodeErrorReturnsToEditing(t *testing.T) {
	store := stagedStore(t, sourcePNG(t, 10, 10))
	s := startedSession(t, store, failingExporter{err: &export.EncodeError{Err: errors.New("disk full")}}, nil)

	_, err := s.Export(context.Background())
	var encErr *export.EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("err = %v, want *export.EncodeError", err)
	}
	if s.State() != Editing {
		t.Errorf("state = %s, want editing", s.State())
	}
	if store.Len() != 1 {
		t.Errorf("store has %d records after failed export", store.Len())
	}

	// The user can edit and retry manually.
	if _, err := s.Adjust(adjust.Contrast, 2); err != nil {
		t.Errorf("Adjust after failed export: %v", err)
	}
}

func TestExport_RejectsConcurrentExport(t *testing.T) {
	store := stagedStore(t, sourcePNG(t, 20, 20))
	blocker := newBlockingExporter()
	s := startedSession(t, store, blocker, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Export(context.Background())
		done <- err
	}()
	<-blocker.started

	if s.State() != Exporting {
		t.Errorf("state = %s, want exporting", s.State())
	}
	if _, err := s.Export(context.Background()); !errors.Is(err, ErrExportInProgress) {
		t.Errorf("second Export: err = %v, want ErrExportInProgress", err)
	}

	// Edits and previews stay live while the export is pending.
	if _, err := s.Adjust(adjust.Sepia, 1); err != nil {
		t.Errorf("Adjust during export: %v", err)
	}
	if _, err := s.Preview(context.Background()); err != nil {
		t.Errorf("Preview during export: %v", err)
	}

	close(blocker.release)
	if err := <-done; err != nil {
		t.Fatalf("first Export: %v", err)
	}
	if s.State() != Committed {
		t.Errorf("state = %s, want committed", s.State())
	}
}

func TestExport_SnapshotsAdjustments(t *testing.T) {
	store := stagedStore(t, sourcePNG(t, 20, 20))
	blocker := newBlockingExporter()
	s := startedSession(t, store, blocker, nil)
	_, _ = s.Adjust(adjust.Brightness, 2)

	done := make(chan *Outcome, 1)
	go func() {
		out, _ := s.Export(context.Background())
		done <- out
	}()
	<-blocker.started
	_, _ = s.Adjust(adjust.Brightness, 0.5)
	close(blocker.release)

	out := <-done
	if out == nil {
		t.Fatal("export failed")
	}
	want := filter.Compose(adjust.Defaults().With(adjust.Brightness, 2)).String()
	if out.Filter != want {
		t.Errorf("exported filter = %q, want %q", out.Filter, want)
	}
}

func TestClose_DiscardsPendingExport(t *testing.T) {
	store := stagedStore(t, sourcePNG(t, 20, 20))
	blocker := newBlockingExporter()
	s := New(store, blocker, nil, Options{}, nil)
	if err := s.Start(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Export(context.Background())
		done <- err
	}()
	<-blocker.started
	s.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Export err = %v, want ErrClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Export did not return after Close")
	}

	if _, err := store.Get(context.Background(), DefaultResultSlot); !errors.Is(err, handoff.ErrNotFound) {
		t.Errorf("result slot written after close: %v", err)
	}
	if s.State() != Closed {
		t.Errorf("state = %s, want closed", s.State())
	}
	s.Close() // idempotent
}

func TestExport_CanceledContextReturnsToEditing(t *testing.T) {
	store := stagedStore(t, sourcePNG(t, 20, 20))
	blocker := newBlockingExporter()
	s := startedSession(t, store, blocker, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Export(ctx)
		done <- err
	}()
	<-blocker.started
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if s.State() != Editing {
		t.Errorf("state = %s, want editing", s.State())
	}
	if store.Len() != 1 {
		t.Errorf("store has %d records", store.Len())
	}
}

func TestExport_FinalizeFailureKeepsCommit(t *testing.T) {
	store := stagedStore(t, sourcePNG(t, 10, 10))
	nav := &fakeNavigator{finalizeFn: func(string) error { return errors.New("finalize offline") }}
	s := startedSession(t, store, nil, nav)

	out, err := s.Export(context.Background())
	if err == nil {
		t.Fatal("expected finalize error")
	}
	if out == nil || s.State() != Committed {
		t.Errorf("outcome %v, state %s; want committed result", out, s.State())
	}
}

func TestExport_AfterCommitRejected(t *testing.T) {
	s := startedSession(t, stagedStore(t, sourcePNG(t, 10, 10)), nil, nil)
	if _, err := s.Export(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Export(context.Background()); !errors.Is(err, ErrNotEditing) {
		t.Errorf("second export after commit: err = %v, want ErrNotEditing", err)
	}
}

func TestResetIndependence(t *testing.T) {
	s := startedSession(t, stagedStore(t, sourcePNG(t, 10, 10)), nil, nil)

	_, _ = s.Adjust(adjust.Invert, 1)
	scale, _ := s.Zoom(500)

	set, _ := s.ResetAdjustments()
	if !set.IsDefault() {
		t.Errorf("ResetAdjustments: %+v", set)
	}
	if s.Scale() != scale {
		t.Errorf("ResetAdjustments changed scale: %v, want %v", s.Scale(), scale)
	}

	_, _ = s.Adjust(adjust.Invert, 1)
	if _, err := s.ResetZoom(); err != nil {
		t.Fatal(err)
	}
	if s.Adjustments().Invert != 1 {
		t.Error("ResetZoom changed adjustments")
	}
}

func TestPreview(t *testing.T) {
	s := startedSession(t, stagedStore(t, sourcePNG(t, 100, 60)), nil, nil)
	_, _ = s.Zoom(-1000)

	res, err := s.Preview(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Width != 50 || res.Height != 30 {
		t.Errorf("preview %dx%d, want 50x30", res.Width, res.Height)
	}
	if res.NativeWidth != 100 || res.NativeHeight != 60 {
		t.Errorf("native %dx%d, want 100x60", res.NativeWidth, res.NativeHeight)
	}
}

func TestStatus(t *testing.T) {
	s := startedSession(t, stagedStore(t, sourcePNG(t, 10, 10)), nil, nil)
	_, _ = s.Adjust(adjust.HueRotate, 45)

	st := s.Status()
	if st.State != Editing || st.SourceSlot != "pending/upload-1" || st.SourceName != "photo.png" {
		t.Errorf("status = %+v", st)
	}
	if st.Adjustments.HueRotate != 45 || st.ZoomPercent != 100 {
		t.Errorf("status = %+v", st)
	}
	if st.ID == "" || st.ID != s.ID() {
		t.Errorf("ID = %q", st.ID)
	}
}

func TestClosedSessionRejectsEverything(t *testing.T) {
	s := startedSession(t, stagedStore(t, sourcePNG(t, 10, 10)), nil, nil)
	s.Close()

	if _, err := s.Adjust(adjust.Blur, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Adjust: %v", err)
	}
	if _, err := s.Zoom(1); !errors.Is(err, ErrClosed) {
		t.Errorf("Zoom: %v", err)
	}
	if _, err := s.Preview(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Preview: %v", err)
	}
	if _, err := s.Export(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Export: %v", err)
	}
}

func TestSampleColor(t *testing.T) {
	s := startedSession(t, stagedStore(t, sourcePNG(t, 10, 10)), nil, nil)
	_, _ = s.Adjust(adjust.Invert, 1)

	// Source pixel (0,0) is (0,0,90).
	c, err := s.SampleColor(context.Background(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if c.RGB.R != 255 || c.RGB.G != 255 || c.RGB.B < 164 || c.RGB.B > 166 {
		t.Errorf("inverted sample = %+v", c.RGB)
	}

	if _, err := s.SampleColor(context.Background(), 10, 0); err == nil {
		t.Error("expected out-of-bounds error")
	}
}

// slowFindStore blocks Find until release is closed.
type slowFindStore struct {
	*handoff.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (s *slowFindStore) Find(ctx context.Context, prefix string) (string, handoff.StagedImage, error) {
	close(s.entered)
	<-s.release
	return s.MemoryStore.Find(ctx, prefix)
}

func TestStart_StoreReadDoesNotBlockSession(t *testing.T) {
	store := &slowFindStore{
		MemoryStore: stagedStore(t, sourcePNG(t, 10, 10)),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	s := New(store, nil, nil, Options{}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background(), true) }()
	<-store.entered

	unblocked := make(chan struct{})
	go func() {
		_ = s.Status()
		s.Close()
		close(unblocked)
	}()
	select {
	case <-unblocked:
	case <-time.After(2 * time.Second):
		t.Fatal("Status and Close blocked behind the store read")
	}

	close(store.release)
	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close: err = %v, want ErrClosed", err)
	}
	if s.State() != Closed {
		t.Errorf("state = %s, want closed", s.State())
	}
}

func TestStart_EmptyRecordRedirects(t *testing.T) {
	store := handoff.NewMemoryStore()
	_ = store.Put(context.Background(), "pending/x", handoff.NewStagedImage("x.png", "image/png", nil))

	s := New(store, nil, nil, Options{}, nil)
	var pre *PreconditionError
	if err := s.Start(context.Background(), true); !errors.As(err, &pre) {
		t.Fatalf("err = %v, want *PreconditionError", err)
	}
	if pre.Reason != "staged source is empty" {
		t.Errorf("reason = %q", pre.Reason)
	}
}

func TestStatus_ResultIsACopy(t *testing.T) {
	s := startedSession(t, stagedStore(t, sourcePNG(t, 10, 10)), nil, nil)
	if _, err := s.Export(context.Background()); err != nil {
		t.Fatal(err)
	}

	st := s.Status()
	if st.Result == nil || !st.Done {
		t.Fatalf("status = %+v, want committed result", st)
	}
	st.Result.Slot = "elsewhere"
	st.Result.Width = 1

	again := s.Status()
	if again.Result.Slot != DefaultResultSlot || again.Result.Width != 10 {
		t.Errorf("committed outcome changed through Status: %+v", again.Result)
	}
}

func TestStatus_Done(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *Session
		want  bool
	}{
		{"editing", func(t *testing.T) *Session {
			return startedSession(t, stagedStore(t, sourcePNG(t, 4, 4)), nil, nil)
		}, false},
		{"redirected", func(t *testing.T) *Session {
			s := New(handoff.NewMemoryStore(), nil, nil, Options{}, nil)
			_ = s.Start(context.Background(), true)
			return s
		}, true},
		{"closed", func(t *testing.T) *Session {
			s := startedSession(t, stagedStore(t, sourcePNG(t, 4, 4)), nil, nil)
			s.Close()
			return s
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.setup(t).Status().Done; got != tt.want {
				t.Errorf("Done = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdjust_UnknownParam(t *testing.T) {
	s := startedSession(t, stagedStore(t, sourcePNG(t, 4, 4)), nil, nil)
	if _, err := s.Adjust(adjust.Param("sharpness"), 1); err == nil {
		t.Error("Adjust accepted an unknown parameter")
	}
	if _, err := s.AdjustMany(map[adjust.Param]float64{adjust.Sepia: 1, "sharpness": 1}); err == nil {
		t.Error("AdjustMany accepted an unknown parameter")
	}
	if s.Adjustments().Sepia != 0 {
		t.Error("rejected AdjustMany applied a partial change")
	}
}
