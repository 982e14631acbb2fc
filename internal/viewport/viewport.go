// Package viewport tracks the zoom of the interactive preview.
//
// Zoom is driven by relative wheel or pinch deltas, never by absolute jumps,
// and is clamped on every update. The scale only affects how the preview is
// displayed; exported images are always rendered at native resolution.
package viewport

import (
	"math"
	"sync"
)

const (
	// MinScale and MaxScale bound the preview scale.
	MinScale = 0.5
	MaxScale = 2.0

	// DefaultScale is the scale of a freshly opened preview.
	DefaultScale = 1.0

	// DefaultSensitivity converts a raw input delta into a scale change.
	// Positive deltas zoom in; callers feeding browser wheel events pass
	// -deltaY or configure a negative sensitivity.
	DefaultSensitivity = 0.001
)

// ApplyDelta returns current + delta*sensitivity clamped to
// [MinScale, MaxScale]. A NaN input leaves the scale unchanged.
func ApplyDelta(current, delta, sensitivity float64) float64 {
	next := current + delta*sensitivity
	if math.IsNaN(next) {
		next = current
	}
	return clamp(next)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultScale
	}
	return math.Min(MaxScale, math.Max(MinScale, v))
}

// State is the zoom state of one preview. It is safe for concurrent use.
type State struct {
	mu          sync.Mutex
	scale       float64
	sensitivity float64
}

// New returns a State at DefaultScale. A zero sensitivity selects
// DefaultSensitivity.
func New(sensitivity float64) *State {
	if sensitivity == 0 || math.IsNaN(sensitivity) || math.IsInf(sensitivity, 0) {
		sensitivity = DefaultSensitivity
	}
	return &State{scale: DefaultScale, sensitivity: sensitivity}
}

// Scale returns the current scale.
func (s *State) Scale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

// Zoom applies a raw input delta and returns the new scale.
func (s *State) Zoom(delta float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scale = ApplyDelta(s.scale, delta, s.sensitivity)
	return s.scale
}

// Reset restores DefaultScale.
func (s *State) Reset() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scale = DefaultScale
	return s.scale
}

// Percent returns the scale as a whole percentage for display.
func (s *State) Percent() int {
	return int(math.Round(s.Scale() * 100))
}
