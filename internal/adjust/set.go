package adjust

import "sync"

// Set is one complete snapshot of adjustment values.
type Set struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Grayscale  float64 `json:"grayscale"`
	Invert     float64 `json:"invert"`
	Opacity    float64 `json:"opacity"`
	Saturate   float64 `json:"saturate"`
	Sepia      float64 `json:"sepia"`
	Blur       float64 `json:"blur"`
	HueRotate  float64 `json:"hueRotate"`
}

// Defaults returns the identity adjustment set.
func Defaults() Set {
	return Set{
		Brightness: ranges[Brightness].Default,
		Contrast:   ranges[Contrast].Default,
		Grayscale:  ranges[Grayscale].Default,
		Invert:     ranges[Invert].Default,
		Opacity:    ranges[Opacity].Default,
		Saturate:   ranges[Saturate].Default,
		Sepia:      ranges[Sepia].Default,
		Blur:       ranges[Blur].Default,
		HueRotate:  ranges[HueRotate].Default,
	}
}

// Get returns the value of p, or 0 for an unknown parameter.
func (s Set) Get(p Param) float64 {
	if f := s.field(p); f != nil {
		return *f
	}
	return 0
}

// With returns a copy of s with p coerced to v. Unknown parameters leave the
// copy unchanged.
func (s Set) With(p Param, v float64) Set {
	r, ok := ranges[p]
	if !ok {
		return s
	}
	*s.field(p) = r.Coerce(v)
	return s
}

// IsDefault reports whether every value equals its default.
func (s Set) IsDefault() bool {
	return s == Defaults()
}

// field returns a pointer into s; s is a copy owned by the caller.
func (s *Set) field(p Param) *float64 {
	switch p {
	case Brightness:
		return &s.Brightness
	case Contrast:
		return &s.Contrast
	case Grayscale:
		return &s.Grayscale
	case Invert:
		return &s.Invert
	case Opacity:
		return &s.Opacity
	case Saturate:
		return &s.Saturate
	case Sepia:
		return &s.Sepia
	case Blur:
		return &s.Blur
	case HueRotate:
		return &s.HueRotate
	}
	return nil
}

// Model holds the current adjustment set of an editing session. It is safe
// for concurrent use; readers always see a whole Set.
type Model struct {
	mu  sync.RWMutex
	cur Set
}

// NewModel returns a Model holding the default set.
func NewModel() *Model {
	return &Model{cur: Defaults()}
}

// Get returns the current set.
func (m *Model) Get() Set {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Set coerces v into the range of p, stores a new set with only that field
// changed and returns it.
func (m *Model) Set(p Param, v float64) Set {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = m.cur.With(p, v)
	return m.cur
}

// Apply coerces and stores several values as a single change.
func (m *Model) Apply(values map[Param]float64) Set {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.cur
	for p, v := range values {
		next = next.With(p, v)
	}
	m.cur = next
	return m.cur
}

// Reset restores and returns the default set.
func (m *Model) Reset() Set {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = Defaults()
	return m.cur
}
