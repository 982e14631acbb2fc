package adjust

import (
	"math"
	"testing"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	want := map[Param]float64{
		Brightness: 1, Contrast: 1, Grayscale: 0, Invert: 0, Opacity: 1,
		Saturate: 1, Sepia: 0, Blur: 0, HueRotate: 0,
	}
	for p, v := range want {
		if got := d.Get(p); got != v {
			t.Errorf("%s: got %v, want %v", p, got, v)
		}
	}
	if !d.IsDefault() {
		t.Error("Defaults().IsDefault() = false")
	}
}

func TestSet_ClampsIntoRange(t *testing.T) {
	inputs := []float64{
		math.Inf(-1), -1e9, -1000, -1, -0.001, 0, 0.004, 0.5, 1, 1.5, 3.999,
		4, 4.5, 19.96, 20, 359.6, 360, 361, 1000, 1e9, math.Inf(1), math.NaN(),
	}

	for _, p := range Params {
		r, _ := RangeOf(p)
		for _, in := range inputs {
			got := Defaults().With(p, in).Get(p)
			if math.IsNaN(got) || got < r.Min || got > r.Max {
				t.Errorf("%s.With(%v) = %v, outside [%v,%v]", p, in, got, r.Min, r.Max)
			}
		}
	}
}

func TestRange_Coerce(t *testing.T) {
	tests := []struct {
		name  string
		param Param
		in    float64
		want  float64
	}{
		{"below min", Brightness, -3, 0},
		{"above max", Brightness, 9, 4},
		{"snap down", Brightness, 1.234, 1.23},
		{"snap up", Contrast, 1.236, 1.24},
		{"blur step", Blur, 5.04, 5},
		{"blur step up", Blur, 5.06, 5.1},
		{"hue step", HueRotate, 89.6, 90},
		{"hue above max", HueRotate, 720, 360},
		{"nan to default", Opacity, math.NaN(), 1},
		{"nan to default zero", Sepia, math.NaN(), 0},
		{"positive infinity", Saturate, math.Inf(1), 4},
		{"negative infinity", Grayscale, math.Inf(-1), 0},
		{"no float noise", Invert, 0.3, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := RangeOf(tt.param)
			if got := r.Coerce(tt.in); got != tt.want {
				t.Errorf("Coerce(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSet_WithChangesOnlyOneField(t *testing.T) {
	base := Defaults()
	next := base.With(Brightness, 1.5)

	if base.Brightness != 1 {
		t.Errorf("original set mutated: brightness %v", base.Brightness)
	}
	if next.Brightness != 1.5 {
		t.Errorf("brightness: got %v, want 1.5", next.Brightness)
	}
	next.Brightness = 1
	if next != base {
		t.Errorf("other fields changed: %+v", next)
	}
}

func TestSet_WithUnknownParam(t *testing.T) {
	base := Defaults()
	if got := base.With(Param("gamma"), 2); got != base {
		t.Errorf("unknown param changed the set: %+v", got)
	}
	if got := base.Get(Param("gamma")); got != 0 {
		t.Errorf("Get(unknown) = %v, want 0", got)
	}
}

func TestModel(t *testing.T) {
	m := NewModel()
	if !m.Get().IsDefault() {
		t.Fatal("new model is not at defaults")
	}

	s := m.Set(Blur, 5)
	if s.Blur != 5 || m.Get().Blur != 5 {
		t.Errorf("Set(blur, 5) = %v, stored %v", s.Blur, m.Get().Blur)
	}

	s = m.Apply(map[Param]float64{Brightness: 1.5, HueRotate: 400})
	if s.Brightness != 1.5 || s.HueRotate != 360 || s.Blur != 5 {
		t.Errorf("Apply: got %+v", s)
	}

	if s := m.Reset(); !s.IsDefault() {
		t.Errorf("Reset: got %+v", s)
	}
}

func TestParseParam(t *testing.T) {
	tests := []struct {
		in      string
		want    Param
		wantErr bool
	}{
		{"brightness", Brightness, false},
		{"Brightness", Brightness, false},
		{"hueRotate", HueRotate, false},
		{"hue-rotate", HueRotate, false},
		{" hue_rotate ", HueRotate, false},
		{"saturation", Saturate, false},
		{"gamma", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseParam(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseParam(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseParam(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
