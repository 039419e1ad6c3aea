package arc

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func near(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestForName(t *testing.T) {
	s, err := ForName("subdivision")
	if err != nil {
		t.Fatalf("ForName(subdivision): %v", err)
	}
	if s.Name() != StrategySubdivision {
		t.Errorf("Name = %q", s.Name())
	}

	s, err = ForName("catmullrom")
	if err != nil {
		t.Fatalf("ForName(catmullrom): %v", err)
	}
	if s.Name() != StrategyCatmullRom {
		t.Errorf("Name = %q", s.Name())
	}

	if _, err := ForName("bezier"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestSubdivisionPoints_Count(t *testing.T) {
	a := []float64{1, 0, 0}
	b := []float64{0, 1, 0}

	// Each pass doubles the vertex count of the initial 3-point polyline.
	for steps, want := range map[int]int{1: 6, 2: 12, 3: 24} {
		got := Subdivision{}.Connect(a, b, steps)
		if len(got) != want {
			t.Errorf("steps=%d: %d vertices, want %d", steps, len(got), want)
		}
	}
}

func TestSubdivisionPoints_EndpointsExact(t *testing.T) {
	a := []float64{1.5, -2, 0.25}
	b := []float64{-4, 8, 3}

	got := Subdivision{}.Connect(a, b, 3)
	if !near(got[0], a, 0) {
		t.Errorf("first vertex = %v, want %v", got[0], a)
	}
	if !near(got[len(got)-1], b, 0) {
		t.Errorf("last vertex = %v, want %v", got[len(got)-1], b)
	}
}

func TestSubdivisionPoints_DoesNotAliasInputs(t *testing.T) {
	a := []float64{1, 0, 0}
	b := []float64{0, 1, 0}

	got := Subdivision{}.Connect(a, b, 1)
	got[0][0] = 99
	got[len(got)-1][1] = 99
	if a[0] == 99 || b[1] == 99 {
		t.Error("arc vertices alias the input slices")
	}
}

func TestSubdivisionBend_Proximity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want []float64
	}{
		{
			// Same ray from origin: proximity 1, deform 0.75.
			name: "aligned",
			a:    []float64{2, 0, 0},
			b:    []float64{4, 0, 0},
			want: []float64{2.25, 0, 0},
		},
		{
			// Orthogonal: proximity 0, base deform 0.4.
			name: "orthogonal",
			a:    []float64{1, 0, 0},
			b:    []float64{0, 1, 0},
			want: []float64{0.2, 0.2, 0},
		},
		{
			// Opposite directions clamp the dot product at zero.
			name: "opposite",
			a:    []float64{1, 0, 0},
			b:    []float64{-1, 0, 0},
			want: []float64{0, 0, 0},
		},
		{
			// An endpoint at the origin reads as proximity 0.
			name: "origin endpoint",
			a:    []float64{0, 0, 0},
			b:    []float64{2, 0, 0},
			want: []float64{0.4, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// With zero passes the middle vertex is the bend itself.
			got := Subdivision{}.Connect(tt.a, tt.b, 0)
			if len(got) != 3 {
				t.Fatalf("got %d vertices, want 3", len(got))
			}
			if !near(got[1], tt.want, 1e-12) {
				t.Errorf("bend = %v, want %v", got[1], tt.want)
			}
		})
	}
}

func TestSubdivisionPoints_NoJumps(t *testing.T) {
	a := []float64{3, 1, -2}
	b := []float64{-1, 4, 2}

	got := Subdivision{}.Connect(a, b, 3)
	chord := floats.Distance(a, b, 2)
	for i := 1; i < len(got); i++ {
		if d := floats.Distance(got[i-1], got[i], 2); d > chord {
			t.Errorf("segment %d longer than the chord: %v", i, d)
		}
	}
}

func TestCatmullRomPoints_Count(t *testing.T) {
	a := []float64{1, 0, 0}
	b := []float64{0, 1, 0}

	for steps, want := range map[int]int{1: 7, 2: 13, 3: 25} {
		got := CatmullRom{}.Connect(a, b, steps)
		if len(got) != want {
			t.Errorf("steps=%d: %d vertices, want %d", steps, len(got), want)
		}
	}
}

func TestCatmullRomPoints_EndpointsExact(t *testing.T) {
	a := []float64{5, -1, 2}
	b := []float64{-3, 2, 8}

	got := CatmullRom{}.Connect(a, b, 3)
	if !near(got[0], a, 1e-12) {
		t.Errorf("first vertex = %v, want %v", got[0], a)
	}
	if !near(got[len(got)-1], b, 1e-12) {
		t.Errorf("last vertex = %v, want %v", got[len(got)-1], b)
	}
}

func TestCatmullRomPoints_PassesThroughControls(t *testing.T) {
	a := []float64{4, 0, 0}
	b := []float64{0, 4, 0}

	// The spline interpolates its interior controls A/2 and B/2 at the
	// span boundaries.
	got := CatmullRom{}.Connect(a, b, 3)
	perSegment := 8
	if !near(got[perSegment], []float64{2, 0, 0}, 1e-12) {
		t.Errorf("vertex %d = %v, want A/2", perSegment, got[perSegment])
	}
	if !near(got[2*perSegment], []float64{0, 2, 0}, 1e-12) {
		t.Errorf("vertex %d = %v, want B/2", 2*perSegment, got[2*perSegment])
	}
}

func TestTangent_Orthogonal(t *testing.T) {
	a := []float64{0, 1, 0}
	b := []float64{1, 1, 0}

	got := Tangent(a, b)
	if !near(got, []float64{0, 0, 1}, 1e-12) {
		t.Errorf("Tangent = %v, want [0 0 1]", got)
	}

	dir := []float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	if dot := floats.Dot(got, dir); math.Abs(dot) > 1e-12 {
		t.Errorf("tangent not orthogonal to chord: dot = %v", dot)
	}
	if norm := floats.Norm(got, 2); math.Abs(norm-1) > 1e-12 {
		t.Errorf("tangent norm = %v, want 1", norm)
	}
}

func TestTangent_DegenerateChordThroughOrigin(t *testing.T) {
	// Midpoint is parallel to the direction, so the cross product
	// vanishes and the fixed perpendicular kicks in.
	a := []float64{0, 0, 0}
	b := []float64{1, 0, 0}

	got := Tangent(a, b)
	if !near(got, []float64{0, 0, 1}, 1e-12) {
		t.Errorf("Tangent = %v, want [0 0 1]", got)
	}
}

func TestTangent_CoincidentEndpoints(t *testing.T) {
	p := []float64{2, 3, 4}
	got := Tangent(p, p)
	if !near(got, []float64{1, 0, 0}, 0) {
		t.Errorf("Tangent = %v, want [1 0 0]", got)
	}
}

func TestTangent_Deterministic(t *testing.T) {
	a := []float64{0.5, 2, -1}
	b := []float64{3, -2, 0.25}

	first := Tangent(a, b)
	second := Tangent(a, b)
	if !near(first, second, 0) {
		t.Errorf("Tangent not deterministic: %v vs %v", first, second)
	}
}
