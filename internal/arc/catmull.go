package arc

import "github.com/daylanKifky/umap-cv/internal/vector"

// CatmullRom interpolates a spline through four controls: the endpoints and
// their halfway-to-origin shadows, which pulls the middle of the arc toward
// the scene center.
type CatmullRom struct{}

// Name implements Strategy.
func (CatmullRom) Name() string {
	return StrategyCatmullRom
}

// Connect implements Strategy. The three spans between consecutive controls
// are sampled at 2^steps points each, giving 3*2^steps+1 vertices.
func (CatmullRom) Connect(a, b []float64, steps int) [][]float64 {
	controls := [][]float64{
		clone(a),
		vector.Scale(a, 0.5),
		vector.Scale(b, 0.5),
		clone(b),
	}

	perSegment := 1 << steps
	out := make([][]float64, 0, 3*perSegment+1)

	for seg := 0; seg < 3; seg++ {
		p1 := controls[seg]
		p2 := controls[seg+1]

		// Boundary segments extrapolate the missing outer control.
		var p0, p3 []float64
		if seg > 0 {
			p0 = controls[seg-1]
		} else {
			p0 = vector.Sub(vector.Scale(controls[0], 2), controls[1])
		}
		if seg+2 < len(controls) {
			p3 = controls[seg+2]
		} else {
			p3 = vector.Sub(vector.Scale(controls[3], 2), controls[2])
		}

		// The last sample of each span is the first of the next, so every
		// span drops it; the final endpoint is appended once at the end.
		for i := 0; i < perSegment; i++ {
			t := float64(i) / float64(perSegment)
			out = append(out, catmullPoint(p0, p1, p2, p3, t))
		}
	}

	return append(out, controls[3])
}

// catmullPoint evaluates the uniform Catmull-Rom basis at t in [0,1).
func catmullPoint(p0, p1, p2, p3 []float64, t float64) []float64 {
	t2 := t * t
	t3 := t2 * t

	q1 := -t3 + 2*t2 - t
	q2 := 3*t3 - 5*t2 + 2
	q3 := -3*t3 + 4*t2 + t
	q4 := t3 - t2

	out := make([]float64, len(p1))
	for d := range out {
		out[d] = 0.5 * (q1*p0[d] + q2*p1[d] + q3*p2[d] + q4*p3[d])
	}
	return out
}
