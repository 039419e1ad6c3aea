package arc

import (
	"math"

	"github.com/daylanKifky/umap-cv/internal/vector"
)

// Tangent returns a unit vector orthogonal to the a-to-b direction, used by
// renderers to orient the arc ribbon in 3D. Degenerate geometry still gets
// a deterministic frame: coincident endpoints map to the x axis, and a
// chord whose midpoint lines up with its direction falls back to a fixed
// perpendicular.
func Tangent(a, b []float64) []float64 {
	dir, norm := vector.Unit(vector.Sub(b, a))
	if norm == 0 {
		return []float64{1, 0, 0}
	}

	mid := vector.Add(a, vector.Scale(dir, 0.5))
	tangent, tnorm := vector.Unit(vector.Cross(dir, mid))
	if tnorm < 1e-9 {
		return orthogonal(dir)
	}
	return tangent
}

// orthogonal picks a perpendicular to dir by crossing with the coordinate
// axis dir leans on least.
func orthogonal(dir []float64) []float64 {
	axis := []float64{1, 0, 0}
	if math.Abs(dir[0]) >= math.Abs(dir[1]) && math.Abs(dir[0]) >= math.Abs(dir[2]) {
		axis = []float64{0, 1, 0}
	}
	out, _ := vector.Unit(vector.Cross(dir, axis))
	return out
}
