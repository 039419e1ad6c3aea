// Package vector holds the shared embedding-vector math: weighted field
// combination and the small geometric operations the layout stages share.
package vector

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ErrNoPositiveWeight is returned when a combination is requested but every
// configured field weight is zero or negative.
var ErrNoPositiveWeight = errors.New("no field has positive weight")

// Set is one embedding matrix: one row per article, in article order. A nil
// row means the article had no content for the field.
type Set [][]float64

// Width returns the dimensionality of the first non-nil row, or 0 when the
// set carries no vectors at all.
func (s Set) Width() int {
	for _, row := range s {
		if row != nil {
			return len(row)
		}
	}
	return 0
}

// DimensionError reports a field whose vectors do not line up with the rest
// of the batch.
type DimensionError struct {
	Field string
	Axis  string
	Want  int
	Got   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("field %q has %d %s, want %d", e.Field, e.Got, e.Axis, e.Want)
}

// Combine merges per-field embedding sets into one weighted average per
// article: combined[i] = Σ weight[f]·vec[f][i] / Σ weight[f]. A nil row
// contributes nothing but its field weight stays in the denominator, so an
// article missing a field is pulled toward the origin instead of being
// renormalized over the fields it does have.
func Combine(fields map[string]Set, weights map[string]float64, items int) (Set, error) {
	names := make([]string, 0, len(weights))
	total := 0.0
	for name, w := range weights {
		if w <= 0 {
			continue
		}
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("no vectors for weighted field %q", name)
		}
		names = append(names, name)
		total += w
	}
	if total <= 0 {
		return nil, ErrNoPositiveWeight
	}
	sort.Strings(names)

	dim := 0
	for _, name := range names {
		set := fields[name]
		if len(set) != items {
			return nil, &DimensionError{Field: name, Axis: "rows", Want: items, Got: len(set)}
		}
		for _, row := range set {
			if row == nil {
				continue
			}
			if dim == 0 {
				dim = len(row)
			}
			if len(row) != dim {
				return nil, &DimensionError{Field: name, Axis: "dimensions", Want: dim, Got: len(row)}
			}
		}
	}
	if dim == 0 {
		return nil, errors.New("all weighted fields are empty")
	}

	combined := make(Set, items)
	for i := range combined {
		row := make([]float64, dim)
		for _, name := range names {
			if src := fields[name][i]; src != nil {
				floats.AddScaled(row, weights[name], src)
			}
		}
		floats.Scale(1/total, row)
		combined[i] = row
	}

	return combined, nil
}

// Cosine returns the cosine similarity of two vectors, or 0 when the lengths
// differ or either vector has zero magnitude.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// Unit returns a unit-length copy of v along with v's original magnitude.
// A zero vector comes back as a zero copy with magnitude 0; callers decide
// what "too small" means for their stage.
func Unit(v []float64) ([]float64, float64) {
	out := make([]float64, len(v))
	norm := floats.Norm(v, 2)
	if norm == 0 {
		return out, 0
	}
	floats.ScaleTo(out, 1/norm, v)
	return out, norm
}

// Sub returns a-b as a new slice.
func Sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	floats.SubTo(out, a, b)
	return out
}

// Add returns a+b as a new slice.
func Add(a, b []float64) []float64 {
	out := make([]float64, len(a))
	floats.AddTo(out, a, b)
	return out
}

// Scale returns v·s as a new slice.
func Scale(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	floats.ScaleTo(out, s, v)
	return out
}

// Lerp returns the point a + (b-a)·t.
func Lerp(a, b []float64, t float64) []float64 {
	out := make([]float64, len(a))
	for i := range out {
		out[i] = a[i] + (b[i]-a[i])*t
	}
	return out
}

// Cross returns the 3D cross product a×b. Both inputs must have exactly
// three components.
func Cross(a, b []float64) []float64 {
	if len(a) != 3 || len(b) != 3 {
		panic(fmt.Sprintf("vector: cross product needs 3D inputs, got %d and %d", len(a), len(b)))
	}
	return []float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Mean returns the centroid of the given points. All points must share the
// width of the first one.
func Mean(points [][]float64) []float64 {
	if len(points) == 0 {
		return nil
	}
	out := make([]float64, len(points[0]))
	for _, p := range points {
		floats.Add(out, p)
	}
	floats.Scale(1/float64(len(points)), out)
	return out
}
