// Package arc generates the curved connector geometry between two layout
// points, plus the tangent frame a renderer needs to orient the ribbon.
package arc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/daylanKifky/umap-cv/internal/vector"
)

// Strategy names accepted in configuration.
const (
	StrategySubdivision = "subdivision"
	StrategyCatmullRom  = "catmullrom"
)

// DefaultSteps is the refinement depth for arc generation.
const DefaultSteps = 3

// Strategy generates the polyline vertices of one link arc.
type Strategy interface {
	// Name returns the configuration name of the strategy.
	Name() string

	// Connect returns the arc vertices from a to b. The first vertex equals
	// a and the last equals b; steps controls the refinement depth.
	Connect(a, b []float64, steps int) [][]float64
}

// ForName returns the strategy for a configuration name.
func ForName(name string) (Strategy, error) {
	switch name {
	case StrategySubdivision:
		return Subdivision{}, nil
	case StrategyCatmullRom:
		return CatmullRom{}, nil
	default:
		return nil, fmt.Errorf("unknown arc strategy %q", name)
	}
}

// Subdivision bends the chord toward or away from the origin and then
// rounds it by corner cutting: every pass keeps the endpoints and replaces
// each segment with points at its quarter marks, doubling the vertex count.
type Subdivision struct{}

// Name implements Strategy.
func (Subdivision) Name() string {
	return StrategySubdivision
}

// Connect implements Strategy. steps passes over the initial three-point
// polyline produce 3*2^steps vertices.
func (Subdivision) Connect(a, b []float64, steps int) [][]float64 {
	// Endpoints pointing the same way from the origin bend further out
	// than unrelated ones; opposite directions clamp to the base deform.
	proximity := 0.0
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na > 0 && nb > 0 {
		proximity = math.Max(floats.Dot(a, b), 0) / (na * nb)
	}
	deform := 0.4 + 0.35*proximity
	bend := vector.Scale(vector.Add(a, b), deform/2)

	points := [][]float64{clone(a), bend, clone(b)}
	for s := 0; s < steps; s++ {
		next := make([][]float64, 0, 2*len(points))
		next = append(next, points[0])
		for i := 0; i < len(points)-1; i++ {
			next = append(next, vector.Lerp(points[i], points[i+1], 0.25))
			next = append(next, vector.Lerp(points[i], points[i+1], 0.75))
		}
		next = append(next, points[len(points)-1])
		points = next
	}

	return points
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
