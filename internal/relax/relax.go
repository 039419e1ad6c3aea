// Package relax spreads overlapping layout points apart. Reducers routinely
// drop near-duplicate items onto the same spot; this pass nudges cluster
// members away from their centroid while keeping each point's radial
// position, so the overall shape survives.
package relax

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/daylanKifky/umap-cv/internal/vector"
)

// coincidentEps is the distance below which a point counts as sitting on
// its cluster centroid.
const coincidentEps = 1e-6

// Options tune one relaxation pass.
type Options struct {
	// MinDistance is the neighborhood radius: points closer than this are
	// considered overlapping and share a cluster.
	MinDistance float64

	// HorizontalFactor scales displacement on the horizontal axes.
	HorizontalFactor float64

	// VerticalFactor scales displacement on the Y axis of 3D layouts.
	VerticalFactor float64

	// VerticalDistribution blends between natural vertical jitter (0) and
	// perfectly even vertical fanning (1) for 3D clusters.
	VerticalDistribution float64

	// RandomFactor is the Gaussian noise mixed into each displacement
	// direction, breaking up colinear pushes.
	RandomFactor float64

	// Seed makes every run reproducible.
	Seed int64
}

// DefaultOptions returns the tuning used for portfolio layouts.
func DefaultOptions() Options {
	return Options{
		MinDistance:          2.5,
		HorizontalFactor:     0.2,
		VerticalFactor:       2,
		VerticalDistribution: 1,
		RandomFactor:         0.3,
		Seed:                 42,
	}
}

// Apply returns relaxed copies of the points. The input is never mutated,
// point count and order are preserved, and points whose cluster has a
// single member come back bit-identical.
func Apply(points [][]float64, opts Options) [][]float64 {
	out := make([][]float64, len(points))
	for i, p := range points {
		cp := make([]float64, len(p))
		copy(cp, p)
		out[i] = cp
	}
	if len(out) < 2 {
		return out
	}

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)))

	for _, members := range Clusters(points, opts.MinDistance) {
		if len(members) < 2 {
			continue
		}
		relaxCluster(out, members, opts, rng)
	}

	return out
}

// relaxCluster displaces the members of one cluster in place. The first
// pass fixes every member's direction and distance from the centroid before
// anything moves; the second pass applies axis-specific displacement on top
// of the preserved radial position.
func relaxCluster(points [][]float64, members []int, opts Options, rng *rand.Rand) {
	width := len(points[members[0]])

	cluster := make([][]float64, len(members))
	for i, idx := range members {
		cluster[i] = points[idx]
	}
	centroid := vector.Mean(cluster)

	dirs := make([][]float64, len(members))
	dists := make([]float64, len(members))
	for i, idx := range members {
		dir, dist := vector.Unit(vector.Sub(points[idx], centroid))
		if dist < coincidentEps {
			// A member on the centroid gets a random push direction but
			// keeps its (near-zero) radial distance.
			dir = randomUnit(rng, width)
		}
		if opts.RandomFactor > 0 {
			for d := range dir {
				dir[d] += rng.NormFloat64() * opts.RandomFactor
			}
			dir, _ = vector.Unit(dir)
		}
		dirs[i] = dir
		dists[i] = dist
	}

	// For 3D layouts the vertical axis can be fanned out evenly: spread
	// targets across the cluster's natural vertical range, shuffled so
	// stacking order does not follow member order.
	var targets []float64
	if width == 3 && opts.VerticalDistribution > 0 {
		natural := make([]float64, len(members))
		for i, dir := range dirs {
			natural[i] = dir[1] * opts.MinDistance * opts.VerticalFactor
		}
		targets = make([]float64, len(members))
		floats.Span(targets, floats.Min(natural), floats.Max(natural))
		rng.Shuffle(len(targets), func(i, j int) {
			targets[i], targets[j] = targets[j], targets[i]
		})
	}

	for i, idx := range members {
		dir, dist := dirs[i], dists[i]
		pt := points[idx]
		for d := 0; d < width; d++ {
			disp := dir[d] * opts.MinDistance * opts.HorizontalFactor
			if width == 3 && d == 1 {
				natural := dir[1] * opts.MinDistance * opts.VerticalFactor
				if opts.VerticalDistribution > 0 {
					disp = (1-opts.VerticalDistribution)*natural + opts.VerticalDistribution*targets[i]
				} else {
					disp = natural
				}
			}
			pt[d] = centroid[d] + dir[d]*dist + disp
		}
	}
}

// randomUnit draws an isotropic random direction.
func randomUnit(rng *rand.Rand, width int) []float64 {
	v := make([]float64, width)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	unit, norm := vector.Unit(v)
	if norm == 0 {
		unit[0] = 1
	}
	return unit
}

// Clusters groups point indices by chained connectivity: any two points
// within minDistance of each other share a cluster, directly or through
// intermediaries. Every point lands in exactly one cluster. Clusters come
// back ordered by smallest member index, members ascending.
func Clusters(points [][]float64, minDistance float64) [][]int {
	return components(points, minDistance)
}

func components(points [][]float64, eps float64) [][]int {
	n := len(points)
	visited := make([]bool, n)
	var out [][]int

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		visited[start] = true
		members := []int{start}

		queue := []int{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for j := 0; j < n; j++ {
				if visited[j] || !withinEps(points[cur], points[j], eps) {
					continue
				}
				visited[j] = true
				members = append(members, j)
				queue = append(queue, j)
			}
		}

		sort.Ints(members)
		out = append(out, members)
	}

	return out
}

func withinEps(a, b []float64, eps float64) bool {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum <= eps*eps
}
