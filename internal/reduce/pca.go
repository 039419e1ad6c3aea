package reduce

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCA projects onto the leading principal components, computed with a thin
// SVD of the centered batch. It is the only reducer that runs in-process.
type PCA struct{}

// Method implements Reducer.
func (PCA) Method() string {
	return MethodPCA
}

// Reduce implements Reducer. PCA is deterministic, so params are ignored.
func (PCA) Reduce(_ context.Context, vectors [][]float64, dim int, _ Params) ([][]float64, error) {
	n := len(vectors)
	if n == 0 {
		return nil, errors.New("no vectors")
	}
	width := len(vectors[0])
	if dim > width || dim > n {
		return nil, fmt.Errorf("cannot extract %d components from %d vectors of width %d", dim, n, width)
	}

	data := mat.NewDense(n, width, nil)
	for i, v := range vectors {
		if len(v) != width {
			return nil, fmt.Errorf("vector %d has width %d, want %d", i, len(v), width)
		}
		data.SetRow(i, v)
	}

	col := make([]float64, n)
	for j := 0; j < width; j++ {
		mat.Col(col, j, data)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			data.Set(i, j, col[i]-mean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(data, mat.SVDThin); !ok {
		return nil, errors.New("svd did not converge")
	}

	// Columns of V are the right singular vectors; the first dim of them
	// span the principal subspace.
	var v mat.Dense
	svd.VTo(&v)

	var projected mat.Dense
	projected.Mul(data, v.Slice(0, width, 0, dim))

	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, &projected)
	}
	return out, nil
}
