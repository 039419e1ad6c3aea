package reduce

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Standardize rescales each dimension to zero mean and unit variance across
// the batch, returning a new matrix. Constant dimensions are centered but
// left unscaled so they cannot blow up to infinity.
func Standardize(vectors [][]float64) [][]float64 {
	n := len(vectors)
	if n == 0 {
		return nil
	}
	width := len(vectors[0])

	data := mat.NewDense(n, width, nil)
	for i, v := range vectors {
		data.SetRow(i, v)
	}

	col := make([]float64, n)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, width)
	}

	for j := 0; j < width; j++ {
		mat.Col(col, j, data)
		mean := stat.Mean(col, nil)
		std := stat.PopStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		for i := 0; i < n; i++ {
			out[i][j] = (col[i] - mean) / std
		}
	}

	return out
}
