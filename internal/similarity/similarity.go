// Package similarity computes the pairwise relatedness scores that become
// link strengths, one score per shared field per article pair.
package similarity

// Pair identifies two articles by their batch indexes, always I < J.
type Pair struct {
	I int
	J int
}

// FieldScores holds one pair's scores keyed by field name. Fields that are
// empty on either side of the pair are absent.
type FieldScores map[string]float64

// Pairs enumerates every index pair for n articles in row order: (0,1),
// (0,2), ..., (n-2,n-1).
func Pairs(n int) []Pair {
	out := make([]Pair, 0, PairCount(n))
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, Pair{I: i, J: j})
		}
	}
	return out
}

// PairCount returns how many pairs n articles produce.
func PairCount(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}
