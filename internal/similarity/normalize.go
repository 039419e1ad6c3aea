package similarity

import "math"

// normalizeEps keeps the denominator alive when every pair scored the same.
const normalizeEps = 1e-8

// Normalize rescales raw scores to a 0..2 range per field across all
// pairs: 2*(x-min)/(max-min+eps). A field whose scores are all equal maps
// to zero. Pairs missing a field stay missing, and the input is untouched.
func Normalize(raw map[Pair]FieldScores) map[Pair]FieldScores {
	mins := make(map[string]float64)
	maxs := make(map[string]float64)
	for _, scores := range raw {
		for field, v := range scores {
			if cur, ok := mins[field]; !ok || v < cur {
				mins[field] = v
			}
			if cur, ok := maxs[field]; !ok || v > cur {
				maxs[field] = v
			}
		}
	}

	out := make(map[Pair]FieldScores, len(raw))
	for pair, scores := range raw {
		normalized := make(FieldScores, len(scores))
		for field, v := range scores {
			span := maxs[field] - mins[field] + normalizeEps
			normalized[field] = 2 * (v - mins[field]) / span
		}
		out[pair] = normalized
	}
	return out
}

// MinMax returns the observed score range for one field, with ok false
// when no pair carried the field.
func MinMax(raw map[Pair]FieldScores, field string) (min, max float64, ok bool) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for _, scores := range raw {
		if v, present := scores[field]; present {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}
