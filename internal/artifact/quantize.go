package artifact

import "math"

// quantScale fixes persisted floats at four decimal places.
const quantScale = 1e4

// Round quantizes one value to four decimal places.
func Round(v float64) float64 {
	return math.Round(v*quantScale) / quantScale
}

// Quantize rounds every float in the document to four decimal places,
// mutating it in place. Run it once, right before saving.
func (d *Document) Quantize() {
	for _, values := range d.Fields {
		for _, layouts := range values {
			for _, coords := range layouts {
				roundSlice(coords)
			}
		}
	}

	for i := range d.Articles {
		for _, coords := range d.Articles[i].Layouts {
			roundSlice(coords)
		}
	}

	for _, links := range d.Links {
		for i := range links {
			for _, vertex := range links[i].ArcVertices {
				roundSlice(vertex)
			}
			roundSlice(links[i].Tangent)
			roundMap(links[i].SimilaritiesRaw)
			roundMap(links[i].Similarities)
		}
	}
}

func roundSlice(v []float64) {
	for i := range v {
		v[i] = Round(v[i])
	}
}

func roundMap(m map[string]float64) {
	for k, v := range m {
		m[k] = Round(v)
	}
}
