package pipeline

import (
	"fmt"
	"sort"

	"github.com/daylanKifky/umap-cv/internal/artifact"
)

// ShouldSkip reports whether an existing artifact already covers the batch
// and the requested layouts. When it does not, the reason names the first
// mismatch found.
func ShouldSkip(doc *artifact.Document, itemSums []string, methods []string, dims []int) (bool, string) {
	if doc == nil {
		return false, "no artifact"
	}
	if len(doc.Articles) != len(itemSums) {
		return false, fmt.Sprintf("article count changed: artifact has %d, input has %d", len(doc.Articles), len(itemSums))
	}

	for i, sum := range itemSums {
		if doc.Articles[i].Checksum != sum {
			return false, fmt.Sprintf("article %d content changed", doc.Articles[i].ID)
		}
	}

	if !sameSet(doc.ReductionMethods, methods) {
		return false, fmt.Sprintf("reduction methods changed: artifact has %v, requested %v", doc.ReductionMethods, methods)
	}

	for _, method := range methods {
		for _, dim := range dims {
			key := artifact.LayoutKey(method, dim)
			if _, ok := doc.Articles[0].Layouts[key]; !ok {
				return false, fmt.Sprintf("layout %s missing from artifact", key)
			}
		}
	}

	return true, ""
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
