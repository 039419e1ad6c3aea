// Package checksum fingerprints article content so unchanged batches can
// skip recomputation.
package checksum

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/daylanKifky/umap-cv/internal/article"
)

// BatchLength is the number of hex characters kept from a batch checksum,
// short enough to serve as a filename suffix.
const BatchLength = 16

// Item fingerprints the weighted content of one article. Only fields with
// positive weight participate, serialized as [field, value] pairs in sorted
// field order, so input key order and zero-weight edits never change the
// digest. Missing fields serialize as the empty string.
func Item(a article.Article, weights map[string]float64) string {
	fields := make([]string, 0, len(weights))
	for field, w := range weights {
		if w > 0 {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	pairs := make([][2]string, 0, len(fields))
	for _, field := range fields {
		pairs = append(pairs, [2]string{field, a.Field(field).Flat()})
	}

	return hashJSON(pairs)
}

// Items computes Item for every article, preserving order.
func Items(articles []article.Article, weights map[string]float64) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = Item(a, weights)
	}
	return out
}

// Batch fingerprints a whole collection from its item checksums. The
// checksums are sorted lexically first so batch identity does not depend on
// input order, and the digest is truncated to BatchLength characters.
func Batch(itemChecksums []string) string {
	sorted := make([]string, len(itemChecksums))
	copy(sorted, itemChecksums)
	sort.Strings(sorted)
	return hashJSON(sorted)[:BatchLength]
}

// Pair keys a cross-similarity score for one field of two articles. The two
// texts are ordered lexically so both score orderings share a key.
func Pair(field, textA, textB string) string {
	lo, hi := textA, textB
	if hi < lo {
		lo, hi = hi, lo
	}
	return hashJSON([]string{field, lo, hi})
}

func hashJSON(v any) string {
	data, _ := json.Marshal(v)
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
