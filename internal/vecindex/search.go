package vecindex

import (
	"sort"

	"github.com/daylanKifky/umap-cv/internal/vector"
)

// SearchResult is one article ranked by similarity to a query.
type SearchResult struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// Search ranks indexed articles against a query embedding.
// Results are sorted by similarity (highest first) and filtered by threshold.
func (idx *Index) Search(query []float64, limit int, threshold float64) []SearchResult {
	if len(idx.Entries) == 0 || len(query) != idx.Dimensions {
		return nil
	}

	results := make([]SearchResult, 0, len(idx.Entries))
	for _, entry := range idx.Entries {
		sim := vector.Cosine(query, entry.Vector)
		if sim >= threshold {
			results = append(results, SearchResult{
				ID:         entry.ID,
				Title:      entry.Title,
				Similarity: sim,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results
}

// FindSimilar ranks the neighbors of an indexed article.
// The source article is excluded from results.
func (idx *Index) FindSimilar(id int, limit int) ([]SearchResult, error) {
	source, ok := idx.entry(id)
	if !ok {
		return nil, ErrArticleNotIndexed
	}

	results := make([]SearchResult, 0, len(idx.Entries)-1)
	for _, entry := range idx.Entries {
		if entry.ID == id {
			continue
		}
		results = append(results, SearchResult{
			ID:         entry.ID,
			Title:      entry.Title,
			Similarity: vector.Cosine(source.Vector, entry.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Has checks if an article is in the index.
func (idx *Index) Has(id int) bool {
	_, ok := idx.entry(id)
	return ok
}

func (idx *Index) entry(id int) (Entry, bool) {
	for _, entry := range idx.Entries {
		if entry.ID == id {
			return entry, true
		}
	}
	return Entry{}, false
}
