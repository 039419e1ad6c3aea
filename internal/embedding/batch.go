package embedding

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/daylanKifky/umap-cv/internal/article"
	"github.com/daylanKifky/umap-cv/internal/vector"
)

// DefaultConcurrency bounds how many embedding requests run at once.
const DefaultConcurrency = 4

// Batcher embeds every weighted field of an article batch through a
// Provider, consulting a Cache before each request.
type Batcher struct {
	provider Provider
	cache    Cache
	limit    int
	reporter ProgressReporter
}

// BatcherOption configures a Batcher.
type BatcherOption func(*Batcher)

// WithCache sets the cross-run embedding cache.
func WithCache(cache Cache) BatcherOption {
	return func(b *Batcher) {
		b.cache = cache
	}
}

// WithConcurrency sets how many embedding requests may be in flight.
func WithConcurrency(n int) BatcherOption {
	return func(b *Batcher) {
		if n > 0 {
			b.limit = n
		}
	}
}

// WithProgress sets the progress reporter for batch runs.
func WithProgress(reporter ProgressReporter) BatcherOption {
	return func(b *Batcher) {
		b.reporter = reporter
	}
}

// NewBatcher creates a batch embedder around the given provider.
func NewBatcher(provider Provider, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		provider: provider,
		limit:    DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EmbedFields returns one vector set per positive-weight field, each with
// one row per article in article order. Articles with empty text for a
// field get a nil row and never reach the provider. The first provider
// error cancels the remaining work.
func (b *Batcher) EmbedFields(ctx context.Context, articles []article.Article, weights map[string]float64) (map[string]vector.Set, error) {
	fields := make([]string, 0, len(weights))
	for field, w := range weights {
		if w > 0 {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	if len(fields) == 0 {
		return nil, vector.ErrNoPositiveWeight
	}

	total := 0
	for _, field := range fields {
		for _, a := range articles {
			if !a.Field(field).Empty() {
				total++
			}
		}
	}

	result := make(map[string]vector.Set, len(fields))
	model := b.provider.ModelName()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)

	var done atomic.Int64
	for _, field := range fields {
		set := make(vector.Set, len(articles))
		result[field] = set

		for i, a := range articles {
			text := a.Field(field).Flat()
			if text == "" {
				continue
			}

			g.Go(func() error {
				if b.cache != nil {
					if vec, ok := b.cache.GetEmbedding(model, text); ok {
						set[i] = vec
						b.report(int(done.Add(1)), total)
						return nil
					}
				}

				vec, err := b.provider.Embed(ctx, text)
				if err != nil {
					return fmt.Errorf("embedding field %q of article %d: %w", field, a.ID, err)
				}
				set[i] = vec

				if b.cache != nil {
					// Cache writes are best effort.
					_ = b.cache.PutEmbedding(model, text, vec)
				}

				b.report(int(done.Add(1)), total)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

// EmbedTexts embeds plain strings, one vector per input in input order.
// Empty strings get a nil row. The cache is consulted the same way as for
// article fields.
func (b *Batcher) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	model := b.provider.ModelName()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)

	for i, text := range texts {
		if text == "" {
			continue
		}

		g.Go(func() error {
			if b.cache != nil {
				if vec, ok := b.cache.GetEmbedding(model, text); ok {
					out[i] = vec
					return nil
				}
			}

			vec, err := b.provider.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			out[i] = vec

			if b.cache != nil {
				_ = b.cache.PutEmbedding(model, text, vec)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (b *Batcher) report(current, total int) {
	if b.reporter != nil {
		b.reporter.Progress(current, total)
	}
}
