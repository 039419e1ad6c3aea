package similarity

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/daylanKifky/umap-cv/internal/article"
	"github.com/daylanKifky/umap-cv/internal/checksum"
)

// DefaultConcurrency bounds how many pairs are scored at once.
const DefaultConcurrency = 4

// ScoreError reports one failed pairwise score. Scoring is all-or-nothing:
// a single failure aborts the batch so links never mix scoring runs.
type ScoreError struct {
	Field string
	A     int
	B     int
	Err   error
}

func (e *ScoreError) Error() string {
	return fmt.Sprintf("scoring field %q of articles %d and %d: %v", e.Field, e.A, e.B, e.Err)
}

func (e *ScoreError) Unwrap() error {
	return e.Err
}

// Engine scores every article pair across the given fields, deduplicating
// repeated text pairs through a ScoreCache.
type Engine struct {
	scorer   Scorer
	cache    *ScoreCache
	limit    int
	progress func(current, total int)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStore wires a persistent score store under the in-memory cache.
func WithStore(store Store) EngineOption {
	return func(e *Engine) {
		e.cache = NewScoreCache(store)
	}
}

// WithConcurrency sets how many pairs may be scored at once.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithProgress sets a progress callback for batch runs.
func WithProgress(fn func(current, total int)) EngineOption {
	return func(e *Engine) {
		e.progress = fn
	}
}

// NewEngine creates a scoring engine around the given scorer.
func NewEngine(scorer Scorer, opts ...EngineOption) *Engine {
	e := &Engine{
		scorer: scorer,
		cache:  NewScoreCache(nil),
		limit:  DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Similarity scores one article pair across the given fields. A field that
// is empty on either side is left out of the result, never scored as zero.
// List values are flattened to one space-joined string before scoring, and
// each distinct text pairing hits the scorer at most once per process.
func (e *Engine) Similarity(ctx context.Context, a, b article.Article, fields []string) (FieldScores, error) {
	model := e.scorer.ModelName()
	scores := make(FieldScores, len(fields))
	for _, field := range fields {
		va := a.Field(field)
		vb := b.Field(field)
		if va.Empty() || vb.Empty() {
			continue
		}

		textA, textB := va.Flat(), vb.Flat()
		key := checksum.Pair(field, textA, textB)
		score, err := e.cache.GetOrCompute(key, model, func() (float64, error) {
			return e.scorer.Score(ctx, textA, textB)
		})
		if err != nil {
			return nil, &ScoreError{Field: field, A: a.ID, B: b.ID, Err: err}
		}
		scores[field] = score
	}
	return scores, nil
}

// ScoreAll scores every article pair on every listed field. The scores
// depend only on content, so one run serves every layout method.
func (e *Engine) ScoreAll(ctx context.Context, articles []article.Article, fields []string) (map[Pair]FieldScores, error) {
	pairs := Pairs(len(articles))
	results := make([]FieldScores, len(pairs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)

	var done atomic.Int64
	for k, p := range pairs {
		g.Go(func() error {
			scores, err := e.Similarity(ctx, articles[p.I], articles[p.J], fields)
			if err != nil {
				return err
			}
			results[k] = scores
			e.report(int(done.Add(1)), len(pairs))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[Pair]FieldScores, len(pairs))
	for k, p := range pairs {
		out[p] = results[k]
	}
	return out, nil
}

func (e *Engine) report(current, total int) {
	if e.progress != nil {
		e.progress(current, total)
	}
}
