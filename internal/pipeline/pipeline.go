// Package pipeline runs a full artifact build: checksum gating, batch
// embedding, weighted combination, dimensionality reduction, cluster
// relaxation, pairwise scoring and persistence, in that order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/daylanKifky/umap-cv/internal/arc"
	"github.com/daylanKifky/umap-cv/internal/article"
	"github.com/daylanKifky/umap-cv/internal/artifact"
	"github.com/daylanKifky/umap-cv/internal/checksum"
	"github.com/daylanKifky/umap-cv/internal/config"
	"github.com/daylanKifky/umap-cv/internal/embedding"
	"github.com/daylanKifky/umap-cv/internal/reduce"
	"github.com/daylanKifky/umap-cv/internal/relax"
	"github.com/daylanKifky/umap-cv/internal/similarity"
	"github.com/daylanKifky/umap-cv/internal/vecindex"
	"github.com/daylanKifky/umap-cv/internal/vector"
)

var (
	// ErrCancelled is returned when the confirmation gate declines a run.
	ErrCancelled = errors.New("build cancelled")

	// ErrNoArticles is returned for an empty input batch.
	ErrNoArticles = errors.New("no articles to process")

	// ErrAllReductionsFailed is returned when not a single method and
	// dimension combination produced a layout.
	ErrAllReductionsFailed = errors.New("all reductions failed")
)

// ConfirmThreshold is the pair count above which a run asks for
// confirmation before scoring. Scoring is quadratic in batch size, so
// large batches should not start by accident.
const ConfirmThreshold = 1000

// fieldMapMinValues is the smallest unique-value count worth a field value
// map: PCA cannot extract three components from fewer points.
const fieldMapMinValues = 3

// Options tune one pipeline run.
type Options struct {
	// Model is the embedding model name recorded in the artifact.
	Model string

	// Weights maps field names to combination weights. Zero-weight fields
	// are ignored.
	Weights config.Weights

	// Methods and Dimensions span the requested layouts, one per pair.
	Methods    []string
	Dimensions []int

	// Relax tunes the cluster relaxation pass applied to every layout.
	Relax relax.Options

	// ArcStrategy and ArcSteps shape the link geometry.
	ArcStrategy arc.Strategy
	ArcSteps    int

	// OutputDir receives the artifact and manifest. Root is the project
	// root holding the vector index.
	OutputDir string
	Root      string

	// Force rebuilds even when the existing artifact is current.
	Force bool

	// Confirm gates runs with more than ConfirmThreshold pairs. A nil
	// Confirm never blocks.
	Confirm func(pairs int) bool

	// Notify receives human-readable progress notices. Optional.
	Notify func(msg string)
}

// RunStats summarizes what a run did.
type RunStats struct {
	Articles     int
	Pairs        int
	Checksum     string
	ArtifactPath string
	EmbeddingDim int
	LayoutKeys   []string
	Skipped      bool
	Reason       string
	Failed       []*reduce.ReductionError
}

// Pipeline owns the stages of a build run.
type Pipeline struct {
	batcher *embedding.Batcher
	adapter *reduce.Adapter
	engine  *similarity.Engine
	opts    Options
}

// New assembles a pipeline from its stages.
func New(batcher *embedding.Batcher, adapter *reduce.Adapter, engine *similarity.Engine, opts Options) *Pipeline {
	if opts.ArcStrategy == nil {
		opts.ArcStrategy = arc.Subdivision{}
	}
	if opts.ArcSteps <= 0 {
		opts.ArcSteps = arc.DefaultSteps
	}
	return &Pipeline{
		batcher: batcher,
		adapter: adapter,
		engine:  engine,
		opts:    opts,
	}
}

// Run builds the artifact for the batch. When the existing artifact on disk
// already covers the batch and the requested layouts, the run returns it
// with Skipped set instead of recomputing.
func (p *Pipeline) Run(ctx context.Context, articles []article.Article) (*artifact.Document, *RunStats, error) {
	if err := p.opts.Weights.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating weights: %w", err)
	}
	if len(articles) == 0 {
		return nil, nil, ErrNoArticles
	}

	itemSums := checksum.Items(articles, p.opts.Weights)
	batch := checksum.Batch(itemSums)
	path := filepath.Join(p.opts.OutputDir, artifact.Filename(batch))

	stats := &RunStats{
		Articles:     len(articles),
		Pairs:        similarity.PairCount(len(articles)),
		Checksum:     batch,
		ArtifactPath: path,
	}

	if !p.opts.Force {
		existing, err := artifact.Load(path)
		switch {
		case err == nil:
			ok, reason := ShouldSkip(existing, itemSums, p.opts.Methods, p.opts.Dimensions)
			if ok {
				p.notifyf("artifact %s is up to date, skipping build", filepath.Base(path))
				stats.Skipped = true
				stats.EmbeddingDim = existing.EmbeddingDim
				return existing, stats, nil
			}
			stats.Reason = reason
			p.notifyf("rebuilding: %s", reason)
		case !errors.Is(err, os.ErrNotExist):
			p.notifyf("existing artifact unreadable, rebuilding: %v", err)
		}
	}

	fields := positiveFields(p.opts.Weights)

	p.notifyf("embedding %d articles across %d fields", len(articles), len(fields))
	sets, err := p.batcher.EmbedFields(ctx, articles, p.opts.Weights)
	if err != nil {
		return nil, stats, err
	}

	combined, err := vector.Combine(sets, p.opts.Weights, len(articles))
	if err != nil {
		return nil, stats, fmt.Errorf("combining field vectors: %w", err)
	}
	stats.EmbeddingDim = combined.Width()

	layouts := make(map[string][][]float64)
	produced := make(map[string]bool, len(p.opts.Methods))
	for _, method := range p.opts.Methods {
		for _, dim := range p.opts.Dimensions {
			raw, err := p.adapter.Reduce(ctx, method, combined, dim)
			if err != nil {
				var re *reduce.ReductionError
				if !errors.As(err, &re) {
					return nil, stats, err
				}
				stats.Failed = append(stats.Failed, re)
				p.notifyf("skipping %s: %v", artifact.LayoutKey(method, dim), re.Err)
				continue
			}
			key := artifact.LayoutKey(method, dim)
			layouts[key] = relax.Apply(raw, p.opts.Relax)
			stats.LayoutKeys = append(stats.LayoutKeys, key)
			produced[method] = true
		}
	}
	if len(layouts) == 0 {
		return nil, stats, fmt.Errorf("%w: %d combinations attempted", ErrAllReductionsFailed, len(stats.Failed))
	}

	if stats.Pairs > ConfirmThreshold && p.opts.Confirm != nil && !p.opts.Confirm(stats.Pairs) {
		return nil, stats, ErrCancelled
	}

	p.notifyf("scoring %d article pairs", stats.Pairs)
	rawScores, err := p.engine.ScoreAll(ctx, articles, fields)
	if err != nil {
		return nil, stats, err
	}
	normScores := similarity.Normalize(rawScores)

	doc := &artifact.Document{
		Model:            p.opts.Model,
		EmbeddingDim:     stats.EmbeddingDim,
		ReductionMethods: orderedMethods(p.opts.Methods, produced),
		Dimensions:       p.opts.Dimensions,
		Checksum:         batch,
		Articles:         make([]artifact.Article, len(articles)),
		Links:            make(map[string][]artifact.Link),
	}
	for i, a := range articles {
		art := artifact.FromArticle(a, itemSums[i])
		for _, key := range stats.LayoutKeys {
			art.Layouts[key] = layouts[key][i]
		}
		doc.Articles[i] = art
	}

	for _, method := range doc.ReductionMethods {
		layout, ok := layouts[artifact.LayoutKey(method, 3)]
		if !ok {
			continue
		}
		doc.Links[method] = p.buildLinks(articles, layout, rawScores, normScores)
	}

	doc.Fields, err = p.fieldValueMaps(ctx, articles, fields)
	if err != nil {
		return nil, stats, err
	}

	doc.Quantize()

	if err := artifact.Save(doc, path); err != nil {
		return nil, stats, err
	}
	manifest := artifact.Manifest{Latest: filepath.Base(path), Checksum: batch}
	if err := artifact.WriteManifest(p.opts.OutputDir, manifest); err != nil {
		return nil, stats, err
	}

	if err := p.saveIndex(articles, combined, batch); err != nil {
		return nil, stats, err
	}

	p.notifyf("wrote %s: %d articles, %d layouts, %d pairs", filepath.Base(path), len(articles), len(stats.LayoutKeys), stats.Pairs)
	return doc, stats, nil
}

// buildLinks computes the arc geometry and attaches the scores for every
// article pair on one 3D layout. Raw and normalized score maps are shared
// across methods; quantization rounds shared maps idempotently.
func (p *Pipeline) buildLinks(articles []article.Article, layout [][]float64, raw, norm map[similarity.Pair]similarity.FieldScores) []artifact.Link {
	pairs := similarity.Pairs(len(articles))
	links := make([]artifact.Link, len(pairs))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, pair := range pairs {
		g.Go(func() error {
			a, b := layout[pair.I], layout[pair.J]
			links[i] = artifact.Link{
				SourceID:        articles[pair.I].ID,
				TargetID:        articles[pair.J].ID,
				ArcVertices:     p.opts.ArcStrategy.Connect(a, b, p.opts.ArcSteps),
				Tangent:         arc.Tangent(a, b),
				SimilaritiesRaw: raw[pair],
				Similarities:    norm[pair],
			}
			return nil
		})
	}
	_ = g.Wait()

	return links
}

// fieldValueMaps lays out the unique values of each list-like scored field
// in their own 3D PCA space, so tags and similar vocabularies can be drawn
// as independent maps. Title and description stay out: their values are
// unique per article and already live in the article layout.
func (p *Pipeline) fieldValueMaps(ctx context.Context, articles []article.Article, fields []string) (artifact.FieldValues, error) {
	out := make(artifact.FieldValues)

	for _, field := range fields {
		if field == "title" || field == "description" {
			continue
		}

		values := uniqueValues(articles, field)
		if len(values) < fieldMapMinValues {
			p.notifyf("field %q has %d unique values, skipping value map", field, len(values))
			continue
		}

		vecs, err := p.batcher.EmbedTexts(ctx, values)
		if err != nil {
			return nil, fmt.Errorf("embedding values of field %q: %w", field, err)
		}

		coords, err := p.adapter.Reduce(ctx, reduce.MethodPCA, vecs, 3)
		if err != nil {
			p.notifyf("skipping value map for field %q: %v", field, err)
			continue
		}

		layouts := make(map[string]artifact.ValueLayouts, len(values))
		for i, value := range values {
			layouts[value] = artifact.ValueLayouts{artifact.LayoutKey(reduce.MethodPCA, 3): coords[i]}
		}
		out[field] = layouts
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (p *Pipeline) saveIndex(articles []article.Article, combined vector.Set, batch string) error {
	idx := vecindex.NewIndex(p.opts.Model, combined.Width(), batch)
	for i, a := range articles {
		if err := idx.Add(a.ID, a.Title(), combined[i]); err != nil {
			return fmt.Errorf("indexing article %d: %w", a.ID, err)
		}
	}
	return idx.Save(p.opts.Root)
}

func (p *Pipeline) notifyf(format string, args ...any) {
	if p.opts.Notify != nil {
		p.opts.Notify(fmt.Sprintf(format, args...))
	}
}

// positiveFields returns the positive-weight field names in sorted order.
func positiveFields(weights config.Weights) []string {
	fields := make([]string, 0, len(weights))
	for field, w := range weights {
		if w > 0 {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// orderedMethods filters the requested methods down to those that produced
// at least one layout, preserving request order.
func orderedMethods(methods []string, produced map[string]bool) []string {
	out := make([]string, 0, len(methods))
	for _, method := range methods {
		if produced[method] {
			out = append(out, method)
		}
	}
	return out
}

// uniqueValues collects the distinct non-empty elements of one field across
// the batch, sorted for determinism.
func uniqueValues(articles []article.Article, field string) []string {
	seen := make(map[string]bool)
	for _, a := range articles {
		for _, el := range a.Field(field).Elements() {
			seen[el] = true
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
