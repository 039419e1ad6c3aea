package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/daylanKifky/umap-cv/internal/article"
	"github.com/daylanKifky/umap-cv/internal/artifact"
	"github.com/daylanKifky/umap-cv/internal/config"
	"github.com/daylanKifky/umap-cv/internal/embedding"
	"github.com/daylanKifky/umap-cv/internal/reduce"
	"github.com/daylanKifky/umap-cv/internal/relax"
	"github.com/daylanKifky/umap-cv/internal/similarity"
	"github.com/daylanKifky/umap-cv/internal/vecindex"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) Embed(_ context.Context, text string) ([]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	vec := make([]float64, 8)
	for i, r := range text {
		vec[i%8] += float64(r)
	}
	return vec, nil
}

func (f *fakeProvider) ModelName() string { return "fake-minilm" }
func (f *fakeProvider) Dimensions() int   { return 8 }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeScorer struct{}

func (fakeScorer) Score(_ context.Context, a, b string) (float64, error) {
	return float64(len(a)+len(b)) / 100, nil
}

func (fakeScorer) ModelName() string { return "fake-cross" }

func testOptions(t *testing.T) Options {
	t.Helper()
	root := t.TempDir()
	return Options{
		Model:      "fake-minilm",
		Weights:    config.Weights{"title": 1, "tags": 0.5},
		Methods:    []string{"pca"},
		Dimensions: []int{3},
		Relax:      relax.DefaultOptions(),
		ArcSteps:   3,
		OutputDir:  filepath.Join(root, "data"),
		Root:       root,
	}
}

func testPipeline(opts Options) (*Pipeline, *fakeProvider) {
	provider := &fakeProvider{}
	batcher := embedding.NewBatcher(provider)
	adapter := reduce.NewAdapter()
	adapter.Register(reduce.PCA{})
	engine := similarity.NewEngine(fakeScorer{})
	return New(batcher, adapter, engine, opts), provider
}

func testArticles() []article.Article {
	return []article.Article{
		{ID: 1, Fields: map[string]article.Value{
			"title": article.String("neural radiance fields"),
			"tags":  article.Strings("graphics", "ml"),
		}},
		{ID: 2, Fields: map[string]article.Value{
			"title": article.String("signed distance functions"),
			"tags":  article.Strings("graphics", "sdf"),
		}},
		{ID: 3, Fields: map[string]article.Value{
			"title": article.String("procedural terrain synthesis"),
			"tags":  article.Strings("terrain"),
		}},
		{ID: 4, Fields: map[string]article.Value{
			"title": article.String("fluid simulation on grids"),
		}},
	}
}

func TestRun_BuildsArtifact(t *testing.T) {
	opts := testOptions(t)
	p, _ := testPipeline(opts)

	doc, stats, err := p.Run(context.Background(), testArticles())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Skipped {
		t.Error("first run should not be skipped")
	}
	if stats.Articles != 4 || stats.Pairs != 6 {
		t.Errorf("stats = %d articles, %d pairs; want 4, 6", stats.Articles, stats.Pairs)
	}
	if stats.Checksum == "" || len(stats.Checksum) != 16 {
		t.Errorf("batch checksum = %q, want 16 hex chars", stats.Checksum)
	}
	if len(stats.LayoutKeys) != 1 || stats.LayoutKeys[0] != "pca_3d" {
		t.Errorf("layout keys = %v, want [pca_3d]", stats.LayoutKeys)
	}

	if doc.Model != "fake-minilm" || doc.EmbeddingDim != 8 || doc.Checksum != stats.Checksum {
		t.Errorf("doc header = %q/%d/%q", doc.Model, doc.EmbeddingDim, doc.Checksum)
	}
	if len(doc.ReductionMethods) != 1 || doc.ReductionMethods[0] != "pca" {
		t.Errorf("reduction methods = %v", doc.ReductionMethods)
	}
	if len(doc.Articles) != 4 {
		t.Fatalf("doc has %d articles, want 4", len(doc.Articles))
	}
	for i, a := range doc.Articles {
		pts, ok := a.Layouts["pca_3d"]
		if !ok || len(pts) != 3 {
			t.Errorf("article %d layout = %v, want 3 coords", i, pts)
		}
	}

	links := doc.Links["pca"]
	if len(links) != 6 {
		t.Fatalf("pca links = %d, want 6", len(links))
	}
	first := links[0]
	if first.SourceID != 1 || first.TargetID != 2 {
		t.Errorf("first link connects %d->%d, want 1->2", first.SourceID, first.TargetID)
	}
	if len(first.ArcVertices) == 0 || len(first.ArcVertices[0]) != 3 {
		t.Errorf("arc vertices = %v", first.ArcVertices)
	}
	if len(first.Tangent) != 3 {
		t.Errorf("tangent = %v, want 3 coords", first.Tangent)
	}
	if _, ok := first.Similarities["title"]; !ok {
		t.Error("link should carry a normalized title score")
	}
	if _, ok := first.SimilaritiesRaw["title"]; !ok {
		t.Error("link should carry a raw title score")
	}
}

func TestRun_PersistsEverything(t *testing.T) {
	opts := testOptions(t)
	p, _ := testPipeline(opts)

	_, stats, err := p.Run(context.Background(), testArticles())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	loaded, err := artifact.Load(stats.ArtifactPath)
	if err != nil {
		t.Fatalf("Load artifact: %v", err)
	}
	if loaded.Checksum != stats.Checksum {
		t.Errorf("artifact checksum = %q, want %q", loaded.Checksum, stats.Checksum)
	}

	manifest, err := artifact.ReadManifest(opts.OutputDir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if manifest.Latest != filepath.Base(stats.ArtifactPath) {
		t.Errorf("manifest latest = %q, want %q", manifest.Latest, filepath.Base(stats.ArtifactPath))
	}
	if manifest.Checksum != stats.Checksum {
		t.Errorf("manifest checksum = %q", manifest.Checksum)
	}

	idx, err := vecindex.Load(opts.Root)
	if err != nil {
		t.Fatalf("Load index: %v", err)
	}
	if idx.ArticleCount != 4 || idx.Checksum != stats.Checksum {
		t.Errorf("index has %d articles, checksum %q", idx.ArticleCount, idx.Checksum)
	}
	if idx.ModelName != "fake-minilm" || idx.Dimensions != 8 {
		t.Errorf("index header = %q/%d", idx.ModelName, idx.Dimensions)
	}
}

func TestRun_FieldValueMaps(t *testing.T) {
	opts := testOptions(t)
	p, _ := testPipeline(opts)

	doc, _, err := p.Run(context.Background(), testArticles())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	tags, ok := doc.Fields["tags"]
	if !ok {
		t.Fatalf("doc.Fields = %v, want a tags map", doc.Fields)
	}
	for _, value := range []string{"graphics", "ml", "sdf", "terrain"} {
		layouts, ok := tags[value]
		if !ok {
			t.Errorf("tags map missing %q", value)
			continue
		}
		if pts := layouts["pca_3d"]; len(pts) != 3 {
			t.Errorf("value %q coords = %v, want 3", value, pts)
		}
	}

	// Title values are unique per article and get no value map.
	if _, ok := doc.Fields["title"]; ok {
		t.Error("title should not get a field value map")
	}
}

func TestRun_FieldValueMapSkippedWhenSparse(t *testing.T) {
	opts := testOptions(t)
	var notices []string
	opts.Notify = func(msg string) { notices = append(notices, msg) }
	p, _ := testPipeline(opts)

	// Only two unique tags across the batch.
	articles := []article.Article{
		{ID: 1, Fields: map[string]article.Value{
			"title": article.String("neural radiance fields"),
			"tags":  article.Strings("graphics"),
		}},
		{ID: 2, Fields: map[string]article.Value{
			"title": article.String("signed distance functions"),
			"tags":  article.Strings("ml"),
		}},
		{ID: 3, Fields: map[string]article.Value{
			"title": article.String("procedural terrain synthesis"),
			"tags":  article.Strings("graphics"),
		}},
	}
	doc, _, err := p.Run(context.Background(), articles)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if doc.Fields != nil {
		t.Errorf("doc.Fields = %v, want none for sparse values", doc.Fields)
	}

	found := false
	for _, msg := range notices {
		if strings.Contains(msg, "tags") && strings.Contains(msg, "skipping") {
			found = true
		}
	}
	if !found {
		t.Errorf("notices = %v, want a skip notice for tags", notices)
	}
}

func TestRun_SkipsWhenCurrent(t *testing.T) {
	opts := testOptions(t)
	first, _ := testPipeline(opts)
	if _, _, err := first.Run(context.Background(), testArticles()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second, provider := testPipeline(opts)
	doc, stats, err := second.Run(context.Background(), testArticles())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if !stats.Skipped {
		t.Error("unchanged batch should skip the build")
	}
	if provider.callCount() != 0 {
		t.Errorf("skipped run made %d provider calls, want 0", provider.callCount())
	}
	if doc == nil || doc.Checksum != stats.Checksum {
		t.Errorf("skipped run should return the existing artifact")
	}
	if stats.EmbeddingDim != 8 {
		t.Errorf("skipped stats embedding dim = %d, want 8", stats.EmbeddingDim)
	}
}

func TestRun_CorruptArtifactRebuilds(t *testing.T) {
	opts := testOptions(t)
	first, _ := testPipeline(opts)
	_, stats, err := first.Run(context.Background(), testArticles())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}

	if err := os.WriteFile(stats.ArtifactPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("corrupting artifact: %v", err)
	}

	var notices []string
	opts.Notify = func(msg string) { notices = append(notices, msg) }
	second, provider := testPipeline(opts)
	_, after, err := second.Run(context.Background(), testArticles())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if after.Skipped {
		t.Error("corrupt artifact should force a rebuild")
	}
	if provider.callCount() == 0 {
		t.Error("rebuild should re-embed")
	}
	found := false
	for _, msg := range notices {
		if strings.Contains(msg, "unreadable") {
			found = true
		}
	}
	if !found {
		t.Errorf("notices = %v, want an unreadable-artifact notice", notices)
	}

	loaded, err := artifact.Load(after.ArtifactPath)
	if err != nil {
		t.Fatalf("Load rewritten artifact: %v", err)
	}
	if loaded.Checksum != after.Checksum {
		t.Errorf("rewritten checksum = %q, want %q", loaded.Checksum, after.Checksum)
	}
}

func TestRun_ForceRebuilds(t *testing.T) {
	opts := testOptions(t)
	first, _ := testPipeline(opts)
	if _, _, err := first.Run(context.Background(), testArticles()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	opts.Force = true
	second, provider := testPipeline(opts)
	_, stats, err := second.Run(context.Background(), testArticles())
	if err != nil {
		t.Fatalf("forced Run: %v", err)
	}

	if stats.Skipped {
		t.Error("forced run should not skip")
	}
	if provider.callCount() == 0 {
		t.Error("forced run should re-embed")
	}
}

func TestRun_RebuildsOnNewLayouts(t *testing.T) {
	opts := testOptions(t)
	first, _ := testPipeline(opts)
	if _, _, err := first.Run(context.Background(), testArticles()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// Same batch, but a 2D layout is now requested too. The artifact file
	// name matches, so the stale check has to catch the missing layout.
	opts.Dimensions = []int{2, 3}
	second, _ := testPipeline(opts)
	doc, stats, err := second.Run(context.Background(), testArticles())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if stats.Skipped {
		t.Fatal("missing layout should force a rebuild")
	}
	if !strings.Contains(stats.Reason, "pca_2d") {
		t.Errorf("reason = %q, want mention of pca_2d", stats.Reason)
	}
	if len(doc.Articles[0].Layouts) != 2 {
		t.Errorf("rebuilt layouts = %v, want pca_2d and pca_3d", doc.Articles[0].Layouts)
	}
}

func TestRun_ContentChangeNewArtifact(t *testing.T) {
	opts := testOptions(t)
	first, _ := testPipeline(opts)
	_, before, err := first.Run(context.Background(), testArticles())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}

	changed := testArticles()
	changed[2].Fields["title"] = article.String("procedural terrain synthesis v2")

	second, _ := testPipeline(opts)
	_, after, err := second.Run(context.Background(), changed)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if after.Skipped {
		t.Error("changed content should rebuild")
	}
	if after.Checksum == before.Checksum {
		t.Error("batch checksum should change with content")
	}
	if after.ArtifactPath == before.ArtifactPath {
		t.Error("artifact path should change with the batch checksum")
	}
}

func TestRun_ConfirmGate(t *testing.T) {
	articles := make([]article.Article, 46)
	for i := range articles {
		articles[i] = article.Article{ID: i + 1, Fields: map[string]article.Value{
			"title": article.String(fmt.Sprintf("article number %d", i+1)),
		}}
	}

	opts := testOptions(t)
	opts.Weights = config.Weights{"title": 1}
	var gotPairs int
	opts.Confirm = func(pairs int) bool {
		gotPairs = pairs
		return false
	}
	p, _ := testPipeline(opts)

	_, stats, err := p.Run(context.Background(), articles)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Run error = %v, want ErrCancelled", err)
	}
	if gotPairs != 1035 || stats.Pairs != 1035 {
		t.Errorf("confirm saw %d pairs, stats %d; want 1035", gotPairs, stats.Pairs)
	}

	if _, err := os.Stat(stats.ArtifactPath); !os.IsNotExist(err) {
		t.Error("cancelled run should not write an artifact")
	}
}

func TestRun_ConfirmNotAskedForSmallBatches(t *testing.T) {
	opts := testOptions(t)
	opts.Confirm = func(pairs int) bool {
		t.Errorf("confirm called for %d pairs", pairs)
		return false
	}
	p, _ := testPipeline(opts)

	if _, _, err := p.Run(context.Background(), testArticles()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRun_PartialReductionFailure(t *testing.T) {
	opts := testOptions(t)
	opts.Methods = []string{"pca", "tsne"}
	p, _ := testPipeline(opts) // only PCA registered

	doc, stats, err := p.Run(context.Background(), testArticles())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(stats.Failed) != 1 {
		t.Fatalf("failed reductions = %v, want 1", stats.Failed)
	}
	if stats.Failed[0].Method != "tsne" {
		t.Errorf("failed method = %q, want tsne", stats.Failed[0].Method)
	}
	if len(doc.ReductionMethods) != 1 || doc.ReductionMethods[0] != "pca" {
		t.Errorf("reduction methods = %v, want [pca]", doc.ReductionMethods)
	}
	if _, ok := doc.Links["tsne"]; ok {
		t.Error("failed method should not get links")
	}
}

func TestRun_AllReductionsFailed(t *testing.T) {
	opts := testOptions(t)
	opts.Methods = []string{"tsne"}
	p, _ := testPipeline(opts)

	_, _, err := p.Run(context.Background(), testArticles())
	if !errors.Is(err, ErrAllReductionsFailed) {
		t.Fatalf("Run error = %v, want ErrAllReductionsFailed", err)
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	p, _ := testPipeline(testOptions(t))
	_, _, err := p.Run(context.Background(), nil)
	if !errors.Is(err, ErrNoArticles) {
		t.Fatalf("Run error = %v, want ErrNoArticles", err)
	}
}

func TestRun_InvalidWeights(t *testing.T) {
	opts := testOptions(t)
	opts.Weights = config.Weights{"title": -1}
	p, _ := testPipeline(opts)

	_, _, err := p.Run(context.Background(), testArticles())
	if !errors.Is(err, config.ErrNegativeWeight) {
		t.Fatalf("Run error = %v, want ErrNegativeWeight", err)
	}
}

func TestShouldSkip(t *testing.T) {
	sums := []string{"aaa", "bbb"}
	current := func() *artifact.Document {
		return &artifact.Document{
			ReductionMethods: []string{"pca"},
			Articles: []artifact.Article{
				{ID: 1, Checksum: "aaa", Layouts: map[string][]float64{"pca_3d": {0, 0, 0}}},
				{ID: 2, Checksum: "bbb", Layouts: map[string][]float64{"pca_3d": {1, 1, 1}}},
			},
		}
	}

	t.Run("current artifact skips", func(t *testing.T) {
		ok, reason := ShouldSkip(current(), sums, []string{"pca"}, []int{3})
		if !ok || reason != "" {
			t.Errorf("ShouldSkip = %v, %q; want true", ok, reason)
		}
	})

	t.Run("nil document", func(t *testing.T) {
		ok, reason := ShouldSkip(nil, sums, []string{"pca"}, []int{3})
		if ok || reason == "" {
			t.Errorf("ShouldSkip = %v, %q", ok, reason)
		}
	})

	t.Run("article count changed", func(t *testing.T) {
		ok, reason := ShouldSkip(current(), []string{"aaa"}, []string{"pca"}, []int{3})
		if ok || !strings.Contains(reason, "count") {
			t.Errorf("ShouldSkip = %v, %q", ok, reason)
		}
	})

	t.Run("article content changed", func(t *testing.T) {
		ok, reason := ShouldSkip(current(), []string{"aaa", "zzz"}, []string{"pca"}, []int{3})
		if ok || !strings.Contains(reason, "article 2") {
			t.Errorf("ShouldSkip = %v, %q", ok, reason)
		}
	})

	t.Run("methods changed", func(t *testing.T) {
		ok, reason := ShouldSkip(current(), sums, []string{"pca", "umap"}, []int{3})
		if ok || !strings.Contains(reason, "methods") {
			t.Errorf("ShouldSkip = %v, %q", ok, reason)
		}
	})

	t.Run("layout missing", func(t *testing.T) {
		ok, reason := ShouldSkip(current(), sums, []string{"pca"}, []int{2, 3})
		if ok || !strings.Contains(reason, "pca_2d") {
			t.Errorf("ShouldSkip = %v, %q", ok, reason)
		}
	})
}
