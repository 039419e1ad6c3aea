package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/daylanKifky/umap-cv/internal/arc"
	"github.com/daylanKifky/umap-cv/internal/article"
	"github.com/daylanKifky/umap-cv/internal/artifact"
	"github.com/daylanKifky/umap-cv/internal/cachedb"
	"github.com/daylanKifky/umap-cv/internal/config"
	"github.com/daylanKifky/umap-cv/internal/embedding"
	"github.com/daylanKifky/umap-cv/internal/pipeline"
	"github.com/daylanKifky/umap-cv/internal/reduce"
	"github.com/daylanKifky/umap-cv/internal/relax"
	"github.com/daylanKifky/umap-cv/internal/similarity"
	"github.com/daylanKifky/umap-cv/internal/vector"
)

var (
	buildInput       string
	buildOutput      string
	buildMethods     []string
	buildDimensions  []int
	buildModel       string
	buildStrategy    string
	buildSteps       int
	buildSkipConfirm bool
	buildForce       bool
	buildNoProgress  bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildInput, "input", "i", "", "Articles file (JSON array or JSONL)")
	buildCmd.MarkFlagRequired("input")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Output directory (default from config)")
	buildCmd.Flags().StringSliceVar(&buildMethods, "methods", nil, "Reduction methods: pca, tsne, umap")
	buildCmd.Flags().IntSliceVar(&buildDimensions, "dimensions", nil, "Target dimensions: 2, 3")
	buildCmd.Flags().StringVar(&buildModel, "model", "", "Embedding model name")
	buildCmd.Flags().StringVar(&buildStrategy, "strategy", "", "Arc strategy: subdivision, catmullrom")
	buildCmd.Flags().IntVar(&buildSteps, "steps", 0, "Arc refinement steps")
	buildCmd.Flags().BoolVarP(&buildSkipConfirm, "skip-confirmation", "s", false, "Skip the large-batch confirmation prompt")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Rebuild even when the artifact is current")
	buildCmd.Flags().BoolVar(&buildNoProgress, "no-progress", false, "Suppress progress output")
}

// BuildResult is the response for the build command.
type BuildResult struct {
	Status          string   `json:"status"`
	Articles        int      `json:"articles"`
	Pairs           int      `json:"pairs"`
	Checksum        string   `json:"checksum"`
	Artifact        string   `json:"artifact,omitempty"`
	EmbeddingDim    int      `json:"embedding_dim,omitempty"`
	Layouts         []string `json:"layouts,omitempty"`
	FailedLayouts   []string `json:"failed_layouts,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	Model           string   `json:"model"`
	DurationSeconds float64  `json:"duration_seconds"`
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the visualization artifact from an article file",
	Long: fmt.Sprintf(`Build the visualization artifact for a batch of articles.

Every weighted text field is embedded through Ollama, the weighted
combination is projected with each configured reduction method, article
pairs are scored with the cross-encoder sidecar and the result is
written to the output directory together with a manifest and a vector
index for search.

An unchanged batch is detected by checksum and skipped; use --force to
rebuild anyway. Batches above %d pairs prompt before scoring.`, pipeline.ConfirmThreshold),
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	root := mustFindRepository()
	cfg := mustLoadConfig(root)
	applyBuildFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "invalid options: %v", err)
	}

	articles := mustLoadArticles(buildInput)

	outputDir := cfg.OutputPath(root)
	if buildOutput != "" {
		outputDir = buildOutput
	}

	provider := newOllamaProvider(cfg)
	mustValidateOllama(ctx, provider, true)

	cache := mustOpenCache(root)
	defer cache.Close()

	showProgress := humanOutput && !buildNoProgress

	batcherOpts := []embedding.BatcherOption{embedding.WithCache(cache)}
	if showProgress {
		batcherOpts = append(batcherOpts, embedding.WithProgress(embedding.ProgressFunc(printProgress)))
	}
	batcher := embedding.NewBatcher(provider, batcherOpts...)

	notify := func(msg string) {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
	adapter := reduce.NewAdapter(
		reduce.WithSeed(int64(cfg.Seed)),
		reduce.WithPerplexity(cfg.Perplexity),
		reduce.WithNotify(notify),
	)
	adapter.Register(reduce.PCA{})
	adapter.Register(reduce.NewRemoteReducer(cfg.ReducerURL(), reduce.MethodTSNE))
	adapter.Register(reduce.NewRemoteReducer(cfg.ReducerURL(), reduce.MethodUMAP))

	scorerOpts := []similarity.ScorerOption{}
	if key := config.ScorerAPIKey(); key != "" {
		scorerOpts = append(scorerOpts, similarity.WithScorerAPIKey(key))
	}
	scorer := similarity.NewRemoteScorer(cfg.ScorerURL(), cfg.Providers.ScorerModel, scorerOpts...)

	engineOpts := []similarity.EngineOption{similarity.WithStore(cache)}
	if showProgress {
		engineOpts = append(engineOpts, similarity.WithProgress(printProgress))
	}
	engine := similarity.NewEngine(scorer, engineOpts...)

	strategy, err := arc.ForName(cfg.Arc.Strategy)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	opts := pipeline.Options{
		Model:       cfg.Model,
		Weights:     cfg.Weights,
		Methods:     cfg.Methods,
		Dimensions:  cfg.Dimensions,
		Relax:       relaxOptions(cfg),
		ArcStrategy: strategy,
		ArcSteps:    cfg.Arc.Steps,
		OutputDir:   outputDir,
		Root:        root,
		Force:       buildForce,
		Notify:      notify,
	}
	if !buildSkipConfirm {
		opts.Confirm = confirmPairs
	}

	doc, stats, err := pipeline.New(batcher, adapter, engine, opts).Run(ctx, articles)
	if showProgress {
		clearProgress()
	}
	if err != nil {
		if errors.Is(err, pipeline.ErrCancelled) {
			reportCancelled(stats)
			return nil
		}
		exitWithError(buildExitCode(err), "building artifact: %v", err)
	}

	result := BuildResult{
		Status:          "complete",
		Articles:        stats.Articles,
		Pairs:           stats.Pairs,
		Checksum:        stats.Checksum,
		Artifact:        stats.ArtifactPath,
		EmbeddingDim:    doc.EmbeddingDim,
		Layouts:         stats.LayoutKeys,
		Model:           cfg.Model,
		DurationSeconds: time.Since(start).Seconds(),
	}
	if stats.Skipped {
		result.Status = "skipped"
		result.Reason = "artifact is up to date"
		for key := range doc.Articles[0].Layouts {
			result.Layouts = append(result.Layouts, key)
		}
		sort.Strings(result.Layouts)
	}
	for _, failed := range stats.Failed {
		result.Status = "partial"
		result.FailedLayouts = append(result.FailedLayouts, artifact.LayoutKey(failed.Method, failed.Dim))
	}

	if humanOutput {
		printBuildHuman(result, stats)
	} else {
		outputJSON(result)
	}

	if result.Status == "partial" {
		os.Exit(ExitStale)
	}
	return nil
}

// applyBuildFlags overlays explicit command-line flags on the loaded
// configuration.
func applyBuildFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("methods") {
		cfg.Methods = buildMethods
	}
	if cmd.Flags().Changed("dimensions") {
		cfg.Dimensions = buildDimensions
	}
	if buildModel != "" {
		cfg.Model = buildModel
	}
	if buildStrategy != "" {
		cfg.Arc.Strategy = buildStrategy
	}
	if buildSteps > 0 {
		cfg.Arc.Steps = buildSteps
	}
}

// relaxOptions derives the relaxation tuning from the configuration seed.
func relaxOptions(cfg *config.Config) relax.Options {
	opts := relax.DefaultOptions()
	opts.Seed = int64(cfg.Seed)
	return opts
}

// mustLoadArticles reads the input file, exits on error.
func mustLoadArticles(path string) []article.Article {
	articles, err := article.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			exitWithError(ExitNotFound, "input file %s not found", path)
		}
		exitWithError(ExitDataError, "loading articles: %v", err)
	}
	if len(articles) == 0 {
		exitWithError(ExitDataError, "no articles in %s", path)
	}
	return articles
}

// mustOpenCache opens the embedding and score cache, exits on error.
func mustOpenCache(root string) *cachedb.DB {
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	cache, err := cachedb.Open(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening cache: %v", err)
	}
	return cache
}

// confirmPairs asks on stderr and reads the answer from stdin.
func confirmPairs(pairs int) bool {
	fmt.Fprintf(os.Stderr, "About to score %d article pairs through the scoring sidecar. Continue? [y/N] ", pairs)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return isAffirmative(answer)
}

// isAffirmative interprets a confirmation prompt answer.
func isAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// buildExitCode maps pipeline failures to exit codes.
func buildExitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrNoPositiveWeight), errors.Is(err, config.ErrNegativeWeight),
		errors.Is(err, vector.ErrNoPositiveWeight):
		return ExitConfigError
	case errors.Is(err, pipeline.ErrNoArticles):
		return ExitDataError
	case errors.Is(err, pipeline.ErrAllReductionsFailed):
		return ExitProviderError
	case errors.Is(err, similarity.ErrAuth), errors.Is(err, similarity.ErrRateLimited):
		return ExitProviderError
	}

	var scoreErr *similarity.ScoreError
	if errors.As(err, &scoreErr) {
		return ExitProviderError
	}
	var reduceErr *reduce.ReductionError
	if errors.As(err, &reduceErr) {
		return ExitProviderError
	}
	var dimErr *vector.DimensionError
	if errors.As(err, &dimErr) {
		return ExitDataError
	}
	return ExitError
}

func reportCancelled(stats *pipeline.RunStats) {
	if humanOutput {
		fmt.Printf("Build cancelled before scoring %d pairs.\n", stats.Pairs)
		return
	}
	outputJSON(BuildResult{
		Status:   "cancelled",
		Articles: stats.Articles,
		Pairs:    stats.Pairs,
		Checksum: stats.Checksum,
	})
}

func printBuildHuman(result BuildResult, stats *pipeline.RunStats) {
	switch result.Status {
	case "skipped":
		fmt.Printf("Artifact is up to date: %s\n", result.Artifact)
		return
	case "partial":
		fmt.Printf("Build finished with failed reductions:\n")
		for _, failed := range stats.Failed {
			fmt.Printf("  %v\n", failed)
		}
	default:
		fmt.Printf("Build complete:\n")
	}
	fmt.Printf("  Articles: %d\n", result.Articles)
	fmt.Printf("  Pairs scored: %d\n", result.Pairs)
	fmt.Printf("  Layouts: %s\n", strings.Join(result.Layouts, ", "))
	fmt.Printf("  Embedding dim: %d\n", result.EmbeddingDim)
	fmt.Printf("  Artifact: %s\n", result.Artifact)
	fmt.Printf("  Time elapsed: %s\n", formatDuration(time.Duration(result.DurationSeconds*float64(time.Second))))
	fmt.Printf("  Model: %s\n", result.Model)
}
