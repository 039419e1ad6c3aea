package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daylanKifky/umap-cv/internal/artifact"
	"github.com/daylanKifky/umap-cv/internal/vecindex"
)

var (
	searchLimit     int
	searchThreshold float64
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", DefaultSearchLimit, "Maximum number of results")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", DefaultSearchThreshold, "Minimum similarity threshold (0.0-1.0)")
}

// SearchResponse is the response for the search command.
type SearchResponse struct {
	Query     string                  `json:"query"`
	Results   []vecindex.SearchResult `json:"results"`
	Total     int                     `json:"total"`
	Threshold float64                 `json:"threshold"`
	Model     string                  `json:"model"`
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search articles by semantic similarity",
	Long: `Search articles using semantic similarity over the combined field
embeddings. The query is embedded with the same model that built the
index, so conceptually related articles match without shared words.

Requires the vector index built by 'umapcv build'.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.TrimSpace(args[0])

	if query == "" {
		exitWithError(ExitError, "search query cannot be empty")
	}

	root := mustFindRepository()
	cfg := mustLoadConfig(root)
	idx := mustLoadIndex(root)

	warnIfIndexStale(idx, cfg.OutputPath(root))

	provider := newOllamaProvider(cfg)
	mustValidateOllama(ctx, provider, false)

	queryVec, err := provider.Embed(ctx, query)
	if err != nil {
		exitWithError(ExitProviderError, "embedding query: %v", err)
	}

	results := idx.Search(queryVec, searchLimit, searchThreshold)

	if humanOutput {
		fmt.Printf("Search: %q\n", query)
		fmt.Printf("Found %d articles (threshold: %.1f)\n\n", len(results), searchThreshold)
		printSearchResultsHuman(results)
	} else {
		outputJSON(SearchResponse{
			Query:     query,
			Results:   results,
			Total:     len(results),
			Threshold: searchThreshold,
			Model:     idx.ModelName,
		})
	}

	return nil
}

// mustLoadIndex loads the vector index, exits on error.
func mustLoadIndex(root string) *vecindex.Index {
	idx, err := vecindex.Load(root)
	if err != nil {
		if errors.Is(err, vecindex.ErrIndexNotFound) {
			exitWithError(ExitConfigError, "Vector index not found\n\nRun 'umapcv build' to create it.")
		}
		exitWithError(ExitError, "loading index: %v", err)
	}
	return idx
}

// warnIfIndexStale compares the index against the latest artifact manifest
// and warns when they drifted apart.
func warnIfIndexStale(idx *vecindex.Index, outputDir string) {
	manifest, err := artifact.ReadManifest(outputDir)
	if err != nil {
		return
	}
	if manifest.Checksum != idx.Checksum {
		fmt.Fprintf(os.Stderr, "warning: vector index was built for a different batch; run 'umapcv build' to refresh it\n")
	}
}

// printSearchResultsHuman prints search results in human-readable format.
func printSearchResultsHuman(results []vecindex.SearchResult) {
	for i, r := range results {
		fmt.Printf("%d. [%.2f] #%d %s\n", i+1, r.Similarity, r.ID, truncateString(r.Title, 70))
	}
}
