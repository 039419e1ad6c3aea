package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/daylanKifky/umap-cv/internal/vecindex"
)

var similarLimit int

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().IntVarP(&similarLimit, "limit", "l", DefaultSearchLimit, "Maximum number of results")
}

// SimilarSource is the source article info for the similar command.
type SimilarSource struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// SimilarResponse is the response for the similar command.
type SimilarResponse struct {
	Source  SimilarSource           `json:"source"`
	Similar []vecindex.SearchResult `json:"similar"`
	Total   int                     `json:"total"`
	Model   string                  `json:"model"`
}

var similarCmd = &cobra.Command{
	Use:   "similar <article-id>",
	Short: "Find articles similar to a specific article",
	Long: `Find articles whose combined embedding sits closest to the given
article. The source article is excluded from the results.

Requires the vector index built by 'umapcv build'.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func runSimilar(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		exitWithError(ExitError, "article id must be an integer, got %q", args[0])
	}

	root := mustFindRepository()
	cfg := mustLoadConfig(root)
	idx := mustLoadIndex(root)

	warnIfIndexStale(idx, cfg.OutputPath(root))

	results, err := idx.FindSimilar(id, similarLimit)
	if err != nil {
		if errors.Is(err, vecindex.ErrArticleNotIndexed) {
			exitWithError(ExitNotFound, "article %d is not in the vector index\n\nRebuild with 'umapcv build' if it was added recently.", id)
		}
		exitWithError(ExitError, "finding similar articles: %v", err)
	}

	var source SimilarSource
	source.ID = id
	for _, entry := range idx.Entries {
		if entry.ID == id {
			source.Title = entry.Title
			break
		}
	}

	if humanOutput {
		fmt.Printf("Articles similar to #%d\n", source.ID)
		fmt.Printf("%q\n\n", truncateString(source.Title, 70))
		printSearchResultsHuman(results)
	} else {
		outputJSON(SimilarResponse{
			Source:  source,
			Similar: results,
			Total:   len(results),
			Model:   idx.ModelName,
		})
	}

	return nil
}
