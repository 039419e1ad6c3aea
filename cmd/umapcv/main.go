// Package main provides the umapcv CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/daylanKifky/umap-cv/internal/config"
	"github.com/daylanKifky/umap-cv/internal/embedding"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "umapcv",
	Short: "Semantic layout builder for article collections",
	Long: `umapcv turns a collection of articles into a spatial visualization
artifact: it embeds weighted text fields, projects the combined vectors
into 2D and 3D layouts, relaxes overlapping clusters, scores every
article pair with a cross-encoder and writes the result as a single
JSON document plus a searchable vector index.

Embeddings come from a local Ollama instance; t-SNE, UMAP and pair
scoring run on HTTP sidecars. All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// A .env next to the invocation can carry provider URLs and keys.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// getStartingDirectory returns the directory to start searching for a
// project. The UMAPCV_ROOT environment variable overrides the working
// directory.
func getStartingDirectory() (string, int) {
	if root := os.Getenv("UMAPCV_ROOT"); root != "" {
		return root, 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindRepository finds and validates the project root, exits on error.
func mustFindRepository() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	root, err := config.FindRepository(start)
	if err != nil {
		exitWithError(ExitConfigError, "no %s found in %s or any parent\n\nRun 'umapcv config init' to start a project here.", config.ConfigFile, start)
	}
	return root
}

// mustLoadConfig loads the project configuration, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "invalid config: %v", err)
	}
	return cfg
}

// mustValidateOllama checks that Ollama is reachable and optionally that
// the embedding model is pulled.
func mustValidateOllama(ctx context.Context, provider *embedding.OllamaProvider, checkModel bool) {
	if err := provider.IsAvailable(ctx); err != nil {
		exitWithError(ExitProviderError, "Ollama is not running\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai")
	}

	if checkModel {
		hasModel, err := provider.HasModel(ctx)
		if err != nil {
			exitWithError(ExitError, "checking model availability: %v", err)
		}
		if !hasModel {
			exitWithError(ExitProviderError, "embedding model %q not found\n\nRun 'ollama pull %s' to download it.", provider.ModelName(), provider.ModelName())
		}
	}
}

// newOllamaProvider builds the embedding provider from the resolved
// configuration. The vector width is only checked for the default model;
// other models report whatever width they produce.
func newOllamaProvider(cfg *config.Config) *embedding.OllamaProvider {
	opts := []embedding.OllamaOption{embedding.WithModel(cfg.Model)}
	if cfg.Model != embedding.DefaultModel {
		opts = append(opts, embedding.WithDimensions(0))
	}
	if host := cfg.OllamaHost(); host != "" {
		opts = append(opts, embedding.WithBaseURL(host))
	}
	return embedding.NewOllamaProvider(opts...)
}
