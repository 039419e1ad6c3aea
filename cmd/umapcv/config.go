package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daylanKifky/umap-cv/internal/config"
)

var configInitForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
}

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	Root        string             `json:"root"`
	Model       string             `json:"model"`
	Methods     []string           `json:"methods"`
	Dimensions  []int              `json:"dimensions"`
	Weights     map[string]float64 `json:"weights"`
	Output      string             `json:"output"`
	Seed        uint64             `json:"seed"`
	Perplexity  float64            `json:"perplexity"`
	ArcStrategy string             `json:"arc_strategy"`
	ArcSteps    int                `json:"arc_steps"`
	OllamaHost  string             `json:"ollama_host,omitempty"`
	ReducerURL  string             `json:"reducer_url"`
	ScorerURL   string             `json:"scorer_url"`
	ScorerModel string             `json:"scorer_model"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Show the configuration the other commands would run with: the
project file merged with defaults, plus provider URLs resolved from
environment variables, the project file and the global config.`,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	cfg := mustLoadConfig(root)

	response := ConfigResponse{
		Root:        root,
		Model:       cfg.Model,
		Methods:     cfg.Methods,
		Dimensions:  cfg.Dimensions,
		Weights:     cfg.Weights,
		Output:      cfg.Output,
		Seed:        cfg.Seed,
		Perplexity:  cfg.Perplexity,
		ArcStrategy: cfg.Arc.Strategy,
		ArcSteps:    cfg.Arc.Steps,
		OllamaHost:  cfg.OllamaHost(),
		ReducerURL:  cfg.ReducerURL(),
		ScorerURL:   cfg.ScorerURL(),
		ScorerModel: cfg.Providers.ScorerModel,
	}

	if !humanOutput {
		return outputJSON(response)
	}

	fmt.Printf("Project root: %s\n\n", response.Root)
	fmt.Printf("model:       %s\n", response.Model)
	fmt.Printf("methods:     %s\n", strings.Join(response.Methods, ", "))
	fmt.Printf("dimensions:  %s\n", joinInts(response.Dimensions))
	fmt.Printf("weights:\n")
	for _, field := range sortedKeys(response.Weights) {
		fmt.Printf("  %s: %g\n", field, response.Weights[field])
	}
	fmt.Printf("output:      %s\n", response.Output)
	fmt.Printf("seed:        %d\n", response.Seed)
	fmt.Printf("perplexity:  %g\n", response.Perplexity)
	fmt.Printf("arc:         %s, %d steps\n", response.ArcStrategy, response.ArcSteps)
	fmt.Printf("\nProviders:\n")
	if response.OllamaHost != "" {
		fmt.Printf("  ollama:  %s\n", response.OllamaHost)
	} else {
		fmt.Printf("  ollama:  (default)\n")
	}
	fmt.Printf("  reducer: %s\n", response.ReducerURL)
	fmt.Printf("  scorer:  %s (%s)\n", response.ScorerURL, response.ScorerModel)

	return nil
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file in the current directory",
	Long: `Write a default ` + config.ConfigFile + ` in the current directory,
marking it as a project root.`,
	RunE: runConfigInit,
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	path := config.ConfigPath(cwd)
	if _, err := os.Stat(path); err == nil && !configInitForce {
		exitWithError(ExitError, "%s already exists, use --force to overwrite", path)
	}

	cfg := config.Default()
	if err := cfg.Save(cwd); err != nil {
		exitWithError(ExitError, "writing config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Wrote %s\n", path)
	} else {
		outputJSON(StatusResponse{Status: "created", Path: path})
	}
	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
