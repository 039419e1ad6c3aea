package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daylanKifky/umap-cv/internal/artifact"
	"github.com/daylanKifky/umap-cv/internal/checksum"
	"github.com/daylanKifky/umap-cv/internal/pipeline"
)

var (
	checkInput      string
	checkOutput     string
	checkMethods    []string
	checkDimensions []int
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkInput, "input", "i", "", "Articles file (JSON array or JSONL)")
	checkCmd.MarkFlagRequired("input")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "Output directory (default from config)")
	checkCmd.Flags().StringSliceVar(&checkMethods, "methods", nil, "Reduction methods to require")
	checkCmd.Flags().IntSliceVar(&checkDimensions, "dimensions", nil, "Target dimensions to require")
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Status   string `json:"status"`
	Articles int    `json:"articles"`
	Checksum string `json:"checksum"`
	Artifact string `json:"artifact,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether the artifact covers an article file",
	Long: `Check whether the latest built artifact still covers the given
articles and the configured layouts.

Exits 0 when the artifact is current and 6 when it is missing or stale,
so build steps can be gated in scripts and CI.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	cfg := mustLoadConfig(root)
	if cmd.Flags().Changed("methods") {
		cfg.Methods = checkMethods
	}
	if cmd.Flags().Changed("dimensions") {
		cfg.Dimensions = checkDimensions
	}
	articles := mustLoadArticles(checkInput)

	outputDir := cfg.OutputPath(root)
	if checkOutput != "" {
		outputDir = checkOutput
	}

	itemSums := checksum.Items(articles, cfg.Weights)
	result := CheckResult{
		Articles: len(articles),
		Checksum: checksum.Batch(itemSums),
	}

	manifest, err := artifact.ReadManifest(outputDir)
	if err != nil {
		result.Status = "missing"
		result.Reason = fmt.Sprintf("no manifest in %s", outputDir)
		reportCheck(result)
		os.Exit(ExitStale)
	}
	result.Artifact = manifest.Latest

	doc, err := artifact.Load(filepath.Join(outputDir, manifest.Latest))
	if err != nil {
		result.Status = "missing"
		result.Reason = fmt.Sprintf("artifact %s unreadable: %v", manifest.Latest, err)
		reportCheck(result)
		os.Exit(ExitStale)
	}

	ok, reason := pipeline.ShouldSkip(doc, itemSums, cfg.Methods, cfg.Dimensions)
	if !ok {
		result.Status = "stale"
		result.Reason = reason
		reportCheck(result)
		os.Exit(ExitStale)
	}

	result.Status = "current"
	reportCheck(result)
	return nil
}

func reportCheck(result CheckResult) {
	if !humanOutput {
		outputJSON(result)
		return
	}

	fmt.Printf("Artifact status: %s\n", result.Status)
	fmt.Printf("  Articles: %d\n", result.Articles)
	fmt.Printf("  Batch checksum: %s\n", result.Checksum)
	if result.Artifact != "" {
		fmt.Printf("  Artifact: %s\n", result.Artifact)
	}
	if result.Reason != "" {
		fmt.Printf("  Reason: %s\n", result.Reason)
	}
	if result.Status != "current" {
		fmt.Printf("\nRun 'umapcv build -i <articles>' to rebuild.\n")
	}
}
