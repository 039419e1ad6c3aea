package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daylanKifky/umap-cv/internal/arc"
)

var (
	arcFrom     string
	arcTo       string
	arcSteps    int
	arcStrategy string
)

func init() {
	rootCmd.AddCommand(arcCmd)

	arcCmd.Flags().StringVar(&arcFrom, "from", "", "Start point as comma-separated coordinates")
	arcCmd.MarkFlagRequired("from")
	arcCmd.Flags().StringVar(&arcTo, "to", "", "End point as comma-separated coordinates")
	arcCmd.MarkFlagRequired("to")
	arcCmd.Flags().IntVar(&arcSteps, "steps", arc.DefaultSteps, "Arc refinement steps")
	arcCmd.Flags().StringVar(&arcStrategy, "strategy", arc.StrategySubdivision, "Arc strategy: subdivision, catmullrom")
}

// ArcResponse is the response for the arc command.
type ArcResponse struct {
	Strategy string      `json:"strategy"`
	Steps    int         `json:"steps"`
	Vertices [][]float64 `json:"vertices"`
	Tangent  []float64   `json:"tangent"`
}

var arcCmd = &cobra.Command{
	Use:   "arc --from x,y,z --to x,y,z",
	Short: "Compute the arc geometry between two layout points",
	Long: `Compute the curved connector geometry between two layout points,
exactly as the build pipeline attaches it to links. Useful for tuning
arc strategies and steps against a renderer without a full build.`,
	RunE: runArc,
}

func runArc(cmd *cobra.Command, args []string) error {
	from, err := parsePoint(arcFrom)
	if err != nil {
		exitWithError(ExitError, "parsing --from: %v", err)
	}
	to, err := parsePoint(arcTo)
	if err != nil {
		exitWithError(ExitError, "parsing --to: %v", err)
	}
	// Tangent frames only exist in 3D; links never attach to 2D layouts.
	if len(from) != 3 || len(to) != 3 {
		exitWithError(ExitError, "points must have 3 coordinates, got %d and %d", len(from), len(to))
	}

	strategy, err := arc.ForName(arcStrategy)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	response := ArcResponse{
		Strategy: strategy.Name(),
		Steps:    arcSteps,
		Vertices: strategy.Connect(from, to, arcSteps),
		Tangent:  arc.Tangent(from, to),
	}

	if humanOutput {
		fmt.Printf("Arc (%s, %d steps): %d vertices\n", response.Strategy, response.Steps, len(response.Vertices))
		for _, v := range response.Vertices {
			fmt.Printf("  %v\n", v)
		}
		fmt.Printf("Tangent: %v\n", response.Tangent)
	} else {
		outputJSON(response)
	}

	return nil
}

// parsePoint parses "1.5,-2,0.25" into coordinates.
func parsePoint(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	point := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", part)
		}
		point = append(point, v)
	}
	return point, nil
}
