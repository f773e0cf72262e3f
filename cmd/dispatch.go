package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newDispatchCmd creates the 'dispatch' subcommand, which selects stored
// candidates and submits them to the workflow platform.
func newDispatchCmd() *cobra.Command {
	var (
		maxItems     int
		minRelevance float64
	)

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Select stored candidates and submit generation jobs",
		Long: `Reads the scored candidate pool, selects a bounded diverse subset
within the remaining daily quota, and submits one generation job per
selected item. Prints the run summary as JSON.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-items") {
				maxItems = a.Config.Selection.MaxItemsPerRun
			}
			if !cmd.Flags().Changed("min-relevance") {
				minRelevance = a.Config.Selection.MinRelevance
			}
			summary, err := a.Orchestrator.SelectAndDispatch(cmd.Context(), maxItems, minRelevance)
			if err != nil {
				return fmt.Errorf("select and dispatch: %w", err)
			}
			return printSummary(cmd, summary)
		},
	}

	cmd.Flags().IntVar(&maxItems, "max-items", 0, "maximum items to dispatch (default from config)")
	cmd.Flags().Float64Var(&minRelevance, "min-relevance", 0, "relevance floor in [0,1] (default from config)")

	return cmd
}
