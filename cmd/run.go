package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRunCmd creates the 'run' subcommand, a scrape followed by a
// dispatch in one invocation.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: scrape, then select and dispatch",

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := a.Orchestrator.RunAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("run pipeline: %w", err)
			}
			return printSummary(cmd, summary)
		},
	}
}
