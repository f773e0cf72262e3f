package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newScrapeCmd creates the 'scrape' subcommand, which discovers and
// stores scored candidate items for every active source.
func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Fetch and score content from all active sources",
		Long: `Runs feed-first discovery with crawl fallback for every active source,
scores each discovered item for relevance, and stores it for later
selection. Prints the run summary as JSON.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := a.Orchestrator.ScrapeSources(cmd.Context())
			if err != nil {
				return fmt.Errorf("scrape sources: %w", err)
			}
			return printSummary(cmd, summary)
		},
	}
}
