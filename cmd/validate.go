package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newValidateCmd creates the 'validate' subcommand, which checks that
// every active source declaring a feed actually serves a parseable,
// non-empty one.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the feeds of all active sources",

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			sources, err := a.Sources.ListActive(cmd.Context())
			if err != nil {
				return fmt.Errorf("list active sources: %w", err)
			}

			checked, failed := 0, 0
			for _, src := range sources {
				if !src.HasFeed || src.FeedURL == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "SKIP  %s (no feed)\n", src.Name)
					continue
				}
				checked++
				if err := a.Feeds.Validate(cmd.Context(), src.FeedURL); err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s: %v\n", src.Name, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK    %s\n", src.Name)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d feeds failed validation", failed, checked)
			}
			return nil
		},
	}
}
