package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		tenantID string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run a compound hybrid search against the local instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}

			a, err := newApp(flagDataDir, flagDebug)
			if err != nil {
				return err
			}
			defer a.close()

			results, err := a.executor.Search(cmd.Context(), args[0], tenantID, limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "strategy=%s total=%d\n", results.Strategy, results.Total)
			for i, r := range results.Results {
				fmt.Fprintf(out, "%2d. [%s] score=%.3f resource=%s %s\n", i+1, r.MatchType, r.Score, r.ResourceID, r.OpenURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (required)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")

	return cmd
}
