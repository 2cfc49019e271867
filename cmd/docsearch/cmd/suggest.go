package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSuggestCmd() *cobra.Command {
	var (
		tenantID string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "suggest [prefix]",
		Short: "List prefix suggestions from the suggestion index",
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

			suggestions, err := a.suggest.Suggest(cmd.Context(), tenantID, args[0], limit)
			if err != nil {
				return fmt.Errorf("suggest failed: %w", err)
			}

			out := cmd.OutOrStdout()
			for i, s := range suggestions {
				fmt.Fprintf(out, "%2d. %s (%s, score=%.3f)\n", i+1, s.Term, s.Kind, s.Score)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum suggestions")

	return cmd
}
