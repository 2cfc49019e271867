package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var (
		tenantID   string
		resourceID string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report chunk IDs missing from the lexical or vector index for a resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" || resourceID == "" {
				return fmt.Errorf("--tenant and --resource are required")
			}

			a, err := newApp(flagDataDir, flagDebug)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.checker.Check(cmd.Context(), tenantID, resourceID)
			if err != nil {
				return fmt.Errorf("consistency check failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(report.MissingFromLexical) == 0 && len(report.MissingFromVector) == 0 {
				fmt.Fprintln(out, "consistent")
				return nil
			}
			fmt.Fprintf(out, "missing from lexical index: %v\n", report.MissingFromLexical)
			fmt.Fprintf(out, "missing from vector index: %v\n", report.MissingFromVector)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&resourceID, "resource", "", "resource id (required)")

	return cmd
}
