// Package cmd provides the CLI commands for docsearch.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	flagDataDir string
	flagDebug   bool
)

// NewRootCmd creates the root command for the docsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Multi-tenant compound hybrid document retrieval core",
		Long: `docsearch ingests documents (text, PDF, CSV, images), extracts structured
metadata, and serves compound hybrid search (lexical + semantic + exact
filters) and prefix suggestions over them, scoped per tenant.`,
	}

	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: ~/.docsearch/data)")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSuggestCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
