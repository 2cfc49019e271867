// Command docsearch is the operator CLI for the compound hybrid document
// retrieval core: ingest, search, suggest, and serve against a local
// instance, mirroring cmd/amanmcp's root/subcommand layout.
package main

import (
	"os"

	"github.com/docsearch-core/docsearch/cmd/docsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
