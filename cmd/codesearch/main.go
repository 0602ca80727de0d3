// Command codesearch is a thin CLI front end over the codesearch library:
// index a codebase, reindex it after changes, search it, inspect indexing
// status, and clear an index.
package main

import (
	"os"

	"github.com/aman-cerp/codesearch/cmd/codesearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
