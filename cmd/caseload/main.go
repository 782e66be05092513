/*
main.go - Application entry point

PURPOSE:
  Runs the caseload command line. See cli/cli.go for the command tree.

EXAMPLES:
  # Start the API with a file database
  ./caseload serve --db ./data/caseload.db

  # Load a demo and try a trigger from the shell
  ./caseload scenario deactivation
  ./caseload deactivate U4 --actor admin

SEE ALSO:
  - cli/serve.go: Server startup and graceful shutdown
  - config/config.go: Configuration file and environment
*/
package main

import (
	"fmt"
	"os"

	"github.com/warp/caseload-engine/cli"
)

func main() {
	if err := cli.BuildCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
