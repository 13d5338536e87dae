// Command nscgen is the CLI entrypoint: it builds the root cobra command
// and translates a returned error into the process exit code the cli
// package's ExitError convention defines.
package main

import (
	"fmt"
	"os"

	"github.com/nscgen/nscgen/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
