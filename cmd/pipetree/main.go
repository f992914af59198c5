// Command pipetree runs and inspects composable pipeline trees.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/pipetree/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
