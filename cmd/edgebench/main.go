// Command edgebench runs clock-synchronized verification scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/edgebench/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
