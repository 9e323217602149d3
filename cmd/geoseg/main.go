// Command geoseg computes and classifies dam instrumentation readings.
package main

import (
	"fmt"
	"os"

	"github.com/joaolima7/geosegbar/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
