// Command condscope resolves association condition names against a schema.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/condscope/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
