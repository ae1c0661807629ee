// Command maxim compiles surface graphs into lifecycle procedures.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/maxim/internal/cli"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit code. Subcommands print
// their own errors.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
