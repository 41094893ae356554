// Command focusql compiles structured OmniFocus queries and mutations into
// automation scripts and runs them.
//
// Usage:
//
//	focusql query --entity task --mode today
//	focusql mutate complete --entity task --id abc123
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/focusql/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "focusql: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
