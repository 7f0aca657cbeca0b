// Command fdn normalizes file and directory names and reverses the renames
// it recorded.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/fdn/internal/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = ""

func main() {
	if version != "" {
		cli.Version = version
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fdn: %v\n", err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
