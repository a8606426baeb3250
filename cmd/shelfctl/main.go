// shelfctl - terminal client for the Shelf file service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shelf-labs/shelfctl/internal/cli"
)

// Version information - injected via LDFLAGS for releases.
var (
	Version   = "v0.1.0-dev"
	BuildTime = "unknown"
)

func main() {
	cli.Version = Version
	cli.BuildTime = BuildTime

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
