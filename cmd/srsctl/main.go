// Package main implements srsctl, a command line harness for the scheduling
// engine that reads and writes deck files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/phrazzld/scry-scheduler/internal/cli"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
)

func main() {
	cfg, err := config.LoadWithoutDatabase()
	if err != nil {
		fmt.Fprintf(os.Stderr, "srsctl: failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so that stdout stays parseable with --json
	l, err := logger.SetupWithWriter(cfg.Server, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "srsctl: failed to set up logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := cli.NewRootCmd(cfg, l)
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
