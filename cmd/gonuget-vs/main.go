package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/cli"
	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/commands"
)

// Version information (set via ldflags during build)
var (
	version = "0.0.0-dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date
	cli.BuiltBy = builtBy
	cli.SetupVersion()

	for _, cmd := range commands.All(cli.Console) {
		cli.AddCommand(cmd)
	}

	// Interrupts cancel the running operation; packages already
	// materialized stay in place.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	_ = cli.Shutdown(context.Background())

	if err != nil {
		cli.Console.Error("%s", commands.Describe(err))
		os.Exit(commands.ExitCode(err))
	}
}
