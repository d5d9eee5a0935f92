package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"railctl/cmd/railctl/cli"
	"railctl/internal/errors"
)

var version = "dev"

// Entry point for the application
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	rootCmd.Version = version
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.IsSessionExpired(err) {
			cli.PrintError(os.Stderr, "session expired, run `railctl login`")
		} else {
			cli.PrintError(os.Stderr, err.Error())
		}
		stop()
		os.Exit(1)
	}
}
