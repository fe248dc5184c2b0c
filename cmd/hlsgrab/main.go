package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Belphemur/HlsGrab/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes the CLI with args and returns the process exit code.
func run(ctx context.Context, args []string) int {
	root := newRootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	root.app.Close()
	if err != nil {
		logger := config.GetLogger()
		logger.Error().Err(err).Msg("Command failed")
		return 1
	}
	return 0
}
