package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gitrdm/monomatch/internal/app"
	"github.com/gitrdm/monomatch/internal/cli"
)

// main is the entrypoint for the monomatch command.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:], os.Environ())
	stop()
	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses args and solves every problem file. Reports go to outW, logs to errW.
func run(ctx context.Context, outW, errW io.Writer, args, environ []string) error {
	cfg, shouldExit, err := cli.Parse(args, outW, environ)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}
	_, err = app.NewApp(outW, errW, cfg).Run(ctx)
	return err
}
