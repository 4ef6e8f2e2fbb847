package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nudger/internal/app"
)

const shutdownTimeout = 10 * time.Second

// NewRunCommand creates the daemon command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler daemon",
		Long: `Load the config, seed the store and fire evaluation ticks at the configured
weekly slots until SIGINT or SIGTERM. The config file is watched and
reloaded on change.

Example:
  nudger run --config ./nudger.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), rootOpts)
		},
	}
}

func runDaemon(parent context.Context, opts *RootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	a, err := app.New(app.Options{ConfigPath: opts.ConfigPath})
	if err != nil {
		return WrapExitError(ExitCommandError, "init", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	if err := a.Start(parent); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return WrapExitError(ExitFailure, "start", err)
	}

	reason := app.StopAppStop
	select {
	case sig := <-sigs:
		reason = app.StopSIGINT
		if sig == syscall.SIGTERM {
			reason = app.StopSIGTERM
		}
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = a.Stop(ctx, reason)

	if reason == app.StopFatalError {
		return WrapExitError(ExitFailure, "fatal", a.Err())
	}
	return nil
}
