package cli

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nudger/internal/app"
)

// TickOptions holds flags for the tick command.
type TickOptions struct {
	*RootOptions
	Seed    string
	Now     string
	Journal bool
}

// NewTickCommand creates the one-shot evaluation command.
func NewTickCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TickOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one evaluation pass and print the report",
		Long: `Load a seed fixture, run a single evaluation pass and print the report as
JSON. With --now the run is deterministic: fixture ages and the pass both
use that instant.

Example:
  nudger tick --seed ./fixtures/tuesday.yaml --now 2024-03-12T12:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTick(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Seed, "seed", "", "seed fixture (overrides seed.path)")
	cmd.Flags().StringVar(&opts.Now, "now", "", "evaluation instant, RFC3339 (default: current time)")
	cmd.Flags().BoolVar(&opts.Journal, "journal", false, "write appended reminders to the configured journal")
	return cmd
}

func runTick(cmd *cobra.Command, opts *TickOptions) error {
	now := time.Now()
	if s := strings.TrimSpace(opts.Now); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --now", err)
		}
		now = t
	}

	a, err := app.New(app.Options{
		ConfigPath: opts.ConfigPath,
		SeedPath:   opts.Seed,
		Now:        func() time.Time { return now },
		NoJournal:  !opts.Journal,
		LogWriter:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "init", err)
	}
	defer a.Close()

	rep := a.Tick(cmd.Context(), now)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return WrapExitError(ExitFailure, "write report", err)
	}
	return nil
}
