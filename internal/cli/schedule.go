package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nudger/internal/app"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*RootOptions
	Count int
	From  string
	JSON  bool
}

// NewScheduleCommand creates the next-runs preview command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview the next evaluation ticks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchedule(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 6, "number of upcoming ticks")
	cmd.Flags().StringVar(&opts.From, "from", "", "preview from this RFC3339 instant (default: now)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print a JSON array")
	return cmd
}

func runSchedule(cmd *cobra.Command, opts *ScheduleOptions) error {
	if opts.Count <= 0 {
		return WrapExitError(ExitCommandError, "invalid --count", fmt.Errorf("must be > 0, got %d", opts.Count))
	}
	from := time.Now()
	if s := strings.TrimSpace(opts.From); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --from", err)
		}
		from = t
	}

	a, err := app.New(app.Options{
		ConfigPath: opts.ConfigPath,
		NoJournal:  true,
		LogWriter:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "init", err)
	}
	defer a.Close()

	runs, err := a.NextRuns(from, opts.Count)
	if err != nil {
		return WrapExitError(ExitCommandError, "schedule", err)
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		return json.NewEncoder(out).Encode(runs)
	}
	for _, t := range runs {
		if _, err := fmt.Fprintln(out, t.Format("Mon 2006-01-02 15:04:05 MST")); err != nil {
			return err
		}
	}
	return nil
}
