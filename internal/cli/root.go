package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the nudger command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nudger",
		Short: "Reminder scheduler for school invitations and messages",
		Long: `nudger evaluates candidates on a weekly schedule and appends at most one
reminder per candidate per tick for unanswered invitations and unread
messages, throttled to one reminder a day and three a week.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (yaml or json)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTickCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	return cmd
}
