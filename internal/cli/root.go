package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Profile  string
	Profiles string // path to the profiles file
}

// NewRootCommand creates the root command for the agrobook CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "agrobook",
		Short: "Rural-producer cash book with cloud synchronization",
		Long: `agrobook keeps a rural producer's cash book in an embedded SQLite
store and mirrors it against a remote Postgres backend, including a
realtime change feed for remote edits.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Profile, "profile", "", "producer profile (defaults to the profiles file default)")
	cmd.PersistentFlags().StringVar(&opts.Profiles, "profiles", "profiles.yaml", "path to the profiles file")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewPushCommand(opts))
	cmd.AddCommand(NewPullCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewLookupCommand(opts))
	cmd.AddCommand(NewArchiveCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))

	return cmd
}
