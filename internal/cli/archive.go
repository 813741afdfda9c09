package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvfarias/agrobook/internal/archive"
)

// NewArchiveCommand creates the archive command: produce today's
// compressed copy of the profile's store, unless one already exists.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Produce today's compressed copy of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := resolvePaths(rootOpts)
			if err != nil {
				return err
			}
			a := &archive.Archiver{
				StorePath: paths.Store,
				DestDir:   paths.ArchiveDir,
				StatePath: paths.StateFile,
			}
			dest, err := a.Run()
			if err != nil {
				return err
			}
			if dest == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to archive")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived to %s\n", dest)
			return nil
		},
	}
}
