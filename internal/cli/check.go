package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mvfarias/agrobook/internal/store"
)

// NewCheckCommand creates the check command: open (and migrate) the
// profile's store and print a short summary. Running it on every
// deploy is cheap because every migration step is idempotent.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Open the profile's store, applying any pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := resolvePaths(rootOpts)
			if err != nil {
				return err
			}

			slog.Info("opening store", "path", paths.Store)
			st, err := store.Open(paths.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			balances, err := st.AccountBalances()
			if err != nil {
				return err
			}
			total, err := st.TotalBalance()
			if err != nil {
				return err
			}
			minOrd, maxOrd, ok, err := st.DateOrdRange()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "store: %s\n", paths.Store)
			fmt.Fprintf(cmd.OutOrStdout(), "accounts: %d\n", len(balances))
			fmt.Fprintf(cmd.OutOrStdout(), "total balance: %s\n", total)
			if ok {
				fmt.Fprintf(cmd.OutOrStdout(), "entries from %d to %d\n", minOrd, maxOrd)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no entries yet")
			}
			return nil
		},
	}
}

func resolvePaths(rootOpts *RootOptions) (ProfilePaths, error) {
	pf, err := LoadProfiles(rootOpts.Profiles)
	if err != nil {
		return ProfilePaths{}, err
	}
	return pf.Resolve(rootOpts.Profile)
}
