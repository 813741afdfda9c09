package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvfarias/agrobook/internal/bridge"
	"github.com/mvfarias/agrobook/internal/ledger"
	"github.com/mvfarias/agrobook/internal/remote"
	"github.com/mvfarias/agrobook/internal/store"
)

// NewPullCommand creates the pull command: fetch remote entries for a
// date range and mirror them into the local store, last write by
// identifier winning.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Mirror remote ledger entries into the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromOrd, toOrd, err := ordRange(from, to)
			if err != nil {
				return err
			}
			paths, err := resolvePaths(rootOpts)
			if err != nil {
				return err
			}
			st, err := store.Open(paths.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			cfg, err := remote.LoadConfig()
			if err != nil {
				return err
			}
			b := bridge.New(func(ctx context.Context) (bridge.Session, error) {
				return remote.Dial(ctx, cfg)
			})
			if err := b.Init(cmd.Context()); err != nil {
				return err
			}
			defer b.Shutdown()

			v, err := b.Submit(func(ctx context.Context, s bridge.Session) (any, error) {
				return s.(*remote.Client).FetchEntries(ctx, fromOrd, toOrd)
			})
			if err != nil {
				return err
			}
			rows := v.([]remote.Row)

			for _, r := range rows {
				entry := remote.ToLocalEntry(r)
				if err := st.ReplicateEntry(&entry); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pulled %d entries\n", len(rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date (dd/mm/yyyy)")
	cmd.Flags().StringVar(&to, "to", "", "end date (dd/mm/yyyy)")
	return cmd
}

// ordRange converts the optional date flags into an ordinal range,
// defaulting to the whole history.
func ordRange(from, to string) (int, int, error) {
	fromOrd, toOrd := 0, 99999999
	if from != "" {
		ord, ok := ledger.DateOrdOf(from)
		if !ok {
			return 0, 0, fmt.Errorf("unrecognized date %q", from)
		}
		fromOrd = ord
	}
	if to != "" {
		ord, ok := ledger.DateOrdOf(to)
		if !ok {
			return 0, 0, fmt.Errorf("unrecognized date %q", to)
		}
		toOrd = ord
	}
	if fromOrd > toOrd {
		return 0, 0, fmt.Errorf("date range starts after it ends")
	}
	return fromOrd, toOrd, nil
}
