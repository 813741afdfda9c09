package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mvfarias/agrobook/internal/bridge"
	"github.com/mvfarias/agrobook/internal/remote"
)

// NewReportCommand creates the report command: list remote entries for
// a date range with property and counterparty names resolved.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "List remote ledger entries with resolved names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromOrd, toOrd, err := ordRange(from, to)
			if err != nil {
				return err
			}
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

			v, err := b.Submit(fetchTuples(fromOrd, toOrd))
			if err != nil {
				return err
			}
			tuples := v.([]remote.LocalTuple)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tKIND\tPROPERTY\tCOUNTERPARTY\tMEMO\tBALANCE")
			for _, tp := range tuples {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					tp.ID, tp.Date, tp.Kind, tp.Property, tp.Counterparty, tp.Memo, tp.SignedBalance)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date (dd/mm/yyyy)")
	cmd.Flags().StringVar(&to, "to", "", "end date (dd/mm/yyyy)")
	return cmd
}

// fetchTuples builds the bridge operation that fetches the rows and
// resolves every referenced name in two batch queries.
func fetchTuples(fromOrd, toOrd int) bridge.Op {
	return func(ctx context.Context, s bridge.Session) (any, error) {
		client := s.(*remote.Client)
		rows, err := client.FetchEntries(ctx, fromOrd, toOrd)
		if err != nil {
			return nil, err
		}

		propSet := make(map[int64]bool)
		cptySet := make(map[int64]bool)
		for _, r := range rows {
			propSet[r.PropertyID] = true
			if r.CounterpartyID.Valid {
				cptySet[r.CounterpartyID.Int64] = true
			}
		}
		propNames, err := client.PropertyNames(ctx, setKeys(propSet))
		if err != nil {
			return nil, err
		}
		cptyNames, err := client.CounterpartyNames(ctx, setKeys(cptySet))
		if err != nil {
			return nil, err
		}

		tuples := make([]remote.LocalTuple, 0, len(rows))
		for _, r := range rows {
			tuples = append(tuples, remote.ToLocalTuple(r, propNames, cptyNames))
		}
		return tuples, nil
	}
}

func setKeys(set map[int64]bool) []int64 {
	keys := make([]int64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	return keys
}
