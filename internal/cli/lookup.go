package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvfarias/agrobook/internal/ledger"
	"github.com/mvfarias/agrobook/internal/lookup"
	"github.com/mvfarias/agrobook/internal/store"
)

// NewLookupCommand creates the lookup command: resolve a counterparty
// name in the public tax registry and upsert it into the profile's
// store. Responses are cached, so repeating an identifier never hits
// the registry twice.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <cnpj-or-cpf>",
		Short: "Resolve a counterparty by tax id and save it locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digits := ledger.OnlyDigits(args[0])
			var (
				kind   lookup.Kind
				cpKind ledger.CounterpartyKind
			)
			switch {
			case ledger.ValidCNPJ(digits):
				kind, cpKind = lookup.KindCNPJ, ledger.CounterpartyLegal
			case ledger.ValidCPF(digits):
				kind, cpKind = lookup.KindCPF, ledger.CounterpartyNatural
			default:
				return fmt.Errorf("%q is not a valid CNPJ or CPF", args[0])
			}

			paths, err := resolvePaths(rootOpts)
			if err != nil {
				return err
			}
			rec, err := lookup.New(paths.LookupCache).Lookup(kind, digits)
			if err != nil {
				return err
			}
			name := rec.DisplayName()
			if name == "" {
				return fmt.Errorf("registry returned no name for %s", digits)
			}

			st, err := store.Open(paths.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			cp := &ledger.Counterparty{TaxID: digits, Name: name, Kind: cpKind}
			id, err := st.UpsertCounterparty(cp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "counterparty %d: %s\n", id, name)
			return nil
		},
	}
}
