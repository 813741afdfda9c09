package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mvfarias/agrobook/internal/bridge"
	"github.com/mvfarias/agrobook/internal/ledger"
	"github.com/mvfarias/agrobook/internal/remote"
	"github.com/mvfarias/agrobook/internal/store"
)

// pushChunkSize bounds how many entries one submitted operation
// carries, so a huge ledger does not monopolize the bridge worker.
const pushChunkSize = 500

// NewPushCommand creates the push command: one-time bulk move of the
// local ledger to the remote backend, upserting by identifier so the
// command is safe to re-run.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Bulk-upload the local ledger to the remote backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			minOrd, maxOrd, ok, err := st.DateOrdRange()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to push")
				return nil
			}

			entries, err := st.ListEntries(minOrd, maxOrd, store.Filter{})
			if err != nil {
				return err
			}

			pushed := 0
			for start := 0; start < len(entries); start += pushChunkSize {
				end := min(start+pushChunkSize, len(entries))
				chunk := entries[start:end]
				if _, err := b.Submit(pushChunk(chunk)); err != nil {
					return err
				}
				pushed += len(chunk)
				slog.Info("pushed entries", "count", pushed, "total", len(entries))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "pushed %d entries\n", pushed)
			return nil
		},
	}
}

// pushChunk builds the bridge operation upserting one chunk of
// entries.
func pushChunk(chunk []ledger.Entry) bridge.Op {
	return func(ctx context.Context, s bridge.Session) (any, error) {
		client := s.(*remote.Client)
		for _, e := range chunk {
			if err := client.UpsertEntry(ctx, remote.ToRemoteRow(e)); err != nil {
				return nil, err
			}
		}
		return len(chunk), nil
	}
}
