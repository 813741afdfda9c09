package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvfarias/agrobook/internal/bridge"
	"github.com/mvfarias/agrobook/internal/remote"
	"github.com/mvfarias/agrobook/internal/store"
)

// ledgerTable is the remote table the change feed watches.
const ledgerTable = "ledger_entries"

// NewWatchCommand creates the watch command: subscribe to the remote
// change feed and mirror every remote mutation into the local store
// until interrupted.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Mirror remote ledger changes into the local store",
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
			dsn, err := cfg.DSN()
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

			ch := bridge.NewChannel(bridge.NewListener(dsn), b)
			if err := ch.Subscribe(ledgerTable, applyChange(st)); err != nil {
				return err
			}
			slog.Info("watching remote changes", "table", ledgerTable)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop
			slog.Info("stopping watch")
			return nil
		},
	}
}

// applyChange mirrors one remote mutation into the local store. It
// runs as the change-feed callback, so it only uses the store's normal
// transactional operations; the store's own locking is the only
// coordination with other writers.
func applyChange(st *store.Store) bridge.Callback {
	return func(ev bridge.Event) {
		kind := strings.ToUpper(ev.Kind)
		switch kind {
		case "DELETE":
			var rec struct {
				ID int64 `json:"id"`
			}
			if err := json.Unmarshal(ev.Record, &rec); err != nil || rec.ID == 0 {
				slog.Warn("undecodable delete event", "err", err)
				return
			}
			if err := st.DeleteEntry(rec.ID); err != nil {
				slog.Warn("mirroring delete failed", "id", rec.ID, "err", err)
			}
		case "INSERT", "UPDATE", "*":
			row, err := remote.DecodeFeedRecord(ev.Record)
			if err != nil {
				slog.Warn("undecodable change event", "kind", kind, "err", err)
				return
			}
			entry := remote.ToLocalEntry(row)
			// Last write by identifier wins: the replicated row
			// overwrites any local row with the same id wholesale.
			if err := st.ReplicateEntry(&entry); err != nil {
				slog.Warn("mirroring change failed", "id", entry.ID, "err", err)
			}
		default:
			slog.Debug("ignoring change event", "kind", kind)
		}
	}
}
