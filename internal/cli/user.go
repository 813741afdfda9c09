package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mvfarias/agrobook/internal/auth"
	"github.com/mvfarias/agrobook/internal/bridge"
	"github.com/mvfarias/agrobook/internal/remote"
)

// NewUserCommand creates the user command group managing the profile's
// local credentials file.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the profile's local users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <username> <password>",
		Short: "Register a local user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := loadCredentials(rootOpts)
			if err != nil {
				return err
			}
			if err := creds.Register(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s registered\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <username>",
		Short: "Remove a local user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := loadCredentials(rootOpts)
			if err != nil {
				return err
			}
			if err := creds.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s removed\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the registered local users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := loadCredentials(rootOpts)
			if err != nil {
				return err
			}
			users := creds.Users()
			sort.Strings(users)
			for _, u := range users {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remote-add <username> <password>",
		Short: "Create the user on the remote backend",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd, func(ctx context.Context, client *remote.Client) error {
				id, err := client.CreateUser(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "remote user %s created (id %d)\n", args[0], id)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remote-check <username> <password>",
		Short: "Verify credentials against the remote backend",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd, func(ctx context.Context, client *remote.Client) error {
				ok, err := client.VerifyUser(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "denied")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remote-login <username> <password>",
		Short: "Log in against the remote backend and print the account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd, func(ctx context.Context, client *remote.Client) error {
				u, ok, err := client.Login(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "denied")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (id %d)\n", u.Username, u.ID)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-admin <password>",
		Short: "Replace the administrator password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := loadCredentials(rootOpts)
			if err != nil {
				return err
			}
			if err := creds.SetAdminPassword(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "administrator password updated")
			return nil
		},
	})

	return cmd
}

func loadCredentials(rootOpts *RootOptions) (*auth.Credentials, error) {
	paths, err := resolvePaths(rootOpts)
	if err != nil {
		return nil, err
	}
	return auth.Load(paths.Credentials)
}

// withRemote runs fn against the remote session through a short-lived
// bridge.
func withRemote(cmd *cobra.Command, fn func(ctx context.Context, client *remote.Client) error) error {
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

	_, err = b.Submit(func(ctx context.Context, s bridge.Session) (any, error) {
		return nil, fn(ctx, s.(*remote.Client))
	})
	return err
}
