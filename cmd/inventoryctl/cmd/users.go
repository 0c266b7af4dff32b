package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/upb/catalog-inventory/services/users"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserSetActiveCmd())
	cmd.AddCommand(newUserSetRolesCmd())
	cmd.AddCommand(newUserListCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var (
		username string
		password string
		stdin    bool
		roles    []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username flag is required")
			}
			if len(roles) == 0 {
				return fmt.Errorf("at least one role must be specified using --role")
			}

			pw, err := resolvePassword(cmd.InOrStdin(), password, stdin)
			if err != nil {
				return err
			}

			return withBackend(cmd, func(ctx context.Context, b *backend) error {
				user, err := b.users.CreateUser(ctx, users.CreateUserInput{
					Username: username,
					Password: pw,
					Roles:    roles,
				})
				if err != nil {
					return fmt.Errorf("failed to create user: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s) with roles %s\n",
					user.Username, user.ID, strings.Join(user.Roles, ","))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username of the account")
	cmd.Flags().StringVar(&password, "password", "", "Password (use --stdin to avoid shell history)")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read the password from stdin")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role(s) to grant, e.g. ADMIN or USER (repeatable)")
	return cmd
}

func newUserSetActiveCmd() *cobra.Command {
	var (
		username string
		active   bool
	)

	cmd := &cobra.Command{
		Use:   "set-active",
		Short: "Enable or disable an account",
		Long: `Enable or disable an account. A disabled account cannot log in and its
outstanding tokens are rejected on their next use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username flag is required")
			}

			return withBackend(cmd, func(ctx context.Context, b *backend) error {
				if err := b.users.SetActive(ctx, username, active); err != nil {
					return fmt.Errorf("failed to update user: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %s active=%t\n", username, active)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username of the account")
	cmd.Flags().BoolVar(&active, "active", true, "Whether the account may authenticate")
	return cmd
}

func newUserSetRolesCmd() *cobra.Command {
	var (
		username string
		roles    []string
	)

	cmd := &cobra.Command{
		Use:   "set-roles",
		Short: "Replace the roles of an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username flag is required")
			}

			return withBackend(cmd, func(ctx context.Context, b *backend) error {
				if err := b.users.SetRoles(ctx, username, roles); err != nil {
					return fmt.Errorf("failed to set roles: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %s roles=%s\n", username, strings.Join(roles, ","))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username of the account")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role(s) the account should hold (repeatable)")
	return cmd
}

func newUserListCmd() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, b *backend) error {
				list, err := b.users.List(ctx, limit, offset)
				if err != nil {
					return fmt.Errorf("failed to list users: %w", err)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "USERNAME\tACTIVE\tROLES")
				for _, u := range list {
					fmt.Fprintf(w, "%s\t%t\t%s\n", u.Username, u.IsActive, strings.Join(u.Roles, ","))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of accounts to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of accounts to skip")
	return cmd
}
