package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sekkot/portal/internal/authz"
	"github.com/sekkot/portal/internal/repository"
	"github.com/spf13/cobra"
)

func AdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin flags",
	}

	cmd.AddCommand(adminSetCmd("grant", "Grant admin access to an account", true))
	cmd.AddCommand(adminSetCmd("revoke", "Revoke admin access from an account", false))
	cmd.AddCommand(adminListCmd())
	return cmd
}

func adminSetCmd(use, short string, isAdmin bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			email := strings.ToLower(strings.TrimSpace(args[0]))
			user, err := repository.NewUserRepository(database).ByEmail(cmd.Context(), email)
			if errors.Is(err, repository.ErrUserNotFound) {
				return fmt.Errorf("no account for %s", email)
			}
			if err != nil {
				return fmt.Errorf("failed to look up account: %w", err)
			}

			resolver := authz.NewResolver(repository.NewAdminRepository(database))
			if isAdmin {
				err = resolver.Grant(cmd.Context(), user.ID)
			} else {
				err = resolver.Revoke(cmd.Context(), user.ID)
			}
			if err != nil {
				return fmt.Errorf("failed to update admin flag: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: is_admin=%t\n", email, isAdmin)
			return nil
		},
	}
}

func adminListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			admins, err := authz.NewResolver(repository.NewAdminRepository(database)).Admins(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list admins: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(admins) == 0 {
				fmt.Fprintln(out, "no admins")
				return nil
			}
			for _, a := range admins {
				fmt.Fprintf(out, "%s\t%s\t%s\n", a.Email, a.UserID, a.CreatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}
