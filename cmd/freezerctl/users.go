package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/erazemk/freezer/internal/model"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage user accounts (admin)",
	}

	var role string
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			password, err := a.promptPassword("Password for " + args[0] + ": ")
			if err != nil {
				return err
			}
			u, err := a.api.CreateUser(cmd.Context(), args[0], password, role)
			if err != nil {
				return err
			}
			a.printf("Created %s (%s)\n", u.Username, u.Role)
			return nil
		}),
	}
	add.Flags().StringVarP(&role, "role", "r", model.RoleUser, "user or admin")

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List users",
			Args:    cobra.NoArgs,
			RunE: a.authed(func(cmd *cobra.Command, args []string) error {
				users, err := a.api.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				t := &table{headers: []string{"ID", "USERNAME", "ROLE", "CREATED"}}
				for _, u := range users {
					rc := plain(u.Role)
					if u.Role == model.RoleAdmin {
						rc = styled(u.Role, warnStyle)
					}
					t.add(plain(strconv.FormatInt(u.ID, 10)), plain(u.Username), rc,
						plain(u.CreatedAt.Local().Format(model.DateLayout)))
				}
				t.render(a.out)
				return nil
			}),
		},
		add,
		&cobra.Command{
			Use:   "role <username> <role>",
			Short: "Change a user's role",
			Args:  cobra.ExactArgs(2),
			RunE: a.authed(func(cmd *cobra.Command, args []string) error {
				u, err := a.user(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				updated, err := a.api.UpdateUserRole(cmd.Context(), u.ID, args[1])
				if err != nil {
					return err
				}
				a.printf("%s is now %s\n", updated.Username, updated.Role)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "reset-password <username>",
			Short: "Set a new password for a user",
			Args:  cobra.ExactArgs(1),
			RunE: a.authed(func(cmd *cobra.Command, args []string) error {
				u, err := a.user(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				password, err := a.promptPassword("New password for " + u.Username + ": ")
				if err != nil {
					return err
				}
				if err := a.api.ResetPassword(cmd.Context(), u.ID, password); err != nil {
					return err
				}
				a.printf("Password reset for %s\n", u.Username)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete <username>",
			Short: "Delete a user",
			Args:  cobra.ExactArgs(1),
			RunE: a.authed(func(cmd *cobra.Command, args []string) error {
				u, err := a.user(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := a.api.DeleteUser(cmd.Context(), u.ID); err != nil {
					return err
				}
				a.printf("Deleted %s\n", u.Username)
				return nil
			}),
		},
	)
	return cmd
}

// user finds an account by username or ID.
func (a *app) user(ctx context.Context, ref string) (*model.User, error) {
	users, err := a.api.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	name := model.NormalizeUsername(ref)
	id, _ := strconv.ParseInt(ref, 10, 64)
	for i := range users {
		if users[i].Username == name || users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("no user %q", ref)
}
