package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erazemk/freezer/internal/client"
)

type runFunc func(cmd *cobra.Command, args []string) error

// authed wraps a command that needs a token.
func (a *app) authed(fn runFunc) runFunc {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.requireLogin(); err != nil {
			return err
		}
		return fn(cmd, args)
	}
}

func newLoginCmd(a *app) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if username == "" {
				if username, err = a.prompt("Username: "); err != nil {
					return err
				}
			}
			password, err := a.promptPassword("Password: ")
			if err != nil {
				return err
			}

			res, err := a.api.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			a.cfg.Token = res.Token
			if err := a.cfg.Save(); err != nil {
				return err
			}
			a.printf("Logged in as %s (%s)\n", res.User.Username, res.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "username (prompted when empty)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token and forget it",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			// An already revoked or expired token still gets forgotten.
			if err := a.api.Logout(cmd.Context()); err != nil && client.StatusOf(err) != http.StatusUnauthorized {
				return err
			}
			a.cfg.Token = ""
			if err := a.cfg.Save(); err != nil {
				return err
			}
			a.println("Logged out")
			return nil
		}),
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			u, err := a.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("%s (%s) on %s\n", u.Username, u.Role, a.cfg.ServerURL)
			return nil
		}),
	}
}

func newPasswordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			current, err := a.promptPassword("Current password: ")
			if err != nil {
				return err
			}
			next, err := a.promptPassword("New password: ")
			if err != nil {
				return err
			}
			again, err := a.promptPassword("Repeat new password: ")
			if err != nil {
				return err
			}
			if next != again {
				return errors.New("passwords do not match")
			}
			if strings.TrimSpace(next) == "" {
				return errors.New("password cannot be empty")
			}

			if err := a.api.ChangePassword(cmd.Context(), current, next); err != nil {
				return err
			}
			a.println("Password changed")
			return nil
		}),
	}
}
