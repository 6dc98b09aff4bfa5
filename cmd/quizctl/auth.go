package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"master-o-quizz/internal/application/session"
)

func (c *cli) signupCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Session.Signup(cmd.Context(), name, email, password); err != nil {
				return err
			}
			return c.printWhoami()
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (at least 8 characters)")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.app.Session.Login(cmd.Context(), email, password)
			if session.AccountMissing(err) {
				return fmt.Errorf("%w; run `quizctl signup` to create an account", err)
			}
			if err != nil {
				return err
			}
			return c.printWhoami()
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.Session.Logout()
			_, err := fmt.Fprintln(c.out, "Logged out")
			return err
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.printWhoami()
		},
	}
}

func (c *cli) printWhoami() error {
	v := c.app.Session.View()
	if v.User == nil {
		_, err := fmt.Fprintln(c.out, "Not logged in")
		return err
	}
	_, err := fmt.Fprintf(c.out, "%s <%s> (%s)\n", v.User.Name, v.User.Email, v.User.Role)
	return err
}
