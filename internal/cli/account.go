package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func whoamiCmd(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			u, err := rt.currentUser(c.Context())
			if err != nil {
				return err
			}

			w := c.OutOrStdout()
			fmt.Fprintf(w, "Username: %s\n", u.Username())
			fmt.Fprintf(w, "Name:     %s\n", u.Name())
			fmt.Fprintf(w, "Created:  %s\n", u.CreatedAt().Format(time.DateOnly))
			fmt.Fprintf(w, "Stories:  %d, favorites: %d\n", len(u.OwnStories()), len(u.Favorites()))
			return nil
		},
	}
}

func signupCmd(rt *cliState) *cobra.Command {
	var username, password, name string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			u, err := rt.app.Session().Signup(c.Context(), username, password, name)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.OutOrStdout(), "Welcome, %s!\n", u.Name())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	return cmd
}

func loginCmd(rt *cliState) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			u, err := rt.app.Session().Authenticate(c.Context(), username, password)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.OutOrStdout(), "Logged in as %s\n", u.Username())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func logoutCmd(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := rt.app.Session().Logout(); err != nil {
				return err
			}

			fmt.Fprintln(c.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
