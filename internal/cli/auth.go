package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSignupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup <email>",
		Short: "Create a Shelf account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			if err := app.Client.Signup(cmd.Context(), args[0], password); err != nil {
				return err
			}
			fmt.Println("Account created. You can log in now.")
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			token, err := app.Client.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			if err := app.Store.Set(token); err != nil {
				return fmt.Errorf("logged in, but storing the token failed: %w", err)
			}
			fmt.Println("Logged in.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and drop the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			// Server-side invalidation is best effort; local state clears
			// either way.
			if err := app.Client.Logout(cmd.Context()); err != nil {
				logger.Debugf("logout request failed: %v", err)
			}
			if err := app.Store.Clear(); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			sess := app.Store.Get()
			if !sess.Active() {
				fmt.Println("Not logged in")
				return nil
			}
			if sess.Subject != "" {
				fmt.Printf("Authenticated as %s\n", sess.Subject)
			} else {
				fmt.Println("Authenticated")
			}
			return nil
		},
	}
}
