package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Authenticate and store the access token in the keyring",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()
		defer d.close()

		var email string
		if len(args) == 1 {
			email = args[0]
		} else {
			fmt.Print("Email: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading email: %w", err)
			}
			email = strings.TrimSpace(line)
		}
		if email == "" {
			return fmt.Errorf("email is required")
		}

		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		res, err := d.api.Login(cmd.Context(), email, string(raw))
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if err := d.creds.Set(res.AccessToken); err != nil {
			return fmt.Errorf("storing credential: %w", err)
		}

		fmt.Printf("Logged in as %s\n", res.User.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate the session and drop the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()
		defer d.close()

		// Best effort on the server side; the local credential goes away
		// regardless.
		if err := d.api.Logout(cmd.Context()); err != nil {
			d.log.Warn("logout.remote", "err", err)
		}
		if err := d.creds.Delete(); err != nil {
			return fmt.Errorf("removing credential: %w", err)
		}

		fmt.Println("Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
