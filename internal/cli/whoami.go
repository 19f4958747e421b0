package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()
		defer d.close()

		me, err := d.requireUser(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s)\n", me.Username, me.ID)
		if me.Email != "" {
			fmt.Println(me.Email)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search users and rooms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()
		defer d.close()

		if _, err := d.requireUser(cmd.Context()); err != nil {
			return err
		}

		res, err := d.api.Search(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		for _, u := range res.Users {
			fmt.Printf("user  %s  %s\n", u.ID, u.Username)
		}
		for _, r := range res.Rooms {
			fmt.Printf("room  %s  %s\n", r.ID, r.Name)
		}
		if len(res.Users)+len(res.Rooms) == 0 {
			fmt.Println("No matches.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(searchCmd)
}
