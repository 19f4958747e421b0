package cli

import (
	"github.com/spf13/cobra"

	"loci/internal/session"
	"loci/internal/tui"
)

var roomCmd = &cobra.Command{
	Use:   "room <room-id>",
	Short: "Open a chatroom",
	Long: `Open a chatroom in the interactive view.

Newcomers are asked whether to join under their own name or anonymously;
existing participants rejoin directly. Esc or Ctrl+C leaves the room.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()
		defer d.close()

		me, err := d.requireUser(cmd.Context())
		if err != nil {
			return err
		}

		return d.runScreens(cmd.Context(), me, func(tr session.Transport, reg *session.Registry) (string, error) {
			return tui.NewRoomScreen(d.log, d.api, tr, reg, args[0], me).Run(cmd.Context())
		})
	},
}

var dmCmd = &cobra.Command{
	Use:   "dm <user-id>",
	Short: "Open a private chat with a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()
		defer d.close()

		me, err := d.requireUser(cmd.Context())
		if err != nil {
			return err
		}

		return d.runScreens(cmd.Context(), me, func(tr session.Transport, reg *session.Registry) (string, error) {
			return tui.NewPrivateScreen(d.log, tr, reg, args[0], me).Run(cmd.Context())
		})
	},
}

func init() {
	rootCmd.AddCommand(roomCmd)
	rootCmd.AddCommand(dmCmd)
}
