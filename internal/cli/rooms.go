package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the active chatrooms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()
		defer d.close()

		if _, err := d.requireUser(cmd.Context()); err != nil {
			return err
		}

		rooms, err := d.api.ListChatrooms(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing rooms: %w", err)
		}
		if len(rooms) == 0 {
			fmt.Println("No rooms yet. Create one with `loci rooms create`.")
			return nil
		}

		for _, r := range rooms {
			fmt.Printf("%s  %-20s  %-24s  %d participants\n", r.ID, r.Name, r.Topic, len(r.Participants))
		}
		return nil
	},
}

var roomsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a chatroom",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()
		defer d.close()

		if _, err := d.requireUser(cmd.Context()); err != nil {
			return err
		}

		topic, _ := cmd.Flags().GetString("topic")
		description, _ := cmd.Flags().GetString("description")

		room, err := d.api.CreateChatroom(cmd.Context(), args[0], topic, description)
		if err != nil {
			return fmt.Errorf("creating room: %w", err)
		}

		fmt.Printf("Created room %s (%s)\n", room.Name, room.ID)
		return nil
	},
}

func init() {
	roomsCreateCmd.Flags().String("topic", "", "room topic")
	roomsCreateCmd.Flags().String("description", "", "room description")
	roomsCmd.AddCommand(roomsCreateCmd)
	rootCmd.AddCommand(roomsCmd)
}
