package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"inbox"},
	Short:   "List notifications",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()
		defer d.close()

		if _, err := d.requireUser(cmd.Context()); err != nil {
			return err
		}

		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")

		items, err := d.api.ListNotifications(cmd.Context(), page, limit)
		if err != nil {
			return fmt.Errorf("listing notifications: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("No notifications.")
			return nil
		}

		for _, n := range items {
			marker := " "
			if !n.Read {
				marker = "*"
			}
			fmt.Printf("%s %-8s %-16s %s\n", marker, n.Kind, n.SenderName, n.Content)
		}

		if markRead, _ := cmd.Flags().GetBool("read"); markRead {
			if err := d.api.MarkAllNotificationsRead(cmd.Context()); err != nil {
				return fmt.Errorf("marking notifications read: %w", err)
			}
		}
		return nil
	},
}

func init() {
	notificationsCmd.Flags().Int("page", 1, "page to fetch")
	notificationsCmd.Flags().Int("limit", 15, "notifications per page")
	notificationsCmd.Flags().Bool("read", false, "mark everything read after listing")
	rootCmd.AddCommand(notificationsCmd)
}
