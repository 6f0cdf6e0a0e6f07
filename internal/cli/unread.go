package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newUnreadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unread",
		Short: "Show the unread message count",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			total, err := client.UnreadCount(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch unread count: %w", err)
			}

			if opts.jsonOutput {
				return writeJSON(os.Stdout, map[string]int{"unreadCount": total})
			}
			fmt.Fprintln(os.Stdout, total)
			return nil
		},
	}
}
