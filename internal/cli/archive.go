package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <conversation-id>",
		Short: "Archive a conversation",
		Long:  "Archive a conversation so it no longer appears in the default list.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conversationID, err := requireArg(args, 0, "conversation id")
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			if err := client.ArchiveConversation(cmd.Context(), conversationID); err != nil {
				return fmt.Errorf("archive conversation: %w", err)
			}

			if opts.jsonOutput {
				return writeJSON(os.Stdout, map[string]string{"id": conversationID, "status": "archived"})
			}
			fmt.Fprintf(os.Stdout, "Archived %s\n", conversationID)
			return nil
		},
	}
}
