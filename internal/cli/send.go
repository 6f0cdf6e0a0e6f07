package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kallerud/lotline/internal/models"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var attachmentPath string

	cmd := &cobra.Command{
		Use:   "send <conversation-id> <message>",
		Short: "Send a message",
		Long:  "Send a message in an existing conversation, optionally with one file attachment.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conversationID, err := requireArg(args, 0, "conversation id")
			if err != nil {
				return err
			}
			content := ""
			if len(args) > 1 {
				content = args[1]
			}

			draft := models.Draft{
				ConversationID: conversationID,
				Content:        content,
			}
			if attachmentPath != "" {
				data, err := os.ReadFile(attachmentPath)
				if err != nil {
					return fmt.Errorf("read attachment: %w", err)
				}
				draft.Attachment = &models.AttachmentUpload{
					Name: filepath.Base(attachmentPath),
					Data: data,
				}
			}
			// Reject locally before any network traffic.
			if err := draft.Validate(); err != nil {
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

			message, err := client.SendMessage(cmd.Context(), draft)
			if err != nil {
				return fmt.Errorf("send message: %w", err)
			}

			if opts.jsonOutput {
				return writeJSON(os.Stdout, message)
			}
			fmt.Fprintf(os.Stdout, "Sent %s\n", message.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&attachmentPath, "file", "", "attach a file")
	return cmd
}
