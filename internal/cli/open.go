package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kallerud/lotline/internal/models"
	"github.com/kallerud/lotline/internal/store"
)

func newOpenCmd(opts *rootOptions) *cobra.Command {
	var keepUnread bool

	cmd := &cobra.Command{
		Use:   "open <conversation-id>",
		Short: "Read a conversation",
		Long:  "Print a conversation's messages and mark it as read.",
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

			ctx := cmd.Context()
			selfID, err := currentUser(ctx, client)
			if err != nil {
				return err
			}

			requestedAt := time.Now()
			detail, err := client.GetConversation(ctx, conversationID)
			if err != nil {
				return fmt.Errorf("fetch conversation: %w", err)
			}

			// Route through the store so the (CreatedAt, ID) ordering rule
			// applies regardless of backend response order.
			st := store.New()
			st.ApplyThread(detail.Conversation, detail.Messages, requestedAt)
			messages := st.Messages(conversationID)

			if !keepUnread && detail.Conversation.UnreadCount > 0 {
				if err := client.MarkConversationRead(ctx, conversationID); err != nil {
					// Reading still succeeded; surface the mark failure.
					fmt.Fprintf(os.Stderr, "warning: could not mark as read: %v\n", err)
				}
			}

			if opts.jsonOutput {
				return writeJSON(os.Stdout, detail)
			}

			printConversationHeader(&detail.Conversation, selfID)
			for _, message := range messages {
				printMessage(message, selfID, cfg.TUI.ShowTimestamps)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepUnread, "keep-unread", false, "do not mark the conversation as read")
	return cmd
}

func printConversationHeader(c *models.Conversation, selfID string) {
	other := counterpart(c, selfID)
	fmt.Fprintf(os.Stdout, "Conversation %s with %s", c.ID, other.Name)
	if c.Subject != "" {
		fmt.Fprintf(os.Stdout, " - %s", c.Subject)
	}
	if c.Archived {
		fmt.Fprint(os.Stdout, " [archived]")
	}
	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout)
}

func printMessage(m *models.Message, selfID string, showTimestamps bool) {
	sender := m.Sender.Name
	if m.Sender.ID == selfID {
		sender = "you"
	}
	if m.IsSystem {
		sender = "system"
	}

	prefix := sender
	if showTimestamps {
		prefix = fmt.Sprintf("%s %s", m.CreatedAt.Local().Format("2006-01-02 15:04"), sender)
	}
	fmt.Fprintf(os.Stdout, "%s: %s\n", prefix, m.Content)
	if m.Attachment != nil {
		fmt.Fprintf(os.Stdout, "  attachment: %s (%s)\n", m.Attachment.Name, m.Attachment.URL)
	}
}
