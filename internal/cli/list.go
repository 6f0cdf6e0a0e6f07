package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kallerud/lotline/internal/store"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var includeArchived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Long:  "List conversations sorted by most recent activity.",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			fetched, err := client.ListConversations(ctx)
			if err != nil {
				return fmt.Errorf("list conversations: %w", err)
			}

			// Route through the store so ordering and archive filtering
			// behave exactly as in the watch view.
			st := store.New()
			st.ApplyList(fetched, requestedAt)
			conversations := st.Conversations(includeArchived)

			if opts.jsonOutput {
				return writeJSON(os.Stdout, conversations)
			}

			if len(conversations) == 0 {
				fmt.Fprintln(os.Stdout, "No conversations.")
				return nil
			}

			writer := newTable(os.Stdout, "ID", "WITH", "SUBJECT", "LAST MESSAGE", "UNREAD", "UPDATED")
			for _, c := range conversations {
				last := "-"
				if c.LastMessage != nil {
					last = truncate(c.LastMessage.Content, 40)
				}
				unread := "-"
				if c.UnreadCount > 0 {
					unread = fmt.Sprintf("%d", c.UnreadCount)
				}
				fmt.Fprintf(
					writer,
					"%s\t%s\t%s\t%s\t%s\t%s\n",
					c.ID,
					counterpart(c, selfID).Name,
					truncate(c.Subject, 30),
					last,
					unread,
					formatRelativeTime(c.UpdatedAt),
				)
			}
			return writer.Flush()
		},
	}

	cmd.Flags().BoolVar(&includeArchived, "all", false, "include archived conversations")
	return cmd
}
