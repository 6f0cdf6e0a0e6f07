package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kallerud/lotline/internal/models"
)

func newStartCmd(opts *rootOptions) *cobra.Command {
	var (
		vehicleID string
		subject   string
	)

	cmd := &cobra.Command{
		Use:   "start <participant-id> <message>",
		Short: "Start a conversation",
		Long:  "Start a conversation with another user. If one already exists for the pairing, the backend returns it and the message lands there.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			participantID, err := requireArg(args, 0, "participant id")
			if err != nil {
				return err
			}
			initialMessage, err := requireArg(args, 1, "message")
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

			req := models.StartRequest{
				ParticipantID:  participantID,
				VehicleID:      vehicleID,
				Subject:        subject,
				InitialMessage: initialMessage,
			}
			if err := req.Validate(selfID); err != nil {
				return err
			}

			conversation, err := client.StartConversation(ctx, req)
			if err != nil {
				return fmt.Errorf("start conversation: %w", err)
			}

			if opts.jsonOutput {
				return writeJSON(os.Stdout, conversation)
			}
			fmt.Fprintf(os.Stdout, "Conversation %s with %s\n", conversation.ID, counterpart(conversation, selfID).Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&vehicleID, "vehicle", "", "vehicle listing this conversation is about")
	cmd.Flags().StringVar(&subject, "subject", "", "conversation subject")
	return cmd
}
