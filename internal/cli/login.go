package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kallerud/lotline/internal/api"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session token",
		Long:  "Store the marketplace session token used for all requests. The token is read from --token, piped stdin, or an interactive prompt.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Server.BaseURL == "" {
				return fmt.Errorf("server.base_url is not configured (set it in config.yaml or LOTLINE_SERVER_BASE_URL)")
			}

			if token == "" {
				token, err = readToken()
				if err != nil {
					return err
				}
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("no session token provided")
			}

			client, err := api.NewClient(api.Config{
				BaseURL:      cfg.Server.BaseURL,
				SessionToken: token,
				Timeout:      cfg.Server.Timeout,
			})
			if err != nil {
				return err
			}

			user, err := client.CurrentUser(cmd.Context())
			if err != nil {
				return fmt.Errorf("token rejected by %s: %w", cfg.Server.BaseURL, err)
			}

			if err := cfg.SaveSessionToken(token); err != nil {
				return err
			}

			if opts.jsonOutput {
				return writeJSON(os.Stdout, user)
			}
			fmt.Fprintf(os.Stdout, "Logged in as %s (%s)\n", user.Name, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "session token (prompted for when omitted)")
	return cmd
}

func readToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Session token: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return string(raw), nil
	}

	// Piped input.
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read token from stdin: %w", err)
	}
	return line, nil
}
