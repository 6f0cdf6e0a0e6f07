package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ClearSessionToken(); err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(os.Stdout, map[string]string{"status": "logged_out"})
			}
			fmt.Fprintln(os.Stdout, "Logged out.")
			return nil
		},
	}
}
