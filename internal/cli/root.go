// Package cli implements the lotline command tree.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kallerud/lotline/internal/config"
	"github.com/kallerud/lotline/internal/logging"
)

// Execute runs the lotline CLI.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

type rootOptions struct {
	configFile string
	logLevel   string
	jsonOutput bool
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "lotline",
		Short:         "Terminal client for marketplace messaging",
		Long:          "lotline keeps vehicle-marketplace conversations in sync from the terminal: a live watch view plus one-shot commands for listing, reading and sending.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is $HOME/.config/lotline/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "machine-readable JSON output")

	cmd.AddCommand(
		newWatchCmd(opts),
		newListCmd(opts),
		newOpenCmd(opts),
		newSendCmd(opts),
		newStartCmd(opts),
		newArchiveCmd(opts),
		newUnreadCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
	)

	return cmd
}

// loadConfig loads configuration and initializes logging.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if o.configFile != "" {
		cfg, err = config.LoadFromFile(o.configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	var output io.Writer
	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = file
	}
	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       output,
		EnableCaller: cfg.Logging.EnableCaller,
	})

	return cfg, nil
}

func requireArg(args []string, index int, name string) (string, error) {
	if len(args) <= index || args[index] == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return args[index], nil
}
