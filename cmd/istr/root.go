package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"istr/internal/platform/config"
	"istr/internal/platform/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "istr",
		Short: "Identifier parsing and validation",
		Long: `istr parses CUSIP, ISIN, IBAN and URL strings, extracts their
components and explains why invalid values fail.

Functions are named <format>.<projection>, for example iban.bank_id,
cusip.is_valid or url.check. Run "istr functions" for the full list.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (YAML or TOML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		newCheckCmd(opts),
		newFunctionsCmd(),
		newRunsCmd(opts),
		newServeCmd(opts),
		newTokenCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

// cliLogger logs as text to stderr so stdout stays machine readable.
func (o *rootOptions) cliLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if o.logLevel == "" {
		level = "warn"
	}
	return logger.NewWithWriter(cmd.ErrOrStderr(), level, "text")
}
