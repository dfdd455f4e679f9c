// Package cmd holds the custody-ledger command line
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linesmerrill/custody-ledger-api/config"
)

// RootCommand creates the root command and its subcommands
func RootCommand() *cobra.Command {
	var conf *config.Config

	rootCmd := &cobra.Command{
		Use:           "custody-ledger",
		Short:         "Custody transparency ledger API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// reads the environment and installs the global logger
			*conf = *config.New()
		},
	}
	conf = &config.Config{}

	rootCmd.AddCommand(
		serveCommand(conf),
		verifyCommand(conf),
	)
	return rootCmd
}

// Execute runs the command line and exits non-zero on failure
func Execute() {
	if err := RootCommand().Execute(); err != nil {
		zap.S().Errorw("command failed", "error", err)
		_ = zap.L().Sync()
		os.Exit(1)
	}
}
