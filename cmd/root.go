package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/keywatch/internal/config"
	"github.com/JakeFAU/keywatch/internal/logging"
)

var cfgFile string

// newRootCmd creates the root command and attaches subcommands.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywatch",
		Short: "Watches a listing page for titles that match trending or chosen keywords.",
		Long: `keywatch polls a news or board listing, compares every new title against a
keyword list taken from a shopping ranking, a trends feed, or the operator,
and pushes each match to a Telegram chat exactly once per run.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCheckCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "keywatch: %v\n", err)
		os.Exit(1)
	}
}

// loadRuntime reads configuration and builds the process logger.
func loadRuntime() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

func syncLogger(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", err)
	}
}
