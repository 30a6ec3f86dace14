package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"SMCSentinel/internal/config"
)

const (
	appName = "SMCSentinel"
	version = "v0.3.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg(appName + " failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sentinel",
		Short:         "Multi-timeframe Smart Money Concepts bias analyzer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `SMCSentinel reads candles for each configured symbol on several timeframes,
detects market structure, order blocks, fair value gaps and liquidity pools,
and reports a weighted directional bias.`,
	}

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	rootCmd.PersistentFlags().String("config", defaultCfg, "Path to the YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug|info|warn|error)")

	rootCmd.AddCommand(newRunCmd(), newAnalyzeCmd(), newHistoryCmd())
	return rootCmd
}

// loadConfig loads and validates the config named by --config and applies
// the log level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	setupLogging(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
