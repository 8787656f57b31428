package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"clmm/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "clmm",
		Short:        "Concentrated-liquidity pool state engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("state", "./data/clmm_state.json", "state snapshot file")
	root.PersistentFlags().String("journal", "./data/journal.jsonl", "event journal JSONL")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newInitPoolCmd(),
		newImportPoolCmd(),
		newOpenPositionCmd(),
		newIncreaseLiquidityCmd(),
		newDecreaseLiquidityCmd(),
		newClosePositionCmd(),
		newSwapCmd(),
		newQuoteCmd(),
		newShowCmd(),
		newMintCmd(),
		newExportLogsCmd(),
		newDecodeLogsCmd(),
		newStatsCmd(),
		newSyncCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the merged configuration for cmd and builds its logger.
func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func printJSON(cmd *cobra.Command, value interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

func retryFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
}
