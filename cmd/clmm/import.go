package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clmm/internal/chain"
	"clmm/internal/dex"
	"clmm/internal/engine"
	"clmm/internal/model"
	"clmm/internal/registry"
)

type importOutput struct {
	Source model.PoolMeta `json:"source"`
	Pool   model.Pool     `json:"pool"`
}

func newImportPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-pool",
		Short: "Initialize a local pool from a live V3 pool's tokens, spacing and price",
		RunE:  runImportPool,
	}
	cmd.Flags().String("rpc", "", "EVM RPC URL")
	cmd.Flags().String("pool", "", "V3 pool contract address")
	cmd.Flags().Uint64("block", 0, "block to read, 0 means latest")
	retryFlags(cmd)
	return cmd
}

func runImportPool(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	source, err := addressFlag(cmd, "pool")
	if err != nil {
		return err
	}
	block, _ := cmd.Flags().GetUint64("block")

	ctx, stop := signalContext()
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var meta model.PoolMeta
	err = chain.WithRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, func(ctx context.Context) error {
		var fetchErr error
		meta, fetchErr = dex.FetchPoolMeta(ctx, chainClient, source, block, logger)
		if fetchErr != nil {
			logger.Warn("fetch pool meta", zap.String("pool", source.Hex()), zap.Error(fetchErr))
		}
		return fetchErr
	})
	if err != nil {
		return fmt.Errorf("fetch pool meta: %w", err)
	}

	if meta.Slot0 == nil {
		return fmt.Errorf("pool %s: slot0 unavailable", source.Hex())
	}
	price, err := parseUint128("slot0 sqrt price", meta.Slot0.SqrtPriceX96)
	if err != nil {
		return err
	}

	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	pool, err := s.engine.InitializePool(ctx, engine.InitializePoolRequest{
		Token0:       common.HexToAddress(meta.Token0.Address),
		Token1:       common.HexToAddress(meta.Token1.Address),
		TickSpacing:  meta.TickSpacing,
		SqrtPriceX96: price,
	})
	if err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}

	logPool(logger, "pool imported", pool)
	if pool.CurrentTick != meta.Slot0.Tick {
		logger.Warn("local tick differs from source slot0",
			zap.Int32("local", pool.CurrentTick),
			zap.Int32("source", meta.Slot0.Tick),
		)
	}
	return printJSON(cmd, importOutput{Source: meta, Pool: registry.PoolToModel(pool)})
}
