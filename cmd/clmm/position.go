package main

import (
	"context"

	"github.com/spf13/cobra"
	"lukechampine.com/uint128"

	"clmm/internal/engine"
)

type liquidityOutput struct {
	Position  string `json:"position"`
	Liquidity string `json:"liquidity"`
	Amount0   uint64 `json:"amount0"`
	Amount1   uint64 `json:"amount1"`
	Closed    bool   `json:"closed,omitempty"`
}

type liquidityOp func(*engine.Engine, context.Context, engine.LiquidityRequest) (*engine.LiquidityReceipt, error)

func newOpenPositionCmd() *cobra.Command {
	return newLiquidityCmd("open-position", "Open a position, or add to it when it exists", true, (*engine.Engine).OpenPosition)
}

func newIncreaseLiquidityCmd() *cobra.Command {
	return newLiquidityCmd("increase-liquidity", "Add liquidity to an existing position", true, (*engine.Engine).IncreaseLiquidity)
}

func newDecreaseLiquidityCmd() *cobra.Command {
	return newLiquidityCmd("decrease-liquidity", "Remove part of a position's liquidity", true, (*engine.Engine).DecreaseLiquidity)
}

func newClosePositionCmd() *cobra.Command {
	return newLiquidityCmd("close-position", "Withdraw all liquidity and delete the position", false, (*engine.Engine).ClosePosition)
}

func newLiquidityCmd(use, short string, needsAmount bool, op liquidityOp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLiquidity(cmd, needsAmount, op)
		},
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("owner", "", "position owner address")
	cmd.Flags().Int32("tick-lower", 0, "lower tick (inclusive)")
	cmd.Flags().Int32("tick-upper", 0, "upper tick (exclusive)")
	if needsAmount {
		cmd.Flags().String("liquidity", "", "liquidity amount")
	}
	return cmd
}

func runLiquidity(cmd *cobra.Command, needsAmount bool, op liquidityOp) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := addressFlag(cmd, "pool")
	if err != nil {
		return err
	}
	owner, err := addressFlag(cmd, "owner")
	if err != nil {
		return err
	}
	lower, _ := cmd.Flags().GetInt32("tick-lower")
	upper, _ := cmd.Flags().GetInt32("tick-upper")

	liquidity := uint128.Zero
	if needsAmount {
		raw, _ := cmd.Flags().GetString("liquidity")
		liquidity, err = parseUint128("liquidity", raw)
		if err != nil {
			return err
		}
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	receipt, err := op(s.engine, ctx, engine.LiquidityRequest{
		Pool:      pool,
		Owner:     owner,
		TickLower: lower,
		TickUpper: upper,
		Liquidity: liquidity,
	})
	if err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}

	return printJSON(cmd, liquidityOutput{
		Position:  receipt.Position.Hex(),
		Liquidity: receipt.Liquidity.String(),
		Amount0:   receipt.Amount0,
		Amount1:   receipt.Amount1,
		Closed:    receipt.Closed,
	})
}

func newMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Credit a token balance to an address",
		RunE:  runMint,
	}
	cmd.Flags().String("mint", "", "token mint address, or \"native\" for the deposit token")
	cmd.Flags().String("to", "", "recipient address")
	cmd.Flags().Uint64("amount", 0, "amount to credit")
	return cmd
}

func runMint(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	mint, err := addressFlag(cmd, "mint")
	if err != nil {
		return err
	}
	to, err := addressFlag(cmd, "to")
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")

	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	if err := s.ledger.MintTo(mint, to, amount); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}
	return printJSON(cmd, accountBalances(s, to))
}
