package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clmm/internal/clmm"
	"clmm/internal/engine"
	"clmm/internal/model"
	"clmm/internal/registry"
)

type swapOutput struct {
	Pool          string `json:"pool"`
	AmountIn      uint64 `json:"amount_in"`
	AmountOut     uint64 `json:"amount_out"`
	SqrtPriceNext string `json:"sqrt_price_x96_next"`
	TickNext      int32  `json:"tick_next"`
}

type poolView struct {
	Pool       model.Pool        `json:"pool"`
	Positions  []model.Position  `json:"positions"`
	TickArrays []model.TickArray `json:"tick_arrays"`
}

func newInitPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-pool",
		Short: "Create a pool for a token pair and tick spacing",
		RunE:  runInitPool,
	}
	cmd.Flags().String("token0", "", "token0 mint address")
	cmd.Flags().String("token1", "", "token1 mint address")
	cmd.Flags().Int32("tick-spacing", 10, "tick spacing")
	cmd.Flags().String("sqrt-price", "", "initial sqrt price (Q64.96)")
	cmd.Flags().Int32("tick", 0, "initial tick, used when --sqrt-price is unset")
	return cmd
}

func runInitPool(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	token0, err := addressFlag(cmd, "token0")
	if err != nil {
		return err
	}
	token1, err := addressFlag(cmd, "token1")
	if err != nil {
		return err
	}
	spacing, _ := cmd.Flags().GetInt32("tick-spacing")
	price, err := parseSqrtPrice(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	pool, err := s.engine.InitializePool(ctx, engine.InitializePoolRequest{
		Token0:       token0,
		Token1:       token1,
		TickSpacing:  spacing,
		SqrtPriceX96: price,
	})
	if err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}
	return printJSON(cmd, registry.PoolToModel(pool))
}

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute an exact-input swap",
		RunE:  runSwap,
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("trader", "", "trader address")
	cmd.Flags().Uint64("amount-in", 0, "input amount")
	cmd.Flags().Bool("zero-for-one", true, "swap token0 for token1")
	cmd.Flags().Uint64("min-out", 0, "minimum output amount")
	return cmd
}

func runSwap(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := addressFlag(cmd, "pool")
	if err != nil {
		return err
	}
	trader, err := addressFlag(cmd, "trader")
	if err != nil {
		return err
	}
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	zeroForOne, _ := cmd.Flags().GetBool("zero-for-one")
	minOut, _ := cmd.Flags().GetUint64("min-out")

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	quote, err := s.engine.Swap(ctx, engine.SwapRequest{
		Pool:             pool,
		Trader:           trader,
		AmountIn:         amountIn,
		ZeroForOne:       zeroForOne,
		AmountOutMinimum: minOut,
	})
	if err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return err
	}
	return printJSON(cmd, newSwapOutput(pool, quote))
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price an exact-input swap without executing it",
		RunE:  runQuote,
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().Uint64("amount-in", 0, "input amount")
	cmd.Flags().Bool("zero-for-one", true, "swap token0 for token1")
	return cmd
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := addressFlag(cmd, "pool")
	if err != nil {
		return err
	}
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	zeroForOne, _ := cmd.Flags().GetBool("zero-for-one")

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	quote, err := s.engine.QuoteSwap(ctx, pool, amountIn, zeroForOne)
	if err != nil {
		return err
	}
	return printJSON(cmd, newSwapOutput(pool, quote))
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print pools, or one pool with its positions and tick arrays",
		RunE:  runShow,
	}
	cmd.Flags().String("pool", "", "pool address (all pools when empty)")
	cmd.Flags().String("account", "", "print token balances of this address instead")
	return cmd
}

func runShow(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}

	if raw, _ := cmd.Flags().GetString("account"); raw != "" {
		owner, err := parseAddress("account", raw)
		if err != nil {
			return err
		}
		return printJSON(cmd, accountBalances(s, owner))
	}

	raw, _ := cmd.Flags().GetString("pool")
	if raw == "" {
		pools := make([]model.Pool, 0)
		for _, pool := range s.store.Pools() {
			pools = append(pools, registry.PoolToModel(pool))
		}
		return printJSON(cmd, pools)
	}

	address, err := parseAddress("pool", raw)
	if err != nil {
		return err
	}
	pool, ok := s.engine.Pool(address)
	if !ok {
		return fmt.Errorf("show %s: %w", address.Hex(), clmm.ErrPoolNotFound)
	}

	view := poolView{
		Pool:       registry.PoolToModel(pool),
		Positions:  make([]model.Position, 0),
		TickArrays: make([]model.TickArray, 0),
	}
	for _, pos := range s.store.Positions(address) {
		view.Positions = append(view.Positions, registry.PositionToModel(pos))
	}
	for _, arr := range s.store.TickArrays(address) {
		view.TickArrays = append(view.TickArrays, registry.TickArrayToModel(arr))
	}
	return printJSON(cmd, view)
}

func accountBalances(s *session, owner common.Address) []model.TokenAccount {
	out := make([]model.TokenAccount, 0)
	for _, acc := range s.ledger.Snapshot() {
		if common.HexToAddress(acc.Address) == owner {
			out = append(out, acc)
		}
	}
	return out
}

func newSwapOutput(pool common.Address, quote clmm.SwapQuote) swapOutput {
	return swapOutput{
		Pool:          pool.Hex(),
		AmountIn:      quote.AmountIn,
		AmountOut:     quote.AmountOut,
		SqrtPriceNext: quote.SqrtPriceNext.String(),
		TickNext:      quote.TickNext,
	}
}

func logPool(logger *zap.Logger, msg string, pool *clmm.Pool) {
	logger.Info(msg,
		zap.String("pool", pool.Address.Hex()),
		zap.String("token0", pool.Token0.Hex()),
		zap.String("token1", pool.Token1.Hex()),
		zap.Int32("tick_spacing", pool.TickSpacing),
		zap.Int32("tick", pool.CurrentTick),
	)
}
