package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"lukechampine.com/uint128"

	"clmm/internal/clmm"
	"clmm/internal/model"
	"clmm/internal/registry"
)

// InitializePoolRequest creates the pool for (Token0, Token1, TickSpacing).
type InitializePoolRequest struct {
	Token0       common.Address
	Token1       common.Address
	TickSpacing  int32
	SqrtPriceX96 uint128.Uint128
}

// LiquidityRequest addresses the position of Owner over [TickLower, TickUpper).
// Liquidity is ignored by ClosePosition.
type LiquidityRequest struct {
	Pool      common.Address
	Owner     common.Address
	TickLower int32
	TickUpper int32
	Liquidity uint128.Uint128
}

// LiquidityReceipt reports the outcome of a liquidity operation.
type LiquidityReceipt struct {
	Position  common.Address
	Liquidity uint128.Uint128
	Amount0   uint64
	Amount1   uint64
	Closed    bool
}

// SwapRequest is an exact-input swap.
type SwapRequest struct {
	Pool             common.Address
	Trader           common.Address
	AmountIn         uint64
	ZeroForOne       bool
	AmountOutMinimum uint64
}

func (e *Engine) InitializePool(ctx context.Context, req InitializePoolRequest) (*clmm.Pool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	address := registry.PoolAddress(req.Token0, req.Token1, req.TickSpacing)
	unlock := e.lockPool(address)
	defer unlock()

	if _, ok := e.store.Pool(address); ok {
		return nil, clmm.ErrPoolExists
	}
	pool, err := clmm.InitializePool(clmm.InitializePoolParams{
		Address:          address,
		Token0:           req.Token0,
		Token1:           req.Token1,
		Vault0:           registry.VaultAddress(address, req.Token0),
		Vault1:           registry.VaultAddress(address, req.Token1),
		TickSpacing:      req.TickSpacing,
		InitialSqrtPrice: req.SqrtPriceX96,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize pool: %w", err)
	}

	if err := e.ledger.InitAccount(pool.Token0, pool.Vault0, pool.Address); err != nil {
		return nil, fmt.Errorf("init vault0: %w", err)
	}
	if err := e.ledger.InitAccount(pool.Token1, pool.Vault1, pool.Address); err != nil {
		return nil, fmt.Errorf("init vault1: %w", err)
	}
	if err := e.store.CreatePool(pool); err != nil {
		return nil, err
	}

	e.logger.Info("pool initialized",
		zap.String("pool", pool.Address.Hex()),
		zap.String("token0", pool.Token0.Hex()),
		zap.String("token1", pool.Token1.Hex()),
		zap.Int32("tick_spacing", pool.TickSpacing),
		zap.Int32("tick", pool.CurrentTick),
	)
	e.record(pool.Address, model.EventInitialize, model.InitializeEventData{
		SqrtPriceX96: pool.SqrtPriceX96.String(),
		Tick:         pool.CurrentTick,
	})
	return pool, nil
}

func (e *Engine) OpenPosition(ctx context.Context, req LiquidityRequest) (*LiquidityReceipt, error) {
	return e.modifyLiquidity(ctx, req, "open position", func(acc clmm.LiquidityAccounts) (*clmm.Result, error) {
		return clmm.OpenPosition(acc, req.Owner, req.TickLower, req.TickUpper, req.Liquidity)
	})
}

func (e *Engine) IncreaseLiquidity(ctx context.Context, req LiquidityRequest) (*LiquidityReceipt, error) {
	return e.modifyLiquidity(ctx, req, "increase liquidity", func(acc clmm.LiquidityAccounts) (*clmm.Result, error) {
		return clmm.IncreaseLiquidity(acc, req.Owner, req.TickLower, req.TickUpper, req.Liquidity)
	})
}

func (e *Engine) DecreaseLiquidity(ctx context.Context, req LiquidityRequest) (*LiquidityReceipt, error) {
	return e.modifyLiquidity(ctx, req, "decrease liquidity", func(acc clmm.LiquidityAccounts) (*clmm.Result, error) {
		return clmm.DecreaseLiquidity(acc, req.Owner, req.TickLower, req.TickUpper, req.Liquidity)
	})
}

func (e *Engine) ClosePosition(ctx context.Context, req LiquidityRequest) (*LiquidityReceipt, error) {
	return e.modifyLiquidity(ctx, req, "close position", func(acc clmm.LiquidityAccounts) (*clmm.Result, error) {
		return clmm.ClosePosition(acc, req.Owner, req.TickLower, req.TickUpper)
	})
}

func (e *Engine) modifyLiquidity(ctx context.Context, req LiquidityRequest, op string, apply func(clmm.LiquidityAccounts) (*clmm.Result, error)) (*LiquidityReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := e.lockPool(req.Pool)
	defer unlock()

	acc, err := e.loadAccounts(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	existed := acc.Position.IsInitialized()
	before := acc.Position.Liquidity

	res, err := apply(acc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transfers := res.Transfers
	if !existed && res.Position.IsInitialized() && e.deposit > 0 {
		transfers = append(transfers, clmm.Transfer{
			Mint:      e.depositMint,
			From:      req.Owner,
			To:        res.Position.Address,
			Authority: req.Owner,
			Amount:    e.deposit,
		})
	}
	if res.ClosePosition {
		if refund := e.ledger.Balance(e.depositMint, res.Position.Address); refund > 0 {
			transfers = append(transfers, clmm.Transfer{
				Mint:      e.depositMint,
				From:      res.Position.Address,
				To:        res.Position.Owner,
				Authority: res.Position.Address,
				Amount:    refund,
			})
		}
	}

	if err := e.ledger.Transfer(ctx, transfers...); err != nil {
		return nil, fmt.Errorf("%s: transfer: %w", op, err)
	}

	changes := registry.Changes{
		Pools:      []*clmm.Pool{res.Pool},
		TickArrays: []*clmm.TickArray{res.Lower},
	}
	if res.Upper != res.Lower {
		changes.TickArrays = append(changes.TickArrays, res.Upper)
	}
	if res.ClosePosition {
		changes.Closed = []common.Address{res.Position.Address}
	} else {
		changes.Positions = []*clmm.Position{res.Position}
	}
	e.store.Commit(changes)

	receipt := &LiquidityReceipt{
		Position:  res.Position.Address,
		Liquidity: res.Position.Liquidity,
		Amount0:   res.Amount0,
		Amount1:   res.Amount1,
		Closed:    res.ClosePosition,
	}

	adding := res.Position.Liquidity.Cmp(before) > 0
	delta := liquidityDelta(before, res.Position.Liquidity)
	e.logger.Info(op,
		zap.String("pool", req.Pool.Hex()),
		zap.String("position", receipt.Position.Hex()),
		zap.String("owner", req.Owner.Hex()),
		zap.Int32("tick_lower", req.TickLower),
		zap.Int32("tick_upper", req.TickUpper),
		zap.String("liquidity_delta", delta.String()),
		zap.Uint64("amount0", res.Amount0),
		zap.Uint64("amount1", res.Amount1),
	)

	if adding {
		e.record(req.Pool, model.EventMint, model.MintEventData{
			Sender:    req.Owner.Hex(),
			Owner:     req.Owner.Hex(),
			TickLower: req.TickLower,
			TickUpper: req.TickUpper,
			Amount:    delta.String(),
			Amount0:   fmt.Sprint(res.Amount0),
			Amount1:   fmt.Sprint(res.Amount1),
		})
	} else {
		e.record(req.Pool, model.EventBurn, model.BurnEventData{
			Owner:     req.Owner.Hex(),
			TickLower: req.TickLower,
			TickUpper: req.TickUpper,
			Amount:    delta.String(),
			Amount0:   fmt.Sprint(res.Amount0),
			Amount1:   fmt.Sprint(res.Amount1),
			Closed:    res.ClosePosition,
		})
	}
	return receipt, nil
}

// loadAccounts reads the pool, both boundary tick arrays and the position.
// Missing tick arrays and positions are returned as fresh records.
func (e *Engine) loadAccounts(req LiquidityRequest) (clmm.LiquidityAccounts, error) {
	pool, ok := e.store.Pool(req.Pool)
	if !ok {
		return clmm.LiquidityAccounts{}, clmm.ErrPoolNotFound
	}
	if err := clmm.ValidateTickRange(req.TickLower, req.TickUpper, pool.TickSpacing); err != nil {
		return clmm.LiquidityAccounts{}, err
	}

	lower, err := e.loadTickArray(pool, req.TickLower)
	if err != nil {
		return clmm.LiquidityAccounts{}, err
	}
	upper := lower
	if !lower.Covers(req.TickUpper, pool.TickSpacing) {
		upper, err = e.loadTickArray(pool, req.TickUpper)
		if err != nil {
			return clmm.LiquidityAccounts{}, err
		}
	}

	posAddr := registry.PositionAddress(req.Owner, pool.Address, req.TickLower, req.TickUpper)
	pos, ok := e.store.Position(posAddr)
	if !ok {
		pos = &clmm.Position{Address: posAddr}
	}

	return clmm.LiquidityAccounts{
		Pool:     pool,
		Lower:    lower,
		Upper:    upper,
		Position: pos,
	}, nil
}

func (e *Engine) loadTickArray(pool *clmm.Pool, tick int32) (*clmm.TickArray, error) {
	start, err := clmm.StartingTickFor(tick, pool.TickSpacing)
	if err != nil {
		return nil, err
	}
	address := registry.TickArrayAddress(pool.Address, start)
	if arr, ok := e.store.TickArray(address); ok {
		return arr, nil
	}
	return clmm.NewTickArray(address, pool.Address, start, pool.TickSpacing), nil
}

func (e *Engine) QuoteSwap(ctx context.Context, pool common.Address, amountIn uint64, zeroForOne bool) (clmm.SwapQuote, error) {
	if err := ctx.Err(); err != nil {
		return clmm.SwapQuote{}, err
	}
	p, ok := e.store.Pool(pool)
	if !ok {
		return clmm.SwapQuote{}, clmm.ErrPoolNotFound
	}
	quote, err := clmm.QuoteSwap(p, amountIn, zeroForOne)
	if err != nil {
		return clmm.SwapQuote{}, fmt.Errorf("quote swap: %w", err)
	}
	return quote, nil
}

func (e *Engine) Swap(ctx context.Context, req SwapRequest) (clmm.SwapQuote, error) {
	if err := ctx.Err(); err != nil {
		return clmm.SwapQuote{}, err
	}
	unlock := e.lockPool(req.Pool)
	defer unlock()

	pool, ok := e.store.Pool(req.Pool)
	if !ok {
		return clmm.SwapQuote{}, fmt.Errorf("swap: %w", clmm.ErrPoolNotFound)
	}
	res, err := clmm.Swap(pool, req.Trader, req.AmountIn, req.ZeroForOne, req.AmountOutMinimum)
	if err != nil {
		return clmm.SwapQuote{}, fmt.Errorf("swap: %w", err)
	}
	if err := e.ledger.Transfer(ctx, res.Transfers...); err != nil {
		return clmm.SwapQuote{}, fmt.Errorf("swap: transfer: %w", err)
	}
	e.store.Commit(registry.Changes{Pools: []*clmm.Pool{res.Pool}})

	e.logger.Info("swap",
		zap.String("pool", req.Pool.Hex()),
		zap.String("trader", req.Trader.Hex()),
		zap.Bool("zero_for_one", req.ZeroForOne),
		zap.Uint64("amount_in", res.AmountIn),
		zap.Uint64("amount_out", res.AmountOut),
		zap.Int32("tick", res.TickNext),
	)

	in := new(big.Int).SetUint64(res.AmountIn)
	out := new(big.Int).Neg(new(big.Int).SetUint64(res.AmountOut))
	amount0, amount1 := in, out
	if !req.ZeroForOne {
		amount0, amount1 = out, in
	}
	e.record(req.Pool, model.EventSwap, model.SwapEventData{
		Sender:       req.Trader.Hex(),
		Recipient:    req.Trader.Hex(),
		Amount0:      amount0.String(),
		Amount1:      amount1.String(),
		SqrtPriceX96: res.Pool.SqrtPriceX96.String(),
		Liquidity:    res.Pool.GlobalLiquidity.String(),
		Tick:         res.Pool.CurrentTick,
	})
	return res.SwapQuote, nil
}

func liquidityDelta(before, after uint128.Uint128) uint128.Uint128 {
	if after.Cmp(before) >= 0 {
		return after.Sub(before)
	}
	return before.Sub(after)
}
