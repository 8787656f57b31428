package clmm

import (
	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"

	"clmm/internal/tickmath"
)

// SwapQuote is the computed outcome of a swap against the current pool state.
type SwapQuote struct {
	AmountIn      uint64
	AmountOut     uint64
	SqrtPriceNext uint128.Uint128
	TickNext      int32
}

// SwapResult is a staged swap. The pool record carries the new price.
type SwapResult struct {
	Pool *Pool
	SwapQuote
	Transfers []Transfer
}

// QuoteSwap prices an exact-input swap inside the active liquidity without
// changing state. The price never crosses an initialized tick boundary
// mid-swap; the whole input is executed against GlobalLiquidity.
func QuoteSwap(pool *Pool, amountIn uint64, zeroForOne bool) (SwapQuote, error) {
	if pool == nil {
		return SwapQuote{}, ErrPoolNotFound
	}
	if amountIn == 0 || pool.GlobalLiquidity.IsZero() {
		return SwapQuote{}, ErrInsufficientAmount
	}
	seg, err := tickmath.SwapSegment(pool.SqrtPriceX96, pool.GlobalLiquidity, amountIn, zeroForOne)
	if err != nil {
		return SwapQuote{}, err
	}
	tick, err := tickmath.TickFromSqrtPrice(seg.SqrtPriceNext)
	if err != nil {
		return SwapQuote{}, err
	}
	return SwapQuote{
		AmountIn:      seg.AmountIn,
		AmountOut:     seg.AmountOut,
		SqrtPriceNext: seg.SqrtPriceNext,
		TickNext:      tick,
	}, nil
}

// Swap executes an exact-input swap for trader and stages the price move.
func Swap(pool *Pool, trader common.Address, amountIn uint64, zeroForOne bool, amountOutMinimum uint64) (*SwapResult, error) {
	quote, err := QuoteSwap(pool, amountIn, zeroForOne)
	if err != nil {
		return nil, err
	}
	if quote.AmountOut < amountOutMinimum {
		return nil, ErrSlippageExceeded
	}

	staged := pool.Clone()
	staged.SqrtPriceX96 = quote.SqrtPriceNext
	staged.CurrentTick = quote.TickNext

	var transfers transferList
	if zeroForOne {
		transfers.add(staged.Token0, trader, staged.Vault0, trader, quote.AmountIn)
		transfers.add(staged.Token1, staged.Vault1, trader, staged.Address, quote.AmountOut)
	} else {
		transfers.add(staged.Token1, trader, staged.Vault1, trader, quote.AmountIn)
		transfers.add(staged.Token0, staged.Vault0, trader, staged.Address, quote.AmountOut)
	}

	return &SwapResult{
		Pool:      staged,
		SwapQuote: quote,
		Transfers: transfers,
	}, nil
}
