package clmm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"
)

// TicksPerArray is the number of spacing-aligned ticks held by one TickArray.
const TicksPerArray = 30

// Pool is the price and active-liquidity state of one (token pair, spacing).
type Pool struct {
	Address         common.Address
	Token0          common.Address
	Token1          common.Address
	Vault0          common.Address
	Vault1          common.Address
	GlobalLiquidity uint128.Uint128
	SqrtPriceX96    uint128.Uint128
	CurrentTick     int32
	TickSpacing     int32
}

// Clone returns a copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

// Position is the liquidity one owner provides over one tick range of a pool.
type Position struct {
	Address   common.Address
	Liquidity uint128.Uint128
	TickLower int32
	TickUpper int32
	Owner     common.Address
	Pool      common.Address
}

// IsInitialized reports whether the record has been bound to an owner.
func (p *Position) IsInitialized() bool {
	return p != nil && p.Owner != (common.Address{})
}

// Clone returns a copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

// TickInfo is the liquidity bookkeeping of a single tick.
type TickInfo struct {
	Initialized    bool
	LiquidityGross uint128.Uint128
	// LiquidityNet is applied to active liquidity when price crosses the
	// tick upward. It always fits int128.
	LiquidityNet *big.Int
}

// Net returns LiquidityNet, treating nil as zero.
func (t *TickInfo) Net() *big.Int {
	if t.LiquidityNet == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(t.LiquidityNet)
}

// TickArray is a fixed partition of one pool's tick space.
type TickArray struct {
	Address      common.Address
	Pool         common.Address
	StartingTick int32
	TickSpacing  int32
	Ticks        [TicksPerArray]TickInfo
}

// NewTickArray returns an empty partition starting at startingTick.
func NewTickArray(address, pool common.Address, startingTick, tickSpacing int32) *TickArray {
	return &TickArray{
		Address:      address,
		Pool:         pool,
		StartingTick: startingTick,
		TickSpacing:  tickSpacing,
	}
}

// TickIndex returns the tick held by slot.
func (a *TickArray) TickIndex(slot int) int32 {
	return a.StartingTick + int32(slot)*a.TickSpacing
}

// Clone returns a deep copy of the tick array.
func (a *TickArray) Clone() *TickArray {
	if a == nil {
		return nil
	}
	out := *a
	for i := range out.Ticks {
		if a.Ticks[i].LiquidityNet != nil {
			out.Ticks[i].LiquidityNet = new(big.Int).Set(a.Ticks[i].LiquidityNet)
		}
	}
	return &out
}
