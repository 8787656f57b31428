package clmm

import (
	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"

	"clmm/internal/tickmath"
)

// InitializePoolParams describes a new pool. Address and vaults are derived by
// the caller.
type InitializePoolParams struct {
	Address          common.Address
	Token0           common.Address
	Token1           common.Address
	Vault0           common.Address
	Vault1           common.Address
	TickSpacing      int32
	InitialSqrtPrice uint128.Uint128
}

// InitializePool builds the initial pool record. No liquidity is active.
func InitializePool(params InitializePoolParams) (*Pool, error) {
	if params.TickSpacing <= 0 {
		return nil, ErrInvalidTickRange
	}
	if params.Token0 == params.Token1 {
		return nil, ErrInvalidMint
	}
	tick, err := tickmath.TickFromSqrtPrice(params.InitialSqrtPrice)
	if err != nil {
		return nil, err
	}
	return &Pool{
		Address:         params.Address,
		Token0:          params.Token0,
		Token1:          params.Token1,
		Vault0:          params.Vault0,
		Vault1:          params.Vault1,
		GlobalLiquidity: uint128.Zero,
		SqrtPriceX96:    params.InitialSqrtPrice,
		CurrentTick:     tick,
		TickSpacing:     params.TickSpacing,
	}, nil
}

// ValidateTickRange checks alignment and ordering of a position range.
func ValidateTickRange(lower, upper, tickSpacing int32) error {
	if tickSpacing <= 0 {
		return ErrInvalidTickRange
	}
	if lower%tickSpacing != 0 || upper%tickSpacing != 0 || lower >= upper {
		return ErrInvalidTickRange
	}
	if lower < tickmath.MinTick || upper > tickmath.MaxTick {
		return ErrInvalidTickRange
	}
	return nil
}

// InRange reports whether the current tick lies in [lower, upper).
func (p *Pool) InRange(lower, upper int32) bool {
	return p.CurrentTick >= lower && p.CurrentTick < upper
}

// AmountsForRange returns the token amounts backing liquidity over
// [lower, upper) at the pool's current price, rounded up for deposits.
func (p *Pool) AmountsForRange(lower, upper int32, liquidity uint128.Uint128, deposit bool) (uint64, uint64, error) {
	sqrtLower, err := tickmath.SqrtPriceFromTick(lower)
	if err != nil {
		return 0, 0, err
	}
	sqrtUpper, err := tickmath.SqrtPriceFromTick(upper)
	if err != nil {
		return 0, 0, err
	}
	return tickmath.AmountsForLiquidityDelta(p.SqrtPriceX96, sqrtLower, sqrtUpper, liquidity, deposit)
}
