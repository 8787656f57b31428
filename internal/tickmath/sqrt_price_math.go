package tickmath

import (
	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

var q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

// SegmentResult holds the outcome of a constant-liquidity swap step.
type SegmentResult struct {
	AmountIn      uint64
	AmountOut     uint64
	SqrtPriceNext uint128.Uint128
}

// AmountsForLiquidity returns the token0/token1 amounts backing liquidity
// over [lower, upper) at the current sqrt price.
//
// Below the range everything is token0, at or above the upper bound
// everything is token1. Inside the range the liquidity is split linearly by
// the position of the current sqrt price between the bounds, so amount1
// grows and amount0 shrinks as price rises.
func AmountsForLiquidity(current, lower, upper, liquidity uint128.Uint128) (uint64, uint64, error) {
	if lower.Cmp(upper) >= 0 {
		return 0, 0, ErrInvalidRange
	}

	switch {
	case current.Cmp(lower) < 0:
		amount0, err := toUint64(widen(liquidity))
		return amount0, 0, err
	case current.Cmp(upper) >= 0:
		amount1, err := toUint64(widen(liquidity))
		return 0, amount1, err
	}

	liq := widen(liquidity)
	covered := new(uint256.Int).Sub(widen(current), widen(lower))
	width := new(uint256.Int).Sub(widen(upper), widen(lower))

	share1, err := mulDiv(liq, covered, width)
	if err != nil {
		return 0, 0, err
	}
	share0 := new(uint256.Int).Sub(liq, share1)

	amount0, err := toUint64(share0)
	if err != nil {
		return 0, 0, err
	}
	amount1, err := toUint64(share1)
	if err != nil {
		return 0, 0, err
	}
	return amount0, amount1, nil
}

// AmountsForLiquidityDelta is AmountsForLiquidity for an actual deposit or
// withdrawal. Inside the range each side is computed on its own and rounded
// up when roundUp is set (deposits) or down otherwise (withdrawals), so
// repeated deposits always cover a later withdrawal of the sum.
func AmountsForLiquidityDelta(current, lower, upper, liquidity uint128.Uint128, roundUp bool) (uint64, uint64, error) {
	if lower.Cmp(upper) >= 0 {
		return 0, 0, ErrInvalidRange
	}
	if current.Cmp(lower) < 0 || current.Cmp(upper) >= 0 {
		return AmountsForLiquidity(current, lower, upper, liquidity)
	}

	liq := widen(liquidity)
	width := new(uint256.Int).Sub(widen(upper), widen(lower))
	covered := new(uint256.Int).Sub(widen(current), widen(lower))
	remaining := new(uint256.Int).Sub(widen(upper), widen(current))

	div := mulDiv
	if roundUp {
		div = mulDivRoundingUp
	}
	share0, err := div(liq, remaining, width)
	if err != nil {
		return 0, 0, err
	}
	share1, err := div(liq, covered, width)
	if err != nil {
		return 0, 0, err
	}

	amount0, err := toUint64(share0)
	if err != nil {
		return 0, 0, err
	}
	amount1, err := toUint64(share1)
	if err != nil {
		return 0, 0, err
	}
	return amount0, amount1, nil
}

// SwapSegment executes an exact-input swap of amountIn against constant
// liquidity starting at sqrtPriceX96. The whole input is consumed.
//
// Pricing is Uniswap-v3 SqrtPriceMath, so quotes and the Swap events match
// V3 pools and the V3 log codec. Deposits use the linear split of
// AmountsForLiquidity instead, which values the same liquidity at roughly L
// tokens; a small swap can therefore push the price out of a narrow range
// and leave the vaults short of the (L, 0) payout. The ledger then rejects
// the withdrawal rather than overdrawing a vault.
func SwapSegment(sqrtPriceX96, liquidity uint128.Uint128, amountIn uint64, zeroForOne bool) (SegmentResult, error) {
	if amountIn == 0 || liquidity.IsZero() {
		return SegmentResult{}, ErrInsufficientAmount
	}

	price := widen(sqrtPriceX96)
	liq := widen(liquidity)
	in := uint256.NewInt(amountIn)

	var next, out *uint256.Int
	var err error
	if zeroForOne {
		next, err = nextSqrtPriceFromAmount0(price, liq, in)
		if err != nil {
			return SegmentResult{}, err
		}
		out, err = amount1Delta(next, price, liq)
	} else {
		next, err = nextSqrtPriceFromAmount1(price, liq, in)
		if err != nil {
			return SegmentResult{}, err
		}
		out, err = amount0Delta(price, next, liq)
	}
	if err != nil {
		return SegmentResult{}, err
	}

	nextPrice, err := narrow(next)
	if err != nil {
		return SegmentResult{}, err
	}
	if nextPrice.Cmp(MinSqrtRatio) < 0 {
		return SegmentResult{}, ErrArithmeticOverflow
	}
	amountOut, err := toUint64(out)
	if err != nil {
		return SegmentResult{}, err
	}

	return SegmentResult{
		AmountIn:      amountIn,
		AmountOut:     amountOut,
		SqrtPriceNext: nextPrice,
	}, nil
}

// nextSqrtPriceFromAmount0 is L*P / (L + in*P) in Q96, rounded up.
func nextSqrtPriceFromAmount0(price, liq, in *uint256.Int) (*uint256.Int, error) {
	numerator := new(uint256.Int).Lsh(liq, 96)
	product, overflow := new(uint256.Int).MulOverflow(in, price)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	denominator, overflow := new(uint256.Int).AddOverflow(numerator, product)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return mulDivRoundingUp(numerator, price, denominator)
}

// nextSqrtPriceFromAmount1 is P + in/L in Q96, rounded down.
func nextSqrtPriceFromAmount1(price, liq, in *uint256.Int) (*uint256.Int, error) {
	quotient, err := mulDiv(in, q96, liq)
	if err != nil {
		return nil, err
	}
	next, overflow := new(uint256.Int).AddOverflow(price, quotient)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return next, nil
}

// amount0Delta is L * (b - a) / (a * b) in Q96 for a <= b, rounded down.
func amount0Delta(a, b, liq *uint256.Int) (*uint256.Int, error) {
	if a.IsZero() {
		return nil, ErrArithmeticOverflow
	}
	numerator := new(uint256.Int).Lsh(liq, 96)
	diff := new(uint256.Int).Sub(b, a)
	scaled, err := mulDiv(numerator, diff, b)
	if err != nil {
		return nil, err
	}
	return scaled.Div(scaled, a), nil
}

// amount1Delta is L * (b - a) in Q96 for a <= b, rounded down.
func amount1Delta(a, b, liq *uint256.Int) (*uint256.Int, error) {
	diff := new(uint256.Int).Sub(b, a)
	return mulDiv(liq, diff, q96)
}

func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrArithmeticOverflow
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

func mulDivRoundingUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := mulDiv(x, y, d)
	if err != nil {
		return nil, err
	}
	if !new(uint256.Int).MulMod(x, y, d).IsZero() {
		if _, overflow := z.AddOverflow(z, one); overflow {
			return nil, ErrArithmeticOverflow
		}
	}
	return z, nil
}

func toUint64(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return v.Uint64(), nil
}
