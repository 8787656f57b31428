package tickmath

import (
	"errors"
	"testing"

	"lukechampine.com/uint128"
)

func TestSqrtPriceFromTickKnownValues(t *testing.T) {
	got, err := SqrtPriceFromTick(0)
	if err != nil {
		t.Fatalf("tick 0: %v", err)
	}
	if got.String() != "79228162514264337593543950336" {
		t.Fatalf("tick 0 sqrt price mismatch: %s", got)
	}

	got, err = SqrtPriceFromTick(MinTick)
	if err != nil {
		t.Fatalf("min tick: %v", err)
	}
	if !got.Equals(MinSqrtRatio) {
		t.Fatalf("min tick sqrt price mismatch: %s", got)
	}
}

func TestSqrtPriceFromTickOverflow(t *testing.T) {
	if _, err := SqrtPriceFromTick(MaxTick); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow for max tick, got %v", err)
	}
	if _, err := SqrtPriceFromTick(MinTick - 1); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow below min tick, got %v", err)
	}
}

func TestTickRoundTrip(t *testing.T) {
	ticks := []int32{MinTick, -600000, -100000, -4000, -61, -60, -1, 0, 1, 59, 60, 4000, 100000, 400000}
	for _, tick := range ticks {
		price, err := SqrtPriceFromTick(tick)
		if err != nil {
			t.Fatalf("sqrt price for %d: %v", tick, err)
		}
		back, err := TickFromSqrtPrice(price)
		if err != nil {
			t.Fatalf("tick for %d: %v", tick, err)
		}
		if back != tick {
			t.Fatalf("round trip mismatch: %d -> %s -> %d", tick, price, back)
		}
	}
}

func TestTickFromSqrtPriceTruncatesDown(t *testing.T) {
	price, err := SqrtPriceFromTick(100)
	if err != nil {
		t.Fatalf("sqrt price: %v", err)
	}
	tick, err := TickFromSqrtPrice(price.Add64(1))
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if tick != 100 {
		t.Fatalf("expected tick 100 just above boundary, got %d", tick)
	}
	tick, err = TickFromSqrtPrice(price.Sub64(1))
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if tick != 99 {
		t.Fatalf("expected tick 99 just below boundary, got %d", tick)
	}
}

func TestTickFromSqrtPriceBelowMin(t *testing.T) {
	if _, err := TickFromSqrtPrice(MinSqrtRatio.Sub64(1)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestSqrtPriceMonotonic(t *testing.T) {
	prev, err := SqrtPriceFromTick(-2000)
	if err != nil {
		t.Fatalf("sqrt price: %v", err)
	}
	for tick := int32(-1999); tick <= 2000; tick += 7 {
		cur, err := SqrtPriceFromTick(tick)
		if err != nil {
			t.Fatalf("sqrt price %d: %v", tick, err)
		}
		if cur.Cmp(prev) <= 0 {
			t.Fatalf("not strictly increasing at %d: %s <= %s", tick, cur, prev)
		}
		prev = cur
	}
}

func TestAmountsForLiquidityBelowRange(t *testing.T) {
	p := uint128.From64(1_000_000)
	liquidity := uint128.From64(5000)

	amount0, amount1, err := AmountsForLiquidity(p, p.Add64(1), p.Add64(10), liquidity)
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}
	if amount0 != 5000 || amount1 != 0 {
		t.Fatalf("below range mismatch: %d %d", amount0, amount1)
	}
}

func TestAmountsForLiquidityAboveRange(t *testing.T) {
	liquidity := uint128.From64(5000)
	amount0, amount1, err := AmountsForLiquidity(uint128.From64(200), uint128.From64(100), uint128.From64(200), liquidity)
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}
	if amount0 != 0 || amount1 != 5000 {
		t.Fatalf("at upper mismatch: %d %d", amount0, amount1)
	}
}

func TestAmountsForLiquidityInsideRange(t *testing.T) {
	liquidity := uint128.From64(1000)
	amount0, amount1, err := AmountsForLiquidity(uint128.From64(150), uint128.From64(100), uint128.From64(200), liquidity)
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}
	if amount0 != 500 || amount1 != 500 {
		t.Fatalf("inside range mismatch: %d %d", amount0, amount1)
	}

	amount0, amount1, err = AmountsForLiquidity(uint128.From64(100), uint128.From64(100), uint128.From64(200), liquidity)
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}
	if amount0 != 1000 || amount1 != 0 {
		t.Fatalf("at lower mismatch: %d %d", amount0, amount1)
	}
}

func TestAmountsForLiquidityMonotonic(t *testing.T) {
	lower, err := SqrtPriceFromTick(-600)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	upper, err := SqrtPriceFromTick(600)
	if err != nil {
		t.Fatalf("upper: %v", err)
	}
	liquidity := uint128.From64(1_000_000_007)

	var prev0, prev1 uint64
	for tick := int32(-700); tick <= 700; tick += 10 {
		current, err := SqrtPriceFromTick(tick)
		if err != nil {
			t.Fatalf("current: %v", err)
		}
		amount0, amount1, err := AmountsForLiquidity(current, lower, upper, liquidity)
		if err != nil {
			t.Fatalf("amounts at %d: %v", tick, err)
		}
		if amount0+amount1 != 1_000_000_007 {
			t.Fatalf("split does not conserve liquidity at %d: %d + %d", tick, amount0, amount1)
		}
		if tick > -700 && (amount0 > prev0 || amount1 < prev1) {
			t.Fatalf("split not monotonic at %d: (%d,%d) after (%d,%d)", tick, amount0, amount1, prev0, prev1)
		}
		prev0, prev1 = amount0, amount1
	}
}

func TestAmountsForLiquidityErrors(t *testing.T) {
	if _, _, err := AmountsForLiquidity(uint128.From64(1), uint128.From64(5), uint128.From64(5), uint128.From64(1)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
	huge := uint128.Max
	if _, _, err := AmountsForLiquidity(uint128.From64(1), uint128.From64(5), uint128.From64(9), huge); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestAmountsForLiquidityDeltaRounding(t *testing.T) {
	lower, upper := uint128.From64(100), uint128.From64(400)
	current := uint128.From64(200)

	in0, in1, err := AmountsForLiquidityDelta(current, lower, upper, uint128.From64(1000), true)
	if err != nil {
		t.Fatalf("deposit amounts: %v", err)
	}
	if in0 != 667 || in1 != 334 {
		t.Fatalf("deposit should round up: %d %d", in0, in1)
	}
	out0, out1, err := AmountsForLiquidityDelta(current, lower, upper, uint128.From64(1000), false)
	if err != nil {
		t.Fatalf("withdraw amounts: %v", err)
	}
	if out0 != 666 || out1 != 333 {
		t.Fatalf("withdrawal should round down: %d %d", out0, out1)
	}

	var dep0, dep1 uint64
	for i := 0; i < 3; i++ {
		a0, a1, _ := AmountsForLiquidityDelta(current, lower, upper, uint128.From64(333), true)
		dep0, dep1 = dep0+a0, dep1+a1
	}
	w0, w1, _ := AmountsForLiquidityDelta(current, lower, upper, uint128.From64(999), false)
	if w0 > dep0 || w1 > dep1 {
		t.Fatalf("withdrawal (%d,%d) exceeds deposits (%d,%d)", w0, w1, dep0, dep1)
	}

	b0, b1, _ := AmountsForLiquidityDelta(uint128.From64(50), lower, upper, uint128.From64(1000), true)
	if b0 != 1000 || b1 != 0 {
		t.Fatalf("below range mismatch: %d %d", b0, b1)
	}
}

func TestSwapSegmentZeroForOne(t *testing.T) {
	price, err := SqrtPriceFromTick(0)
	if err != nil {
		t.Fatalf("sqrt price: %v", err)
	}
	res, err := SwapSegment(price, uint128.From64(1_000_000), 1000, true)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.AmountIn != 1000 {
		t.Fatalf("amount in mismatch: %d", res.AmountIn)
	}
	if res.AmountOut != 999 {
		t.Fatalf("amount out mismatch: %d", res.AmountOut)
	}
	if res.SqrtPriceNext.Cmp(price) >= 0 {
		t.Fatalf("price should fall: %s >= %s", res.SqrtPriceNext, price)
	}
	tick, err := TickFromSqrtPrice(res.SqrtPriceNext)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if tick >= 0 {
		t.Fatalf("tick should be negative after selling token0, got %d", tick)
	}
}

func TestSwapSegmentOneForZero(t *testing.T) {
	price, err := SqrtPriceFromTick(0)
	if err != nil {
		t.Fatalf("sqrt price: %v", err)
	}
	res, err := SwapSegment(price, uint128.From64(1_000_000), 1000, false)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.AmountOut != 999 {
		t.Fatalf("amount out mismatch: %d", res.AmountOut)
	}
	if res.SqrtPriceNext.Cmp(price) <= 0 {
		t.Fatalf("price should rise: %s <= %s", res.SqrtPriceNext, price)
	}
}

func TestSwapSegmentRejectsEmptyInput(t *testing.T) {
	price, _ := SqrtPriceFromTick(0)
	if _, err := SwapSegment(price, uint128.From64(10), 0, true); !errors.Is(err, ErrInsufficientAmount) {
		t.Fatalf("expected insufficient amount for zero input, got %v", err)
	}
	if _, err := SwapSegment(price, uint128.Zero, 10, true); !errors.Is(err, ErrInsufficientAmount) {
		t.Fatalf("expected insufficient amount for zero liquidity, got %v", err)
	}
}

func TestSwapSegmentPriceOverflow(t *testing.T) {
	price, _ := SqrtPriceFromTick(400000)
	if _, err := SwapSegment(price, uint128.From64(1), ^uint64(0), false); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow pushing price past 128 bits, got %v", err)
	}
}
