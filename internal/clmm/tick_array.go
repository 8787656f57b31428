package clmm

import (
	"math"
	"math/big"

	"lukechampine.com/uint128"
)

var (
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
)

// StartingTickFor returns the first tick of the partition that covers tick.
// Negative ticks round toward negative infinity so every tick of a partition
// resolves to the same start.
func StartingTickFor(tick, tickSpacing int32) (int32, error) {
	if tickSpacing <= 0 {
		return 0, ErrArithmeticOverflow
	}
	units := floorDiv(int64(tick), int64(tickSpacing))
	arrayIdx := floorDiv(units, TicksPerArray)
	start := arrayIdx * TicksPerArray * int64(tickSpacing)
	if start < math.MinInt32 || start > math.MaxInt32 {
		return 0, ErrArithmeticOverflow
	}
	return int32(start), nil
}

// SlotFor resolves tick to its slot: ((tick/spacing) - (start/spacing)) mod TicksPerArray.
func (a *TickArray) SlotFor(tick, tickSpacing int32) (int, error) {
	if tickSpacing <= 0 {
		return 0, ErrArithmeticOverflow
	}
	offset := floorDiv(int64(tick), int64(tickSpacing)) - floorDiv(int64(a.StartingTick), int64(tickSpacing))
	slot := offset % TicksPerArray
	if slot < 0 {
		slot += TicksPerArray
	}
	return int(slot), nil
}

// Covers reports whether tick falls inside this partition.
func (a *TickArray) Covers(tick, tickSpacing int32) bool {
	start, err := StartingTickFor(tick, tickSpacing)
	if err != nil {
		return false
	}
	return start == a.StartingTick
}

// Tick returns a copy of the bookkeeping for tick.
func (a *TickArray) Tick(tick, tickSpacing int32) (TickInfo, error) {
	if !a.Covers(tick, tickSpacing) {
		return TickInfo{}, ErrTickArrayMismatch
	}
	slot, err := a.SlotFor(tick, tickSpacing)
	if err != nil {
		return TickInfo{}, err
	}
	info := a.Ticks[slot]
	info.LiquidityNet = info.Net()
	return info, nil
}

// ApplyLiquidityDelta records a signed liquidity change at tick, which is
// the lower boundary of the position when isLower is set and the upper one
// otherwise. The slot is left untouched on error.
func (a *TickArray) ApplyLiquidityDelta(tick, tickSpacing int32, delta *big.Int, isLower bool) error {
	if !a.Covers(tick, tickSpacing) {
		return ErrTickArrayMismatch
	}
	slot, err := a.SlotFor(tick, tickSpacing)
	if err != nil {
		return err
	}
	if delta.Cmp(minInt128) <= 0 || delta.Cmp(maxInt128) > 0 {
		return ErrArithmeticOverflow
	}

	// Gross follows the signed delta so that closing every position on a
	// tick returns it to zero gross and net. It is never raised by |delta|
	// on removal; Initialized stays set either way.
	info := a.Ticks[slot]
	magnitude := uint128.FromBig(new(big.Int).Abs(delta))
	if delta.Sign() >= 0 {
		info.LiquidityGross, err = checkedAdd(info.LiquidityGross, magnitude)
	} else {
		info.LiquidityGross, err = checkedSub(info.LiquidityGross, magnitude)
	}
	if err != nil {
		return err
	}

	net := info.Net()
	if isLower {
		net.Add(net, delta)
	} else {
		net.Sub(net, delta)
	}
	if net.Cmp(minInt128) < 0 || net.Cmp(maxInt128) > 0 {
		return ErrArithmeticOverflow
	}

	info.Initialized = true
	info.LiquidityNet = net
	a.Ticks[slot] = info
	return nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func checkedAdd(a, b uint128.Uint128) (uint128.Uint128, error) {
	sum := a.AddWrap(b)
	if sum.Cmp(a) < 0 {
		return uint128.Zero, ErrArithmeticOverflow
	}
	return sum, nil
}

func checkedSub(a, b uint128.Uint128) (uint128.Uint128, error) {
	if a.Cmp(b) < 0 {
		return uint128.Zero, ErrArithmeticOverflow
	}
	return a.Sub(b), nil
}
