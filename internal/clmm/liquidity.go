package clmm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"
)

// LiquidityAccounts are the records one liquidity operation touches.
// Lower and Upper may point to the same array when both boundaries share a
// partition. Position is never nil; an uninitialized record stands for a
// position that does not exist yet.
type LiquidityAccounts struct {
	Pool     *Pool
	Lower    *TickArray
	Upper    *TickArray
	Position *Position
}

func (a LiquidityAccounts) clone() LiquidityAccounts {
	out := LiquidityAccounts{
		Pool:     a.Pool.Clone(),
		Lower:    a.Lower.Clone(),
		Position: a.Position.Clone(),
	}
	if a.Upper == a.Lower {
		out.Upper = out.Lower
	} else {
		out.Upper = a.Upper.Clone()
	}
	return out
}

// Result is the staged outcome of a liquidity operation. Nothing is applied
// until the caller executes Transfers and stores the records.
type Result struct {
	Pool      *Pool
	Lower     *TickArray
	Upper     *TickArray
	Position  *Position
	Amount0   uint64
	Amount1   uint64
	Transfers []Transfer
	// ClosePosition marks the position record for deletion.
	ClosePosition bool
}

// OpenPosition adds liquidity for owner over [lower, upper), creating the
// position when the record is uninitialized.
func OpenPosition(acc LiquidityAccounts, owner common.Address, lower, upper int32, liquidity uint128.Uint128) (*Result, error) {
	if err := checkAccounts(acc); err != nil {
		return nil, err
	}
	if err := ValidateTickRange(lower, upper, acc.Pool.TickSpacing); err != nil {
		return nil, err
	}
	if liquidity.IsZero() {
		return nil, ErrInsufficientAmount
	}
	if !acc.Pool.InRange(lower, upper) {
		return nil, ErrMintRangeMustCoverCurrentPrice
	}

	staged := acc.clone()
	pos := staged.Position
	if pos.IsInitialized() {
		if err := checkOwnership(pos, staged.Pool, owner, lower, upper); err != nil {
			return nil, err
		}
	} else {
		pos.Owner = owner
		pos.Pool = staged.Pool.Address
		pos.TickLower = lower
		pos.TickUpper = upper
		pos.Liquidity = uint128.Zero
	}
	return addLiquidity(staged, owner, lower, upper, liquidity)
}

// IncreaseLiquidity adds liquidity to an existing position.
func IncreaseLiquidity(acc LiquidityAccounts, owner common.Address, lower, upper int32, liquidity uint128.Uint128) (*Result, error) {
	if err := checkAccounts(acc); err != nil {
		return nil, err
	}
	if err := ValidateTickRange(lower, upper, acc.Pool.TickSpacing); err != nil {
		return nil, err
	}
	if liquidity.IsZero() {
		return nil, ErrInsufficientAmount
	}
	if !acc.Position.IsInitialized() {
		return nil, ErrPositionNotFound
	}
	if err := checkOwnership(acc.Position, acc.Pool, owner, lower, upper); err != nil {
		return nil, err
	}
	if !acc.Pool.InRange(lower, upper) {
		return nil, ErrMintRangeMustCoverCurrentPrice
	}
	return addLiquidity(acc.clone(), owner, lower, upper, liquidity)
}

// DecreaseLiquidity removes liquidity from a position and pays the owed
// amounts out of the vaults. A position drained to zero is marked for
// closure like ClosePosition.
func DecreaseLiquidity(acc LiquidityAccounts, owner common.Address, lower, upper int32, liquidity uint128.Uint128) (*Result, error) {
	if err := checkAccounts(acc); err != nil {
		return nil, err
	}
	if err := ValidateTickRange(lower, upper, acc.Pool.TickSpacing); err != nil {
		return nil, err
	}
	if liquidity.IsZero() {
		return nil, ErrInsufficientAmount
	}
	if !acc.Position.IsInitialized() {
		return nil, ErrPositionNotFound
	}
	if err := checkOwnership(acc.Position, acc.Pool, owner, lower, upper); err != nil {
		return nil, err
	}
	res, err := removeLiquidity(acc.clone(), owner, lower, upper, liquidity)
	if err != nil {
		return nil, err
	}
	res.ClosePosition = res.Position.Liquidity.IsZero()
	return res, nil
}

// ClosePosition withdraws all of a position's liquidity and marks the record
// for deletion.
func ClosePosition(acc LiquidityAccounts, owner common.Address, lower, upper int32) (*Result, error) {
	if err := checkAccounts(acc); err != nil {
		return nil, err
	}
	if err := ValidateTickRange(lower, upper, acc.Pool.TickSpacing); err != nil {
		return nil, err
	}
	if acc.Position.Liquidity.IsZero() {
		return nil, ErrNoLiquidityToRemove
	}
	if err := checkOwnership(acc.Position, acc.Pool, owner, lower, upper); err != nil {
		return nil, err
	}
	res, err := removeLiquidity(acc.clone(), owner, lower, upper, acc.Position.Liquidity)
	if err != nil {
		return nil, err
	}
	res.ClosePosition = true
	return res, nil
}

func addLiquidity(staged LiquidityAccounts, owner common.Address, lower, upper int32, liquidity uint128.Uint128) (*Result, error) {
	if err := applyBoundaries(staged, lower, upper, liquidity.Big()); err != nil {
		return nil, err
	}

	var err error
	staged.Position.Liquidity, err = checkedAdd(staged.Position.Liquidity, liquidity)
	if err != nil {
		return nil, err
	}
	staged.Pool.GlobalLiquidity, err = checkedAdd(staged.Pool.GlobalLiquidity, liquidity)
	if err != nil {
		return nil, err
	}

	amount0, amount1, err := staged.Pool.AmountsForRange(lower, upper, liquidity, true)
	if err != nil {
		return nil, err
	}
	pool := staged.Pool
	var transfers transferList
	transfers.add(pool.Token0, owner, pool.Vault0, owner, amount0)
	transfers.add(pool.Token1, owner, pool.Vault1, owner, amount1)

	return newResult(staged, amount0, amount1, transfers), nil
}

func removeLiquidity(staged LiquidityAccounts, owner common.Address, lower, upper int32, liquidity uint128.Uint128) (*Result, error) {
	var err error
	staged.Position.Liquidity, err = checkedSub(staged.Position.Liquidity, liquidity)
	if err != nil {
		return nil, err
	}
	if err := applyBoundaries(staged, lower, upper, new(big.Int).Neg(liquidity.Big())); err != nil {
		return nil, err
	}
	staged.Pool.GlobalLiquidity, err = checkedSub(staged.Pool.GlobalLiquidity, liquidity)
	if err != nil {
		return nil, err
	}

	amount0, amount1, err := staged.Pool.AmountsForRange(lower, upper, liquidity, false)
	if err != nil {
		return nil, err
	}
	pool := staged.Pool
	var transfers transferList
	transfers.add(pool.Token0, pool.Vault0, owner, pool.Address, amount0)
	transfers.add(pool.Token1, pool.Vault1, owner, pool.Address, amount1)

	return newResult(staged, amount0, amount1, transfers), nil
}

func applyBoundaries(staged LiquidityAccounts, lower, upper int32, delta *big.Int) error {
	spacing := staged.Pool.TickSpacing
	if err := staged.Lower.ApplyLiquidityDelta(lower, spacing, delta, true); err != nil {
		return err
	}
	return staged.Upper.ApplyLiquidityDelta(upper, spacing, delta, false)
}

func checkAccounts(acc LiquidityAccounts) error {
	if acc.Pool == nil {
		return ErrPoolNotFound
	}
	if acc.Position == nil {
		return ErrPositionNotFound
	}
	if acc.Lower == nil || acc.Upper == nil {
		return ErrTickArrayMismatch
	}
	if acc.Lower.Pool != acc.Pool.Address || acc.Upper.Pool != acc.Pool.Address {
		return ErrTickArrayMismatch
	}
	return nil
}

func checkOwnership(pos *Position, pool *Pool, owner common.Address, lower, upper int32) error {
	if pos.Owner != owner {
		return ErrUnauthorized
	}
	if pos.Pool != pool.Address || pos.TickLower != lower || pos.TickUpper != upper {
		return ErrInvalidPositionRange
	}
	return nil
}

func newResult(staged LiquidityAccounts, amount0, amount1 uint64, transfers transferList) *Result {
	return &Result{
		Pool:      staged.Pool,
		Lower:     staged.Lower,
		Upper:     staged.Upper,
		Position:  staged.Position,
		Amount0:   amount0,
		Amount1:   amount1,
		Transfers: transfers,
	}
}
