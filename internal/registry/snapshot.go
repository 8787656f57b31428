package registry

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/uint128"

	"clmm/internal/clmm"
	"clmm/internal/model"
)

// Snapshot renders every record in its persisted form. Accounts and Seq are
// left for the caller to fill.
func (s *Store) Snapshot() model.Snapshot {
	snap := model.Snapshot{
		Pools:      make([]model.Pool, 0),
		Positions:  make([]model.Position, 0),
		TickArrays: make([]model.TickArray, 0),
	}
	for _, pool := range s.Pools() {
		snap.Pools = append(snap.Pools, PoolToModel(pool))
	}
	for _, pos := range s.Positions(common.Address{}) {
		snap.Positions = append(snap.Positions, PositionToModel(pos))
	}
	for _, arr := range s.TickArrays(common.Address{}) {
		snap.TickArrays = append(snap.TickArrays, TickArrayToModel(arr))
	}
	return snap
}

// Restore replaces the store contents with the records of snap.
func (s *Store) Restore(snap model.Snapshot) error {
	pools := make(map[common.Address]*clmm.Pool, len(snap.Pools))
	for _, rec := range snap.Pools {
		pool, err := PoolFromModel(rec)
		if err != nil {
			return fmt.Errorf("restore pool %s: %w", rec.Address, err)
		}
		pools[pool.Address] = pool
	}
	positions := make(map[common.Address]*clmm.Position, len(snap.Positions))
	for _, rec := range snap.Positions {
		pos, err := PositionFromModel(rec)
		if err != nil {
			return fmt.Errorf("restore position %s: %w", rec.Address, err)
		}
		positions[pos.Address] = pos
	}
	arrays := make(map[common.Address]*clmm.TickArray, len(snap.TickArrays))
	for _, rec := range snap.TickArrays {
		arr, err := TickArrayFromModel(rec, pools)
		if err != nil {
			return fmt.Errorf("restore tick array %s: %w", rec.Address, err)
		}
		arrays[arr.Address] = arr
	}

	s.mu.Lock()
	s.pools = pools
	s.positions = positions
	s.tickArrays = arrays
	s.mu.Unlock()
	return nil
}

func PoolToModel(pool *clmm.Pool) model.Pool {
	return model.Pool{
		Address:         pool.Address.Hex(),
		Token0:          pool.Token0.Hex(),
		Token1:          pool.Token1.Hex(),
		Vault0:          pool.Vault0.Hex(),
		Vault1:          pool.Vault1.Hex(),
		TickSpacing:     pool.TickSpacing,
		SqrtPriceX96:    pool.SqrtPriceX96.String(),
		CurrentTick:     pool.CurrentTick,
		GlobalLiquidity: pool.GlobalLiquidity.String(),
	}
}

func PoolFromModel(rec model.Pool) (*clmm.Pool, error) {
	price, err := uint128.FromString(rec.SqrtPriceX96)
	if err != nil {
		return nil, fmt.Errorf("sqrt price: %w", err)
	}
	liquidity, err := uint128.FromString(rec.GlobalLiquidity)
	if err != nil {
		return nil, fmt.Errorf("global liquidity: %w", err)
	}
	if rec.TickSpacing <= 0 {
		return nil, clmm.ErrInvalidTickRange
	}
	return &clmm.Pool{
		Address:         common.HexToAddress(rec.Address),
		Token0:          common.HexToAddress(rec.Token0),
		Token1:          common.HexToAddress(rec.Token1),
		Vault0:          common.HexToAddress(rec.Vault0),
		Vault1:          common.HexToAddress(rec.Vault1),
		GlobalLiquidity: liquidity,
		SqrtPriceX96:    price,
		CurrentTick:     rec.CurrentTick,
		TickSpacing:     rec.TickSpacing,
	}, nil
}

func PositionToModel(pos *clmm.Position) model.Position {
	return model.Position{
		Address:   pos.Address.Hex(),
		Owner:     pos.Owner.Hex(),
		Pool:      pos.Pool.Hex(),
		TickLower: pos.TickLower,
		TickUpper: pos.TickUpper,
		Liquidity: pos.Liquidity.String(),
	}
}

func PositionFromModel(rec model.Position) (*clmm.Position, error) {
	liquidity, err := uint128.FromString(rec.Liquidity)
	if err != nil {
		return nil, fmt.Errorf("liquidity: %w", err)
	}
	return &clmm.Position{
		Address:   common.HexToAddress(rec.Address),
		Liquidity: liquidity,
		TickLower: rec.TickLower,
		TickUpper: rec.TickUpper,
		Owner:     common.HexToAddress(rec.Owner),
		Pool:      common.HexToAddress(rec.Pool),
	}, nil
}

// TickArrayToModel lists the initialized ticks of arr by tick index.
func TickArrayToModel(arr *clmm.TickArray) model.TickArray {
	rec := model.TickArray{
		Address:      arr.Address.Hex(),
		Pool:         arr.Pool.Hex(),
		StartingTick: arr.StartingTick,
		Ticks:        make([]model.Tick, 0),
	}
	for i, info := range arr.Ticks {
		if !info.Initialized {
			continue
		}
		rec.Ticks = append(rec.Ticks, model.Tick{
			Index:          arr.TickIndex(i),
			LiquidityGross: info.LiquidityGross.String(),
			LiquidityNet:   info.Net().String(),
		})
	}
	return rec
}

// TickArrayFromModel rebuilds a tick array; the owning pool supplies the
// spacing needed to place each tick in its slot.
func TickArrayFromModel(rec model.TickArray, pools map[common.Address]*clmm.Pool) (*clmm.TickArray, error) {
	poolAddr := common.HexToAddress(rec.Pool)
	pool, ok := pools[poolAddr]
	if !ok {
		return nil, clmm.ErrPoolNotFound
	}
	arr := clmm.NewTickArray(common.HexToAddress(rec.Address), poolAddr, rec.StartingTick, pool.TickSpacing)
	for _, tick := range rec.Ticks {
		if !arr.Covers(tick.Index, pool.TickSpacing) {
			return nil, fmt.Errorf("tick %d: %w", tick.Index, clmm.ErrTickArrayMismatch)
		}
		slot, err := arr.SlotFor(tick.Index, pool.TickSpacing)
		if err != nil {
			return nil, err
		}
		gross, err := uint128.FromString(tick.LiquidityGross)
		if err != nil {
			return nil, fmt.Errorf("tick %d gross: %w", tick.Index, err)
		}
		net, ok := new(big.Int).SetString(tick.LiquidityNet, 10)
		if !ok {
			return nil, fmt.Errorf("tick %d net: invalid int %q", tick.Index, tick.LiquidityNet)
		}
		arr.Ticks[slot] = clmm.TickInfo{
			Initialized:    true,
			LiquidityGross: gross,
			LiquidityNet:   net,
		}
	}
	return arr, nil
}
