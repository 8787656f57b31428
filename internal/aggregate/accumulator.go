package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"clmm/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	PoolAddress      string
	WindowStart      uint64
	WindowEnd        uint64
	SwapCount        uint64
	MintCount        uint64
	BurnCount        uint64
	Volume0          *big.Int
	Volume1          *big.Int
	LiquidityAdded   *big.Int
	LiquidityRemoved *big.Int
	OpenTick         int32
	CloseTick        int32
	CloseSqrtPrice   string
	LastSeq          uint64
}

// NewAccumulator opens a window. prev is the pool's price state before the
// window, if known.
func NewAccumulator(pool string, windowStart, windowEnd uint64, prev *PriceState) *Accumulator {
	acc := &Accumulator{
		PoolAddress:      pool,
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		Volume0:          big.NewInt(0),
		Volume1:          big.NewInt(0),
		LiquidityAdded:   big.NewInt(0),
		LiquidityRemoved: big.NewInt(0),
	}
	if prev != nil {
		acc.OpenTick = prev.Tick
		acc.CloseTick = prev.Tick
		acc.CloseSqrtPrice = prev.SqrtPriceX96
	}
	return acc
}

// PriceState is the last known price of a pool.
type PriceState struct {
	Tick         int32
	SqrtPriceX96 string
}

func (a *Accumulator) AddEvent(record model.EventRecord) error {
	if record.Seq > a.LastSeq {
		a.LastSeq = record.Seq
	}

	switch record.EventName {
	case model.EventInitialize:
		var init model.InitializeEventData
		if err := json.Unmarshal(record.Decoded, &init); err != nil {
			return fmt.Errorf("decode initialize: %w", err)
		}
		a.OpenTick = init.Tick
		a.CloseTick = init.Tick
		a.CloseSqrtPrice = init.SqrtPriceX96
		return nil
	case model.EventSwap:
		var swap model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		return a.applySwap(swap)
	case model.EventMint:
		var mint model.MintEventData
		if err := json.Unmarshal(record.Decoded, &mint); err != nil {
			return fmt.Errorf("decode mint: %w", err)
		}
		amount, err := parseBigInt(mint.Amount)
		if err != nil {
			return err
		}
		a.LiquidityAdded.Add(a.LiquidityAdded, amount)
		a.MintCount++
		return nil
	case model.EventBurn:
		var burn model.BurnEventData
		if err := json.Unmarshal(record.Decoded, &burn); err != nil {
			return fmt.Errorf("decode burn: %w", err)
		}
		amount, err := parseBigInt(burn.Amount)
		if err != nil {
			return err
		}
		a.LiquidityRemoved.Add(a.LiquidityRemoved, amount)
		a.BurnCount++
		return nil
	default:
		return nil
	}
}

func (a *Accumulator) applySwap(swap model.SwapEventData) error {
	amount0, err := parseBigInt(swap.Amount0)
	if err != nil {
		return err
	}
	amount1, err := parseBigInt(swap.Amount1)
	if err != nil {
		return err
	}

	absAdd(a.Volume0, amount0)
	absAdd(a.Volume1, amount1)
	if a.SwapCount == 0 && a.CloseSqrtPrice == "" {
		a.OpenTick = swap.Tick
	}
	a.CloseTick = swap.Tick
	a.CloseSqrtPrice = swap.SqrtPriceX96
	a.SwapCount++
	return nil
}

// Stats renders the window for storage.
func (a *Accumulator) Stats(windowSeconds uint64) model.PoolWindowStats {
	return model.PoolWindowStats{
		PoolAddress:      a.PoolAddress,
		WindowSizeSecs:   int64(windowSeconds),
		WindowStart:      unixTime(a.WindowStart),
		WindowEnd:        unixTime(a.WindowEnd),
		SwapCount:        a.SwapCount,
		MintCount:        a.MintCount,
		BurnCount:        a.BurnCount,
		Volume0:          a.Volume0.String(),
		Volume1:          a.Volume1.String(),
		LiquidityAdded:   a.LiquidityAdded.String(),
		LiquidityRemoved: a.LiquidityRemoved.String(),
		OpenTick:         a.OpenTick,
		CloseTick:        a.CloseTick,
		CloseSqrtPrice:   a.CloseSqrtPrice,
	}
}

func (a *Accumulator) priceState() *PriceState {
	if a.CloseSqrtPrice == "" {
		return nil
	}
	return &PriceState{Tick: a.CloseTick, SqrtPriceX96: a.CloseSqrtPrice}
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

func absAdd(target *big.Int, value *big.Int) {
	if value == nil || target == nil {
		return
	}
	abs := new(big.Int).Abs(value)
	target.Add(target, abs)
}
