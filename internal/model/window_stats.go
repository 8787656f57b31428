package model

import "time"

// PoolWindowStats summarizes journal activity of one pool over a window.
type PoolWindowStats struct {
	PoolAddress      string    `json:"pool"`
	WindowSizeSecs   int64     `json:"window_size_seconds"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
	SwapCount        uint64    `json:"swap_count"`
	MintCount        uint64    `json:"mint_count"`
	BurnCount        uint64    `json:"burn_count"`
	Volume0          string    `json:"volume0"`
	Volume1          string    `json:"volume1"`
	LiquidityAdded   string    `json:"liquidity_added"`
	LiquidityRemoved string    `json:"liquidity_removed"`
	OpenTick         int32     `json:"open_tick"`
	CloseTick        int32     `json:"close_tick"`
	CloseSqrtPrice   string    `json:"close_sqrt_price_x96,omitempty"`
}
