package model

// PoolMeta describes a live V3 pool read over RPC.
type PoolMeta struct {
	Address     string     `json:"address"`
	Token0      TokenMeta  `json:"token0"`
	Token1      TokenMeta  `json:"token1"`
	Fee         uint32     `json:"fee"`
	TickSpacing int32      `json:"tick_spacing"`
	Liquidity   string     `json:"liquidity,omitempty"`
	Slot0       *PoolSlot0 `json:"slot0,omitempty"`
}

// PoolSlot0 includes select slot0 fields.
type PoolSlot0 struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
}

// TokenMeta captures ERC20 metadata. Symbol and Name may be empty.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
}
