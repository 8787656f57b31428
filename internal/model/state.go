package model

// Pool is the persisted form of a pool record. Big values are decimal strings.
type Pool struct {
	Address         string `json:"address"`
	Token0          string `json:"token0"`
	Token1          string `json:"token1"`
	Vault0          string `json:"vault0"`
	Vault1          string `json:"vault1"`
	TickSpacing     int32  `json:"tick_spacing"`
	SqrtPriceX96    string `json:"sqrt_price_x96"`
	CurrentTick     int32  `json:"current_tick"`
	GlobalLiquidity string `json:"global_liquidity"`
}

// Position is the persisted form of a liquidity position.
type Position struct {
	Address   string `json:"address"`
	Owner     string `json:"owner"`
	Pool      string `json:"pool"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Liquidity string `json:"liquidity"`
}

// TickArray is the persisted form of a tick partition. Only initialized
// ticks are listed.
type TickArray struct {
	Address      string `json:"address"`
	Pool         string `json:"pool"`
	StartingTick int32  `json:"starting_tick"`
	Ticks        []Tick `json:"ticks"`
}

// Tick is one initialized tick of a TickArray.
type Tick struct {
	Index          int32  `json:"index"`
	LiquidityGross string `json:"liquidity_gross"`
	LiquidityNet   string `json:"liquidity_net"`
}

// TokenAccount is a balance held by Address in Mint.
type TokenAccount struct {
	Mint    string `json:"mint"`
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Amount  uint64 `json:"amount"`
}

// Snapshot is the full engine state written between CLI invocations.
type Snapshot struct {
	Seq        uint64         `json:"seq"`
	UpdatedAt  string         `json:"updated_at,omitempty"`
	Pools      []Pool         `json:"pools"`
	Positions  []Position     `json:"positions"`
	TickArrays []TickArray    `json:"tick_arrays"`
	Accounts   []TokenAccount `json:"accounts"`
}
