package postgres

// Amounts and liquidity exceed int64, so they are stored as NUMERIC.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS clmm_pools (
		pool_address TEXT PRIMARY KEY,
		token0 TEXT NOT NULL,
		token1 TEXT NOT NULL,
		vault0 TEXT NOT NULL,
		vault1 TEXT NOT NULL,
		tick_spacing INTEGER NOT NULL,
		sqrt_price_x96 NUMERIC NOT NULL,
		current_tick INTEGER NOT NULL,
		global_liquidity NUMERIC NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS clmm_positions (
		position_address TEXT PRIMARY KEY,
		pool_address TEXT NOT NULL,
		owner TEXT NOT NULL,
		tick_lower INTEGER NOT NULL,
		tick_upper INTEGER NOT NULL,
		liquidity NUMERIC NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS clmm_ticks (
		pool_address TEXT NOT NULL,
		tick_index INTEGER NOT NULL,
		tick_array TEXT NOT NULL,
		liquidity_gross NUMERIC NOT NULL,
		liquidity_net NUMERIC NOT NULL,
		PRIMARY KEY (pool_address, tick_index)
	)`,
	`CREATE TABLE IF NOT EXISTS clmm_events (
		seq BIGINT PRIMARY KEY,
		pool_address TEXT NOT NULL,
		event_name TEXT NOT NULL,
		ts BIGINT NOT NULL,
		decoded JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS pool_window_stats (
		pool_address TEXT NOT NULL,
		window_size_seconds BIGINT NOT NULL,
		window_start_ts TIMESTAMPTZ NOT NULL,
		window_end_ts TIMESTAMPTZ NOT NULL,
		swap_count BIGINT NOT NULL,
		mint_count BIGINT NOT NULL,
		burn_count BIGINT NOT NULL,
		volume0 NUMERIC NOT NULL,
		volume1 NUMERIC NOT NULL,
		liquidity_added NUMERIC NOT NULL,
		liquidity_removed NUMERIC NOT NULL,
		open_tick INTEGER NOT NULL,
		close_tick INTEGER NOT NULL,
		close_sqrt_price_x96 NUMERIC,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (pool_address, window_size_seconds, window_start_ts)
	)`,
	`CREATE TABLE IF NOT EXISTS clmm_state (
		name TEXT PRIMARY KEY,
		last_processed BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}
