package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clmm/internal/model"
)

// Store mirrors engine state, the journal and window stats into Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the mirror tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SyncSnapshot replaces the mirrored pools, positions and ticks with snap in
// one transaction. Pools are upserted; positions and ticks are rewritten so
// closed positions disappear from the mirror.
func (s *Store) SyncSnapshot(ctx context.Context, snap model.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin sync: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range snap.Pools {
		batch.Queue(`
			INSERT INTO clmm_pools (
				pool_address, token0, token1, vault0, vault1, tick_spacing,
				sqrt_price_x96, current_tick, global_liquidity, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
				current_tick = EXCLUDED.current_tick,
				global_liquidity = EXCLUDED.global_liquidity,
				updated_at = now()
		`,
			p.Address,
			p.Token0,
			p.Token1,
			p.Vault0,
			p.Vault1,
			p.TickSpacing,
			p.SqrtPriceX96,
			p.CurrentTick,
			p.GlobalLiquidity,
		)
	}
	batch.Queue(`DELETE FROM clmm_positions`)
	for _, pos := range snap.Positions {
		batch.Queue(`
			INSERT INTO clmm_positions (
				position_address, pool_address, owner, tick_lower, tick_upper, liquidity, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now())
		`,
			pos.Address,
			pos.Pool,
			pos.Owner,
			pos.TickLower,
			pos.TickUpper,
			pos.Liquidity,
		)
	}
	batch.Queue(`DELETE FROM clmm_ticks`)
	for _, arr := range snap.TickArrays {
		for _, tick := range arr.Ticks {
			batch.Queue(`
				INSERT INTO clmm_ticks (
					pool_address, tick_index, tick_array, liquidity_gross, liquidity_net
				) VALUES ($1, $2, $3, $4, $5)
			`,
				arr.Pool,
				tick.Index,
				arr.Address,
				tick.LiquidityGross,
				tick.LiquidityNet,
			)
		}
	}

	if err := execBatch(ctx, tx, batch); err != nil {
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sync: %w", err)
	}
	return nil
}

// InsertEvents appends journal records; already mirrored sequence numbers
// are skipped.
func (s *Store) InsertEvents(ctx context.Context, events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		decoded := ev.Decoded
		if len(decoded) == 0 {
			decoded = json.RawMessage("null")
		}
		batch.Queue(`
			INSERT INTO clmm_events (seq, pool_address, event_name, ts, decoded)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (seq) DO NOTHING
		`,
			int64(ev.Seq),
			ev.Pool,
			ev.EventName,
			int64(ev.Timestamp),
			[]byte(decoded),
		)
	}
	return execBatch(ctx, s.pool, batch)
}

// UpsertWindowStats inserts or updates aggregated pool windows.
func (s *Store) UpsertWindowStats(ctx context.Context, stats []model.PoolWindowStats) error {
	if len(stats) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range stats {
		batch.Queue(`
			INSERT INTO pool_window_stats (
				pool_address, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, mint_count, burn_count, volume0, volume1,
				liquidity_added, liquidity_removed, open_tick, close_tick, close_sqrt_price_x96,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
			ON CONFLICT (pool_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				mint_count = EXCLUDED.mint_count,
				burn_count = EXCLUDED.burn_count,
				volume0 = EXCLUDED.volume0,
				volume1 = EXCLUDED.volume1,
				liquidity_added = EXCLUDED.liquidity_added,
				liquidity_removed = EXCLUDED.liquidity_removed,
				open_tick = EXCLUDED.open_tick,
				close_tick = EXCLUDED.close_tick,
				close_sqrt_price_x96 = EXCLUDED.close_sqrt_price_x96,
				updated_at = now()
		`,
			m.PoolAddress,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			int64(m.MintCount),
			int64(m.BurnCount),
			m.Volume0,
			m.Volume1,
			m.LiquidityAdded,
			m.LiquidityRemoved,
			m.OpenTick,
			m.CloseTick,
			nullableNumeric(m.CloseSqrtPrice),
		)
	}
	return execBatch(ctx, s.pool, batch)
}

// LoadState returns the last processed value stored under name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var value int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM clmm_state WHERE name=$1`, name)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(value), true, nil
}

// SaveState upserts the last processed value for name.
func (s *Store) SaveState(ctx context.Context, name string, value uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO clmm_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, int64(value))
	return err
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func execBatch(ctx context.Context, conn batchSender, batch *pgx.Batch) error {
	br := conn.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func nullableNumeric(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
