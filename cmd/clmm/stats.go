package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clmm/internal/aggregate"
	"clmm/internal/config"
	"clmm/internal/model"
	"clmm/internal/storage"
	"clmm/internal/storage/postgres"
)

const journalStateName = "journal"

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate the event journal into per-pool time windows",
		RunE:  runStats,
	}
	cmd.Flags().String("window", "", "window size (e.g. 5m, 1h)")
	cmd.Flags().Int("batch-size", 0, "batch size for sink writes")
	cmd.Flags().String("aggregate-state", "", "aggregate state file (JSON)")
	cmd.Flags().String("recompute-from", "", "recompute windows from timestamp (unix or RFC3339)")
	cmd.Flags().String("stats-out", "./data/window_stats.jsonl", "window stats JSONL, used when no pg-dsn is set")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	windowSeconds, err := cfg.WindowSeconds()
	if err != nil {
		return err
	}
	var recomputeFrom uint64
	if cfg.RecomputeFrom != "" {
		recomputeFrom, err = config.ParseTimestamp(cfg.RecomputeFrom)
		if err != nil {
			return err
		}
	}

	ctx, stop := signalContext()
	defer stop()

	var sink aggregate.Sink
	var stateStore aggregate.StateStore
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = aggregate.PostgresSink{Store: store}
		stateStore = &aggregate.DBStateStore{Store: store, Name: fmt.Sprintf("aggregate_%ds", windowSeconds)}
	} else {
		statsOut, _ := cmd.Flags().GetString("stats-out")
		if statsOut == "" {
			return fmt.Errorf("stats-out path is required")
		}
		sink = aggregate.JsonlSink{Storage: storage.NewJsonlStorage(statsOut)}
	}
	if cfg.AggregateState != "" {
		stateStore = &aggregate.FileStateStore{Path: cfg.AggregateState}
	}

	logger.Info("aggregate start",
		zap.String("journal", cfg.Journal),
		zap.Uint64("window_seconds", windowSeconds),
		zap.Int("batch_size", cfg.BatchSize),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("state", cfg.AggregateState),
		zap.Uint64("recompute_from", recomputeFrom),
	)

	agg := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: windowSeconds,
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: recomputeFrom,
		StateStore:    stateStore,
	}, sink, logger)
	return agg.Run(ctx, cfg.Journal)
}

type syncOutput struct {
	Pools     int    `json:"pools"`
	Positions int    `json:"positions"`
	Events    int    `json:"events"`
	LastSeq   uint64 `json:"last_seq"`
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the state snapshot and new journal events into Postgres",
		RunE:  runSync,
	}
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().Int("batch-size", 0, "events per insert batch")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg-dsn is required")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	snap, _, err := storage.NewFileSnapshotStore(cfg.StateFile).Load()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.SyncSnapshot(ctx, snap); err != nil {
		return err
	}

	lastSeq, _, err := store.LoadState(ctx, journalStateName)
	if err != nil {
		return fmt.Errorf("load journal state: %w", err)
	}

	out := syncOutput{Pools: len(snap.Pools), Positions: len(snap.Positions), LastSeq: lastSeq}
	batch := make([]model.EventRecord, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.InsertEvents(ctx, batch); err != nil {
			return err
		}
		out.Events += len(batch)
		out.LastSeq = batch[len(batch)-1].Seq
		batch = batch[:0]
		return store.SaveState(ctx, journalStateName, out.LastSeq)
	}

	err = storage.ReadEventRecords(cfg.Journal, func(record model.EventRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if record.Seq <= lastSeq {
			return nil
		}
		batch = append(batch, record)
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("sync complete",
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("pools", out.Pools),
		zap.Int("positions", out.Positions),
		zap.Int("events", out.Events),
		zap.Uint64("last_seq", out.LastSeq),
	)
	return printJSON(cmd, out)
}
