package aggregate

import (
	"context"

	"clmm/internal/model"
	"clmm/internal/storage"
	"clmm/internal/storage/postgres"
)

// JsonlSink appends windows to a JSONL file.
type JsonlSink struct {
	Storage *storage.JsonlStorage
}

func (s JsonlSink) PutWindowStats(_ context.Context, stats []model.PoolWindowStats) error {
	return s.Storage.PutWindowStats(stats)
}

// PostgresSink upserts windows into pool_window_stats.
type PostgresSink struct {
	Store *postgres.Store
}

func (s PostgresSink) PutWindowStats(ctx context.Context, stats []model.PoolWindowStats) error {
	return s.Store.UpsertWindowStats(ctx, stats)
}
