package aggregate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"clmm/internal/model"
	"clmm/internal/storage"
)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Sink receives finished pool windows.
type Sink interface {
	PutWindowStats(ctx context.Context, stats []model.PoolWindowStats) error
}

// Aggregator folds journal events into per-pool time windows.
type Aggregator struct {
	cfg          Config
	sink         Sink
	logger       *zap.Logger
	accumulators map[string]*Accumulator
	prices       map[string]*PriceState
}

func NewAggregator(cfg Config, sink Sink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
		prices:       make(map[string]*PriceState),
	}
}

// Run aggregates a journal JSONL file. Windows still open when the file ends
// are flushed as well; the saved state points before the earliest of them so
// the next run recomputes them in full.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	batch := make([]model.PoolWindowStats, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, windows, skipped, failed int

	err = storage.ReadEventRecords(inputPath, func(record model.EventRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		total++

		key := poolKey(record.Pool)
		if record.Timestamp <= startTs {
			// Price state before the resume point still seeds the next window.
			a.trackPrice(key, record)
			skipped++
			return nil
		}

		start := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		end := start + a.cfg.WindowSeconds

		acc := a.accumulators[key]
		if acc == nil {
			acc = NewAccumulator(record.Pool, start, end, a.prices[key])
			a.accumulators[key] = acc
		} else if acc.WindowStart != start {
			batch = append(batch, a.close(key, acc))
			windows++
			acc = NewAccumulator(record.Pool, start, end, a.prices[key])
			a.accumulators[key] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", record.Pool), zap.String("event", record.EventName))
			return nil
		}

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.PutWindowStats(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]

			if err := a.saveState(ctx, startTs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	safeTs := a.safeTimestamp(maxTs)
	for key, acc := range a.accumulators {
		batch = append(batch, a.close(key, acc))
		windows++
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.sink.PutWindowStats(ctx, batch); err != nil {
			return err
		}
	}

	if a.cfg.StateStore != nil {
		if err := a.cfg.StateStore.Save(ctx, safeTs); err != nil {
			return fmt.Errorf("save aggregate state: %w", err)
		}
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (a *Aggregator) close(key string, acc *Accumulator) model.PoolWindowStats {
	if price := acc.priceState(); price != nil {
		a.prices[key] = price
	}
	return acc.Stats(a.cfg.WindowSeconds)
}

func (a *Aggregator) trackPrice(key string, record model.EventRecord) {
	probe := NewAccumulator(record.Pool, 0, 0, a.prices[key])
	if err := probe.AddEvent(record); err != nil {
		return
	}
	if price := probe.priceState(); price != nil {
		a.prices[key] = price
	}
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context, fallback uint64) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	return a.cfg.StateStore.Save(ctx, a.safeTimestamp(fallback))
}

// safeTimestamp is the last timestamp whose windows are all closed.
func (a *Aggregator) safeTimestamp(fallback uint64) uint64 {
	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		return safeTs - 1
	}
	return fallback
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func unixTime(ts uint64) time.Time {
	return time.Unix(int64(ts), 0).UTC()
}

func poolKey(address string) string {
	return strings.ToLower(address)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}
