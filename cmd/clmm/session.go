package main

import (
	"fmt"

	"go.uber.org/zap"

	"clmm/internal/config"
	"clmm/internal/engine"
	"clmm/internal/registry"
	"clmm/internal/storage"
	"clmm/internal/token"
)

// session is the engine rebuilt from the snapshot file for one invocation.
type session struct {
	cfg       config.Config
	logger    *zap.Logger
	snapshots storage.SnapshotStore
	store     *registry.Store
	ledger    *token.Ledger
	journal   *storage.JsonlStorage
	engine    *engine.Engine
}

func openSession(cfg config.Config, logger *zap.Logger) (*session, error) {
	snapshots := storage.NewFileSnapshotStore(cfg.StateFile)
	snap, found, err := snapshots.Load()
	if err != nil {
		return nil, err
	}

	store := registry.NewStore()
	ledger := token.NewLedger()
	if found {
		if err := store.Restore(snap); err != nil {
			return nil, fmt.Errorf("restore registry: %w", err)
		}
		if err := ledger.Restore(snap.Accounts); err != nil {
			return nil, fmt.Errorf("restore ledger: %w", err)
		}
	}

	journal := storage.NewJsonlStorage(cfg.Journal)
	eng, err := engine.New(engine.Config{
		Store:           store,
		Ledger:          ledger,
		Journal:         journal,
		DepositMint:     token.NativeMint,
		PositionDeposit: cfg.PositionDeposit,
		StartSeq:        snap.Seq,
	}, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("state loaded",
		zap.String("state", cfg.StateFile),
		zap.Bool("found", found),
		zap.Uint64("seq", snap.Seq),
		zap.Int("pools", len(snap.Pools)),
		zap.Int("positions", len(snap.Positions)),
	)

	return &session{
		cfg:       cfg,
		logger:    logger,
		snapshots: snapshots,
		store:     store,
		ledger:    ledger,
		journal:   journal,
		engine:    eng,
	}, nil
}

// save writes the full state back to the snapshot file.
func (s *session) save() error {
	snap := s.store.Snapshot()
	snap.Accounts = s.ledger.Snapshot()
	snap.Seq = s.engine.Seq()
	if err := s.snapshots.Save(snap); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
