package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"clmm/internal/clmm"
	"clmm/internal/model"
	"clmm/internal/registry"
	"clmm/internal/storage"
)

// Ledger is the token program plus the account bookkeeping the engine needs.
type Ledger interface {
	clmm.TokenProgram
	InitAccount(mint, address, owner common.Address) error
	Balance(mint, address common.Address) uint64
}

// Config wires the engine's collaborators.
type Config struct {
	Store   *registry.Store
	Ledger  Ledger
	Journal storage.EventSink
	// DepositMint and PositionDeposit describe the deposit charged when a
	// position record is created and refunded when it is closed.
	DepositMint     common.Address
	PositionDeposit uint64
	// StartSeq is the last journal sequence number already used.
	StartSeq uint64
	Now      func() time.Time
}

// Engine hosts the pool core. Operations on one pool are serialized;
// operations on different pools run in parallel. Every operation either
// commits all of its records and transfers or none.
type Engine struct {
	store   *registry.Store
	ledger  Ledger
	journal storage.EventSink
	logger  *zap.Logger

	depositMint common.Address
	deposit     uint64
	now         func() time.Time
	seq         atomic.Uint64

	mu    sync.Mutex
	locks map[common.Address]*sync.Mutex
}

func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("registry store is nil")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		store:       cfg.Store,
		ledger:      cfg.Ledger,
		journal:     cfg.Journal,
		logger:      logger,
		depositMint: cfg.DepositMint,
		deposit:     cfg.PositionDeposit,
		now:         now,
		locks:       make(map[common.Address]*sync.Mutex),
	}
	e.seq.Store(cfg.StartSeq)
	return e, nil
}

// Seq returns the last journal sequence number handed out.
func (e *Engine) Seq() uint64 {
	return e.seq.Load()
}

func (e *Engine) Pool(address common.Address) (*clmm.Pool, bool) {
	return e.store.Pool(address)
}

func (e *Engine) Position(address common.Address) (*clmm.Position, bool) {
	return e.store.Position(address)
}

func (e *Engine) TickArray(address common.Address) (*clmm.TickArray, bool) {
	return e.store.TickArray(address)
}

func (e *Engine) lockPool(pool common.Address) func() {
	e.mu.Lock()
	lock, ok := e.locks[pool]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[pool] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (e *Engine) record(pool common.Address, name string, decoded interface{}) {
	if e.journal == nil {
		return
	}
	event := model.Event{
		Seq:       e.seq.Add(1),
		Pool:      pool.Hex(),
		EventName: name,
		Timestamp: uint64(e.now().Unix()),
		Decoded:   decoded,
	}
	if err := e.journal.PutEventBatch([]model.Event{event}); err != nil {
		e.logger.Error("journal write failed",
			zap.String("pool", event.Pool),
			zap.String("event", name),
			zap.Uint64("seq", event.Seq),
			zap.Error(err),
		)
	}
}
