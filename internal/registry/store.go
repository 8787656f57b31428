package registry

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"clmm/internal/clmm"
)

// Store keeps pool, position and tick array records by identifier.
// Readers get copies; records change only through Commit.
type Store struct {
	mu         sync.RWMutex
	pools      map[common.Address]*clmm.Pool
	positions  map[common.Address]*clmm.Position
	tickArrays map[common.Address]*clmm.TickArray
}

// Changes is a set of records written together by Commit.
type Changes struct {
	Pools      []*clmm.Pool
	Positions  []*clmm.Position
	TickArrays []*clmm.TickArray
	// Closed lists position identifiers to delete.
	Closed []common.Address
}

func NewStore() *Store {
	return &Store{
		pools:      make(map[common.Address]*clmm.Pool),
		positions:  make(map[common.Address]*clmm.Position),
		tickArrays: make(map[common.Address]*clmm.TickArray),
	}
}

func (s *Store) Pool(address common.Address) (*clmm.Pool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool, ok := s.pools[address]
	return pool.Clone(), ok
}

func (s *Store) Position(address common.Address) (*clmm.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[address]
	return pos.Clone(), ok
}

func (s *Store) TickArray(address common.Address) (*clmm.TickArray, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr, ok := s.tickArrays[address]
	return arr.Clone(), ok
}

// Pools returns every pool ordered by address.
func (s *Store) Pools() []*clmm.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*clmm.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		out = append(out, pool.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].Address, out[j].Address) })
	return out
}

// Positions returns the positions of pool ordered by address. A zero pool
// address selects every position.
func (s *Store) Positions(pool common.Address) []*clmm.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*clmm.Position, 0)
	for _, pos := range s.positions {
		if pool != (common.Address{}) && pos.Pool != pool {
			continue
		}
		out = append(out, pos.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].Address, out[j].Address) })
	return out
}

// TickArrays returns the tick arrays of pool ordered by starting tick. A
// zero pool address selects every array.
func (s *Store) TickArrays(pool common.Address) []*clmm.TickArray {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*clmm.TickArray, 0)
	for _, arr := range s.tickArrays {
		if pool != (common.Address{}) && arr.Pool != pool {
			continue
		}
		out = append(out, arr.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pool != out[j].Pool {
			return less(out[i].Pool, out[j].Pool)
		}
		return out[i].StartingTick < out[j].StartingTick
	})
	return out
}

// CreatePool stores a new pool, failing if the identifier is taken.
func (s *Store) CreatePool(pool *clmm.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[pool.Address]; ok {
		return clmm.ErrPoolExists
	}
	s.pools[pool.Address] = pool.Clone()
	return nil
}

// Commit writes all changes at once. Records are copied in.
func (s *Store) Commit(changes Changes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pool := range changes.Pools {
		s.pools[pool.Address] = pool.Clone()
	}
	for _, arr := range changes.TickArrays {
		s.tickArrays[arr.Address] = arr.Clone()
	}
	for _, pos := range changes.Positions {
		s.positions[pos.Address] = pos.Clone()
	}
	for _, addr := range changes.Closed {
		delete(s.positions, addr)
	}
}

func less(a, b common.Address) bool {
	return bytes.Compare(a.Bytes(), b.Bytes()) < 0
}
