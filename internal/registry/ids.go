package registry

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	poolSeed      = []byte("pool")
	positionSeed  = []byte("position")
	tickArraySeed = []byte("tick_array")
	vaultSeed     = []byte("vault")
)

// PoolAddress derives the identifier of the pool for (token0, token1, spacing).
func PoolAddress(token0, token1 common.Address, tickSpacing int32) common.Address {
	return derive(poolSeed, token0.Bytes(), token1.Bytes(), le32(tickSpacing))
}

// PositionAddress derives the identifier of owner's position over [lower, upper).
func PositionAddress(owner, pool common.Address, lower, upper int32) common.Address {
	return derive(positionSeed, owner.Bytes(), pool.Bytes(), le32(lower), le32(upper))
}

// TickArrayAddress derives the identifier of the partition starting at start.
func TickArrayAddress(pool common.Address, start int32) common.Address {
	return derive(tickArraySeed, pool.Bytes(), le32(start))
}

// VaultAddress derives the pool-owned reserve account for mint.
func VaultAddress(pool, mint common.Address) common.Address {
	return derive(vaultSeed, pool.Bytes(), mint.Bytes())
}

func derive(seeds ...[]byte) common.Address {
	return common.BytesToAddress(crypto.Keccak256(seeds...))
}

func le32(v int32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	return buf[:]
}
