package dex

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"clmm/internal/model"
)

// Encode renders a journal event as the V3 pool log the same operation
// would emit on chain. The journal sequence becomes the block number and
// the transaction hash is derived from pool and sequence. BurnEventData's
// Closed flag has no log field and is not carried.
func (d *V3PoolDecoder) Encode(event model.Event, chainID uint64) (model.LogRecord, error) {
	if !common.IsHexAddress(event.Pool) {
		return model.LogRecord{}, fmt.Errorf("invalid pool address: %s", event.Pool)
	}
	pool := common.HexToAddress(event.Pool)

	abiEvent, ok := d.poolABI.Events[event.EventName]
	if !ok {
		return model.LogRecord{}, fmt.Errorf("unsupported event name: %s", event.EventName)
	}

	indexed, nonIndexed, err := encodeArguments(event)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("encode %s: %w", event.EventName, err)
	}

	topics := []string{abiEvent.ID.Hex()}
	if len(indexed) > 0 {
		query := make([][]interface{}, 0, len(indexed))
		for _, value := range indexed {
			query = append(query, []interface{}{value})
		}
		hashes, err := abi.MakeTopics(query...)
		if err != nil {
			return model.LogRecord{}, fmt.Errorf("make topics: %w", err)
		}
		for _, h := range hashes {
			topics = append(topics, h[0].Hex())
		}
	}

	data, err := abiEvent.Inputs.NonIndexed().Pack(nonIndexed...)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("pack %s: %w", event.EventName, err)
	}

	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], event.Seq)

	return model.LogRecord{
		ChainID:     chainID,
		BlockNumber: event.Seq,
		TxHash:      crypto.Keccak256Hash(pool.Bytes(), seq[:]).Hex(),
		LogIndex:    0,
		Address:     pool.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
		Timestamp:   event.Timestamp,
	}, nil
}

// encodeArguments splits the typed payload into indexed topic values and
// non-indexed data values, both in ABI order.
func encodeArguments(event model.Event) ([]interface{}, []interface{}, error) {
	switch data := event.Decoded.(type) {
	case model.InitializeEventData:
		sqrtPrice, err := parseUnsigned(data.SqrtPriceX96)
		if err != nil {
			return nil, nil, err
		}
		return nil, []interface{}{sqrtPrice, big.NewInt(int64(data.Tick))}, nil
	case model.SwapEventData:
		if !common.IsHexAddress(data.Sender) || !common.IsHexAddress(data.Recipient) {
			return nil, nil, fmt.Errorf("invalid swap addresses")
		}
		amount0, err := parseSigned(data.Amount0)
		if err != nil {
			return nil, nil, err
		}
		amount1, err := parseSigned(data.Amount1)
		if err != nil {
			return nil, nil, err
		}
		sqrtPrice, err := parseUnsigned(data.SqrtPriceX96)
		if err != nil {
			return nil, nil, err
		}
		liquidity, err := parseUnsigned(data.Liquidity)
		if err != nil {
			return nil, nil, err
		}
		indexed := []interface{}{common.HexToAddress(data.Sender), common.HexToAddress(data.Recipient)}
		return indexed, []interface{}{amount0, amount1, sqrtPrice, liquidity, big.NewInt(int64(data.Tick))}, nil
	case model.MintEventData:
		if !common.IsHexAddress(data.Sender) || !common.IsHexAddress(data.Owner) {
			return nil, nil, fmt.Errorf("invalid mint addresses")
		}
		amounts, err := parseUnsignedAll(data.Amount, data.Amount0, data.Amount1)
		if err != nil {
			return nil, nil, err
		}
		indexed := []interface{}{common.HexToAddress(data.Owner), big.NewInt(int64(data.TickLower)), big.NewInt(int64(data.TickUpper))}
		return indexed, []interface{}{common.HexToAddress(data.Sender), amounts[0], amounts[1], amounts[2]}, nil
	case model.BurnEventData:
		if !common.IsHexAddress(data.Owner) {
			return nil, nil, fmt.Errorf("invalid burn owner")
		}
		amounts, err := parseUnsignedAll(data.Amount, data.Amount0, data.Amount1)
		if err != nil {
			return nil, nil, err
		}
		indexed := []interface{}{common.HexToAddress(data.Owner), big.NewInt(int64(data.TickLower)), big.NewInt(int64(data.TickUpper))}
		return indexed, []interface{}{amounts[0], amounts[1], amounts[2]}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported payload type %T", event.Decoded)
	}
}

func parseSigned(value string) (*big.Int, error) {
	out, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", value)
	}
	return out, nil
}

func parseUnsigned(value string) (*big.Int, error) {
	out, err := parseSigned(value)
	if err != nil {
		return nil, err
	}
	if out.Sign() < 0 {
		return nil, fmt.Errorf("negative value %q", value)
	}
	return out, nil
}

func parseUnsignedAll(values ...string) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(values))
	for _, v := range values {
		parsed, err := parseUnsigned(v)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}
