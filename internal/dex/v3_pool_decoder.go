package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"clmm/internal/model"
)

// DecoderConfig configures decoder behavior. Topic0Map adds topic0 aliases
// for forks that rename the canonical events.
type DecoderConfig struct {
	Topic0Map map[string]string
}

// V3PoolDecoder converts journal events to and from Uniswap V3 pool logs.
type V3PoolDecoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

// NewV3PoolDecoder builds a V3 pool decoder.
func NewV3PoolDecoder(cfg DecoderConfig) (*V3PoolDecoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, err
	}

	topicToName := make(map[string]string, 4)
	for _, name := range []string{model.EventInitialize, model.EventSwap, model.EventMint, model.EventBurn} {
		topicToName[strings.ToLower(poolABI.Events[name].ID.Hex())] = name
	}

	for topic0, name := range cfg.Topic0Map {
		original := name
		name = normalizeEventName(name)
		if name == "" {
			return nil, fmt.Errorf("unsupported event name in topic0 map: %s", original)
		}
		if topic0 == "" {
			continue
		}
		topicToName[strings.ToLower(topic0)] = name
	}

	return &V3PoolDecoder{
		poolABI:     poolABI,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *V3PoolDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord back into a journal Event. The block number
// carries the journal sequence.
func (d *V3PoolDecoder) Decode(log model.LogRecord) (*model.Event, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", log.Address)
	}
	pool := common.HexToAddress(log.Address)

	var decoded interface{}
	var err error
	switch name {
	case model.EventInitialize:
		decoded, err = d.decodeInitialize(log)
	case model.EventSwap:
		decoded, err = d.decodeSwap(log)
	case model.EventMint:
		decoded, err = d.decodeMint(log)
	case model.EventBurn:
		decoded, err = d.decodeBurn(log)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return nil, err
	}

	return &model.Event{
		Seq:       log.BlockNumber,
		Pool:      pool.Hex(),
		EventName: name,
		Timestamp: log.Timestamp,
		Decoded:   decoded,
	}, nil
}

func normalizeEventName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "initialize":
		return model.EventInitialize
	case "swap":
		return model.EventSwap
	case "mint":
		return model.EventMint
	case "burn":
		return model.EventBurn
	default:
		return ""
	}
}

func (d *V3PoolDecoder) decodeInitialize(log model.LogRecord) (model.InitializeEventData, error) {
	event := d.poolABI.Events[model.EventInitialize]
	if _, err := parseIndexedTopics(event, log.Topics); err != nil {
		return model.InitializeEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.InitializeEventData{}, err
	}
	if len(values) != 2 {
		return model.InitializeEventData{}, fmt.Errorf("unexpected initialize values: %d", len(values))
	}

	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return model.InitializeEventData{}, err
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return model.InitializeEventData{}, err
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.InitializeEventData{}, err
	}

	return model.InitializeEventData{
		SqrtPriceX96: sqrtPrice.String(),
		Tick:         tick,
	}, nil
}

func (d *V3PoolDecoder) decodeSwap(log model.LogRecord) (model.SwapEventData, error) {
	event := d.poolABI.Events[model.EventSwap]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.SwapEventData{}, err
	}

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.SwapEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.SwapEventData{}, err
	}
	if len(values) != 5 {
		return model.SwapEventData{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	ints, err := asBigInts(values)
	if err != nil {
		return model.SwapEventData{}, err
	}
	tick, err := int24FromBig(ints[4])
	if err != nil {
		return model.SwapEventData{}, err
	}

	return model.SwapEventData{
		Sender:       indexed.Sender.Hex(),
		Recipient:    indexed.Recipient.Hex(),
		Amount0:      ints[0].String(),
		Amount1:      ints[1].String(),
		SqrtPriceX96: ints[2].String(),
		Liquidity:    ints[3].String(),
		Tick:         tick,
	}, nil
}

func (d *V3PoolDecoder) decodeMint(log model.LogRecord) (model.MintEventData, error) {
	event := d.poolABI.Events[model.EventMint]
	owner, tickLower, tickUpper, err := d.positionTopics(event, log.Topics)
	if err != nil {
		return model.MintEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.MintEventData{}, err
	}
	if len(values) != 4 {
		return model.MintEventData{}, fmt.Errorf("unexpected mint values: %d", len(values))
	}

	sender, err := asAddress(values[0])
	if err != nil {
		return model.MintEventData{}, err
	}
	ints, err := asBigInts(values[1:])
	if err != nil {
		return model.MintEventData{}, err
	}

	return model.MintEventData{
		Sender:    sender.Hex(),
		Owner:     owner.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    ints[0].String(),
		Amount0:   ints[1].String(),
		Amount1:   ints[2].String(),
	}, nil
}

func (d *V3PoolDecoder) decodeBurn(log model.LogRecord) (model.BurnEventData, error) {
	event := d.poolABI.Events[model.EventBurn]
	owner, tickLower, tickUpper, err := d.positionTopics(event, log.Topics)
	if err != nil {
		return model.BurnEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.BurnEventData{}, err
	}
	if len(values) != 3 {
		return model.BurnEventData{}, fmt.Errorf("unexpected burn values: %d", len(values))
	}

	ints, err := asBigInts(values)
	if err != nil {
		return model.BurnEventData{}, err
	}

	return model.BurnEventData{
		Owner:     owner.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    ints[0].String(),
		Amount0:   ints[1].String(),
		Amount1:   ints[2].String(),
	}, nil
}

// positionTopics parses the owner/tickLower/tickUpper topics shared by Mint
// and Burn.
func (d *V3PoolDecoder) positionTopics(event abi.Event, topics []string) (common.Address, int32, int32, error) {
	indexedTopics, err := parseIndexedTopics(event, topics)
	if err != nil {
		return common.Address{}, 0, 0, err
	}

	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return common.Address{}, 0, 0, fmt.Errorf("parse topics: %w", err)
	}

	tickLower, err := int24FromBig(indexed.TickLower)
	if err != nil {
		return common.Address{}, 0, 0, err
	}
	tickUpper, err := int24FromBig(indexed.TickUpper)
	if err != nil {
		return common.Address{}, 0, 0, err
	}
	return indexed.Owner, tickLower, tickUpper, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
