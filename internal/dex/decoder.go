package dex

import (
	"encoding/json"
	"fmt"

	"clmm/internal/model"
)

// Decoder defines a log decoder.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord) (*model.Event, error)
}

// Encoder renders journal events as EVM logs.
type Encoder interface {
	Encode(event model.Event, chainID uint64) (model.LogRecord, error)
}

// TypedEvent converts a journal record read from disk into an Event whose
// Decoded field holds the typed payload for its event name.
func TypedEvent(record model.EventRecord) (model.Event, error) {
	event := model.Event{
		Seq:       record.Seq,
		Pool:      record.Pool,
		EventName: record.EventName,
		Timestamp: record.Timestamp,
	}

	var err error
	switch record.EventName {
	case model.EventInitialize:
		var data model.InitializeEventData
		err = json.Unmarshal(record.Decoded, &data)
		event.Decoded = data
	case model.EventSwap:
		var data model.SwapEventData
		err = json.Unmarshal(record.Decoded, &data)
		event.Decoded = data
	case model.EventMint:
		var data model.MintEventData
		err = json.Unmarshal(record.Decoded, &data)
		event.Decoded = data
	case model.EventBurn:
		var data model.BurnEventData
		err = json.Unmarshal(record.Decoded, &data)
		event.Decoded = data
	default:
		return model.Event{}, fmt.Errorf("unsupported event name: %s", record.EventName)
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("decode %s payload: %w", record.EventName, err)
	}
	return event, nil
}
