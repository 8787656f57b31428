package model

import "encoding/json"

// Event is one journal entry of an executed pool operation.
type Event struct {
	Seq       uint64      `json:"seq"`
	Pool      string      `json:"pool"`
	EventName string      `json:"event_name"`
	Timestamp uint64      `json:"timestamp"`
	Decoded   interface{} `json:"decoded"`
}

// EventRecord is the JSON form of Event read back from the journal.
type EventRecord struct {
	Seq       uint64          `json:"seq"`
	Pool      string          `json:"pool"`
	EventName string          `json:"event_name"`
	Timestamp uint64          `json:"timestamp"`
	Decoded   json.RawMessage `json:"decoded"`
}
