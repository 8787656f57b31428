package model

import (
	"encoding/json"
	"testing"
)

func TestSwapEventDataJSONStringFields(t *testing.T) {
	payload := SwapEventData{
		Sender:       "0x1111111111111111111111111111111111111111",
		Recipient:    "0x1111111111111111111111111111111111111111",
		Amount0:      "1000",
		Amount1:      "-999",
		SqrtPriceX96: "79228162514264337593543950336",
		Liquidity:    "340282366920938463463374607431768211455",
		Tick:         -1,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"amount0", "amount1", "sqrt_price_x96", "liquidity"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
}

func TestEventReadsBackAsRecord(t *testing.T) {
	event := Event{
		Seq:       7,
		Pool:      "0x2222222222222222222222222222222222222222",
		EventName: EventBurn,
		Timestamp: 1700000000,
		Decoded: BurnEventData{
			Owner:     "0x3333333333333333333333333333333333333333",
			TickLower: -100,
			TickUpper: 100,
			Amount:    "1500",
			Amount0:   "751",
			Amount1:   "749",
			Closed:    true,
		},
	}

	line, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var record EventRecord
	if err := json.Unmarshal(line, &record); err != nil {
		t.Fatalf("unmarshal record failed: %v", err)
	}
	if record.Seq != 7 || record.EventName != EventBurn || record.Pool != event.Pool {
		t.Fatalf("record header mismatch: %+v", record)
	}

	var burn BurnEventData
	if err := json.Unmarshal(record.Decoded, &burn); err != nil {
		t.Fatalf("decode burn failed: %v", err)
	}
	if burn != event.Decoded.(BurnEventData) {
		t.Fatalf("burn payload mismatch: %+v", burn)
	}
}
