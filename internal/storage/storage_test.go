package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"clmm/internal/model"
)

func TestJsonlEventsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "journal.jsonl")
	store := NewJsonlStorage(path)

	first := []model.Event{
		{Seq: 1, Pool: "0xpool", EventName: model.EventInitialize, Timestamp: 10, Decoded: model.InitializeEventData{SqrtPriceX96: "79228162514264337593543950336", Tick: 0}},
	}
	second := []model.Event{
		{Seq: 2, Pool: "0xpool", EventName: model.EventSwap, Timestamp: 11, Decoded: model.SwapEventData{Amount0: "100", Amount1: "-99"}},
	}
	if err := store.PutEventBatch(first); err != nil {
		t.Fatalf("put first batch: %v", err)
	}
	if err := store.PutEventBatch(nil); err != nil {
		t.Fatalf("put empty batch: %v", err)
	}
	if err := store.PutEventBatch(second); err != nil {
		t.Fatalf("put second batch: %v", err)
	}

	var records []model.EventRecord
	if err := ReadEventRecords(path, func(r model.EventRecord) error {
		records = append(records, r)
		return nil
	}); err != nil {
		t.Fatalf("read records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Seq != 1 || records[1].EventName != model.EventSwap {
		t.Fatalf("unexpected records: %+v", records)
	}
	if len(records[1].Decoded) == 0 {
		t.Fatalf("decoded payload missing")
	}
}

func TestReadEventRecordsMissingFile(t *testing.T) {
	calls := 0
	err := ReadEventRecords(filepath.Join(t.TempDir(), "absent.jsonl"), func(model.EventRecord) error {
		calls++
		return nil
	})
	if err != nil || calls != 0 {
		t.Fatalf("expected empty scan, got %d calls, err %v", calls, err)
	}
}

func TestScanStopsOnCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	store := NewJsonlStorage(path)
	if err := store.PutEventBatch([]model.Event{{Seq: 1}, {Seq: 2}, {Seq: 3}}); err != nil {
		t.Fatalf("put batch: %v", err)
	}

	stop := errors.New("stop")
	seen := 0
	err := ReadEventRecords(path, func(model.EventRecord) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || seen != 2 {
		t.Fatalf("expected stop after 2 records, got %d, err %v", seen, err)
	}
}

func TestFileSnapshotStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "clmm.json")
	store := NewFileSnapshotStore(path)

	if _, found, err := store.Load(); err != nil || found {
		t.Fatalf("expected no snapshot, found=%v err=%v", found, err)
	}

	snap := model.Snapshot{
		Seq:   7,
		Pools: []model.Pool{{Address: "0xpool", TickSpacing: 10, SqrtPriceX96: "1", GlobalLiquidity: "0"}},
		Accounts: []model.TokenAccount{
			{Mint: "0xmint", Address: "0xowner", Owner: "0xowner", Amount: 42},
		},
	}
	if err := store.Save(snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := store.Load()
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if got.Seq != 7 || len(got.Pools) != 1 || got.Accounts[0].Amount != 42 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if got.UpdatedAt == "" {
		t.Fatalf("expected updated_at to be stamped")
	}
}

func TestFileSnapshotStoreRejectsDirectory(t *testing.T) {
	store := NewFileSnapshotStore(t.TempDir())
	if _, _, err := store.Load(); err == nil {
		t.Fatalf("expected error for directory path")
	}
}
