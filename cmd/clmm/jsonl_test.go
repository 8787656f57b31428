package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clmm/internal/model"
)

func TestJSONLWriterTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "logs.jsonl")

	for i := 0; i < 2; i++ {
		w, err := newJSONLWriter(path, false)
		if err != nil {
			t.Fatalf("open writer: %v", err)
		}
		if err := w.Write(map[string]int{"run": i}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != `{"run":1}` {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestJSONLWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.jsonl")

	for i := 0; i < 2; i++ {
		w, err := newJSONLWriter(path, true)
		if err != nil {
			t.Fatalf("open writer: %v", err)
		}
		if err := w.Write(i); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "0\n1\n" {
		t.Fatalf("unexpected content %q", string(data))
	}
}

func TestDecodeErrorFromRecord(t *testing.T) {
	rec := model.LogRecord{
		BlockNumber: 7,
		Address:     "0xpool",
		Topics:      []string{"0xtopic"},
	}
	got := decodeErrorFromRecord(rec, errors.New("boom"))
	if got.BlockNumber != 7 || got.Address != "0xpool" || got.Topic0 != "0xtopic" || got.Error != "boom" {
		t.Fatalf("unexpected decode error %+v", got)
	}

	empty := decodeErrorFromRecord(model.LogRecord{}, errors.New("missing topic0"))
	if empty.Topic0 != "" {
		t.Fatalf("expected empty topic0, got %q", empty.Topic0)
	}
}
