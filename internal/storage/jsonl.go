package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"clmm/internal/model"
)

// JsonlStorage appends records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// Path returns the file the storage appends to.
func (s *JsonlStorage) Path() string {
	return s.path
}

// PutEventBatch appends a batch of journal events as JSON lines.
func (s *JsonlStorage) PutEventBatch(events []model.Event) error {
	return putBatch(s, events, "event")
}

// PutLogBatch appends a batch of encoded log records as JSON lines.
func (s *JsonlStorage) PutLogBatch(logs []model.LogRecord) error {
	return putBatch(s, logs, "log record")
}

// PutWindowStats appends aggregated pool windows as JSON lines.
func (s *JsonlStorage) PutWindowStats(stats []model.PoolWindowStats) error {
	return putBatch(s, stats, "window stats")
}

func putBatch[T any](s *JsonlStorage, records []T, kind string) error {
	if len(records) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", kind, err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write %s: %w", kind, err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

// ScanLines calls fn for every non-empty line of a JSONL file. A missing
// file yields no lines. Returning an error from fn stops the scan.
func ScanLines(path string, fn func(line []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return nil
}

// ReadEventRecords scans a journal file and passes each record to fn.
func ReadEventRecords(path string, fn func(model.EventRecord) error) error {
	return ScanLines(path, func(line []byte) error {
		var record model.EventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("decode event record: %w", err)
		}
		return fn(record)
	})
}

// ReadLogRecords scans a log record file and passes each record to fn.
func ReadLogRecords(path string, fn func(model.LogRecord) error) error {
	return ScanLines(path, func(line []byte) error {
		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("decode log record: %w", err)
		}
		return fn(record)
	})
}
