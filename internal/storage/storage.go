package storage

import "clmm/internal/model"

// EventSink defines a sink for journal events.
type EventSink interface {
	PutEventBatch(events []model.Event) error
}

// SnapshotStore persists the full engine state between runs.
type SnapshotStore interface {
	Load() (model.Snapshot, bool, error)
	Save(snap model.Snapshot) error
}
