package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loglens/loglens/internal/metrics"
	"github.com/loglens/loglens/internal/source"
	"github.com/loglens/loglens/pkg/types"
)

// RawStore persists incoming raw records. Satisfied by *store.Store.
type RawStore interface {
	InsertRaw(*types.RawLogRecord) (int64, error)
}

// Recorder accepts raw request-log records, persists them, and announces
// each insert on the change channel so the watcher picks it up.
//
// Publishing is best-effort: a failed publish is logged but never undoes or
// fails the insert.
type Recorder struct {
	store RawStore
	pub   source.Publisher // nil disables change events
	now   func() time.Time
}

// New creates a Recorder writing to store and announcing inserts via pub.
// A nil pub disables change events; records are still persisted.
func New(store RawStore, pub source.Publisher) *Recorder {
	return &Recorder{
		store: store,
		pub:   pub,
		now:   time.Now,
	}
}

// Record persists raw and publishes an insert event carrying the stored
// record. A zero timestamp is stamped with the current UTC time. Returns the
// stored record with its assigned ID.
func (r *Recorder) Record(ctx context.Context, raw types.RawLogRecord) (types.RawLogRecord, error) {
	if raw.Timestamp.IsZero() {
		raw.Timestamp = r.now().UTC()
	}

	id, err := r.store.InsertRaw(&raw)
	if err != nil {
		return types.RawLogRecord{}, fmt.Errorf("ingest: insert raw record: %w", err)
	}
	raw.ID = id
	metrics.RawRecordsIngested.Inc()

	if r.pub != nil {
		ev := source.Event{Op: source.OpInsert, Record: raw}
		if err := r.pub.Publish(ctx, ev); err != nil {
			slog.Warn("ingest: publish insert event failed — record persisted without notification",
				"id", id, "err", err)
		}
	}

	return raw, nil
}
