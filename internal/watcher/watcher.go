package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/loglens/loglens/internal/encode"
	"github.com/loglens/loglens/internal/metrics"
	"github.com/loglens/loglens/internal/source"
	"github.com/loglens/loglens/pkg/types"
)

// DefaultBackoff is the fixed delay before a reconnect attempt.
const DefaultBackoff = 5 * time.Second

// Watcher states. A watcher starts disconnected, moves to watching when a
// subscription is live, falls back to disconnected on feed errors, and ends
// closed — a terminal state only Close reaches.
const (
	StateDisconnected = "disconnected"
	StateWatching     = "watching"
	StateClosed       = "closed"
)

// ErrClosed is returned when starting a watcher that has been closed.
var ErrClosed = errors.New("watcher: closed")

// Sink persists derived records. Satisfied by *store.Store.
type Sink interface {
	InsertDerived(*types.DerivedRecord) (int64, error)
}

// Scorer forwards a derived record for anomaly scoring. Satisfied by
// *scoring.Client.
type Scorer interface {
	Score(ctx context.Context, rec types.DerivedRecord) (*types.Prediction, error)
}

// Watcher is the ingestion pipeline's long-lived consumer: it subscribes to
// insert events on the raw-record store, encodes each record, persists the
// result, and forwards it for scoring.
//
// Persistence is at-most-once: a failed write is logged and the event is
// dropped. There is no resumption either — events arriving while the feed is
// down are permanently lost, by design.
type Watcher struct {
	src     source.ChangeSource
	sink    Sink
	scorer  Scorer // nil disables forwarding
	backoff time.Duration
	now     func() time.Time // injectable for deterministic tests

	mu    sync.Mutex
	state string
	sub   source.Subscription
	retry *time.Timer
}

// New creates a Watcher. A non-positive backoff falls back to DefaultBackoff.
func New(src source.ChangeSource, sink Sink, scorer Scorer, backoff time.Duration) *Watcher {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Watcher{
		src:     src,
		sink:    sink,
		scorer:  scorer,
		backoff: backoff,
		now:     time.Now,
		state:   StateDisconnected,
	}
}

// Start attempts to open the change subscription. On failure the watcher
// stays disconnected, schedules a retry after the backoff, and returns the
// error — callers log it and carry on; the watcher supervises itself until
// Close.
func (w *Watcher) Start(ctx context.Context) error {
	return w.watch(ctx)
}

// IsConnected reports whether the watcher currently holds a live
// subscription. It only returns true when the underlying connection is open
// and the subscription is active — Subscribe confirms both before the state
// moves to watching.
func (w *Watcher) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == StateWatching && w.sub != nil
}

// State returns the current lifecycle state string.
func (w *Watcher) State() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Close releases the subscription and connection and makes the watcher inert:
// a scheduled reconnect is cancelled and later Start calls fail with
// ErrClosed. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateClosed {
		return nil
	}
	w.state = StateClosed
	if w.retry != nil {
		w.retry.Stop()
		w.retry = nil
	}
	var err error
	if w.sub != nil {
		err = w.sub.Close()
		w.sub = nil
	}
	metrics.WatcherConnected.Set(0)
	slog.Info("watcher: closed")
	return err
}

// watch opens a fresh subscription and, on success, starts the event loop.
func (w *Watcher) watch(ctx context.Context) error {
	w.mu.Lock()
	if w.state == StateClosed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.mu.Unlock()

	// Subscribe without holding the lock: it dials out and may block.
	sub, err := w.src.Subscribe(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateClosed {
		// Closed while we were connecting — release the late subscription.
		if err == nil {
			sub.Close()
		}
		return ErrClosed
	}
	if err != nil {
		w.state = StateDisconnected
		metrics.WatcherConnected.Set(0)
		w.scheduleReconnect(ctx)
		return err
	}

	w.sub = sub
	w.state = StateWatching
	metrics.WatcherConnected.Set(1)
	go w.run(ctx, sub)
	slog.Info("watcher: watching for raw log inserts")
	return nil
}

// run consumes one subscription until it fails, closes, or ctx is cancelled.
func (w *Watcher) run(ctx context.Context, sub source.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			w.handle(ev)
		case err := <-sub.Err():
			w.onFeedError(ctx, sub, err)
			return
		}
	}
}

// handle processes one change event: insert-only filter, encode, persist,
// then best-effort forward. Persist failures drop the event and the loop
// continues.
func (w *Watcher) handle(ev source.Event) {
	if ev.Op != source.OpInsert {
		return
	}
	metrics.EventsProcessed.Inc()

	rec := encode.Encode(ev.Record, w.now())

	id, err := w.sink.InsertDerived(&rec)
	if err != nil {
		metrics.RecordsDropped.Inc()
		slog.Error("watcher: dropping event — persist failed",
			"endpoint", ev.Record.Endpoint, "err", err)
		return
	}
	rec.ID = id
	metrics.RecordsPersisted.Inc()
	slog.Debug("watcher: derived record persisted", "id", id, "endpoint", ev.Record.Endpoint)

	if w.scorer != nil {
		go w.forward(rec)
	}
}

// forward sends the record for scoring. It runs on its own goroutine with an
// independent context: shutdown does not cancel a pending call, its result is
// simply discarded. The scorer bounds the call with its own timeout.
func (w *Watcher) forward(rec types.DerivedRecord) {
	pred, err := w.scorer.Score(context.Background(), rec)
	if err != nil {
		metrics.ScoringFailures.Inc()
		slog.Warn("watcher: scoring forward failed", "record_id", rec.ID, "err", err)
		return
	}
	if pred.IsAnomaly {
		metrics.ScoringAnomalies.Inc()
	}
	slog.Info("watcher: prediction received",
		"record_id", rec.ID,
		"reconstruction_error", pred.ReconstructionError,
		"is_anomaly", pred.IsAnomaly)
}

// onFeedError tears the failed subscription down and schedules a clean
// reconnect. A stale subscription (already replaced or closed) is ignored so
// the supervisor and the event loop never fight over state.
func (w *Watcher) onFeedError(ctx context.Context, sub source.Subscription, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateClosed || w.sub != sub {
		return
	}

	slog.Warn("watcher: subscription error — reconnecting after backoff",
		"backoff", w.backoff, "err", err)
	sub.Close()
	w.sub = nil
	w.state = StateDisconnected
	metrics.WatcherConnected.Set(0)
	metrics.WatcherReconnects.Inc()
	w.scheduleReconnect(ctx)
}

// scheduleReconnect arms the backoff timer. Callers hold w.mu. The timer is
// owned by the watcher so Close can cancel it deterministically — a late
// firing against a closed watcher is a no-op inside watch.
func (w *Watcher) scheduleReconnect(ctx context.Context) {
	if w.retry != nil {
		w.retry.Stop()
	}
	w.retry = time.AfterFunc(w.backoff, func() {
		err := w.watch(ctx)
		switch {
		case err == nil:
			slog.Info("watcher: reconnected")
		case errors.Is(err, ErrClosed):
		default:
			slog.Warn("watcher: reconnect failed — will retry", "err", err)
		}
	})
}
