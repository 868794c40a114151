package source

import (
	"context"

	"github.com/loglens/loglens/pkg/types"
)

// OpInsert is the only operation type the watcher processes. Producers may
// emit other ops in the future; consumers must ignore anything else.
const OpInsert = "insert"

// Event is one change notification from the raw-record store.
type Event struct {
	Op     string             `json:"op"`
	Record types.RawLogRecord `json:"record"`
}

// Subscription is an open change feed. Events delivers notifications until
// the feed fails or is closed; Err delivers at most one terminal error.
// Close releases the subscription and its underlying connection.
type Subscription interface {
	Events() <-chan Event
	Err() <-chan error
	Close() error
}

// ChangeSource opens change-feed subscriptions. Each Subscribe establishes a
// fresh connection, so a watcher recovering from a feed error reconnects from
// scratch rather than resuming a broken transport.
type ChangeSource interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Publisher emits change notifications for newly inserted raw records.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
