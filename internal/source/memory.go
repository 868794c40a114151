package source

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Memory operations after Close.
var ErrClosed = errors.New("source: memory source closed")

// Memory is an in-process ChangeSource and Publisher, used in tests and for
// running the pipeline without Redis. Events published while no subscription
// is open are dropped, mirroring pub/sub semantics: there is no replay.
type Memory struct {
	mu     sync.Mutex
	subs   map[*memSub]struct{}
	closed bool
}

// NewMemory creates an empty in-process change source.
func NewMemory() *Memory {
	return &Memory{subs: make(map[*memSub]struct{})}
}

// Subscribe opens a new in-process subscription.
func (m *Memory) Subscribe(ctx context.Context) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	s := &memSub{
		parent: m,
		events: make(chan Event, eventBufSize),
		errc:   make(chan error, 1),
	}
	m.subs[s] = struct{}{}
	return s, nil
}

// Publish fans ev out to every open subscription. A subscription whose
// buffer is full misses the event rather than blocking the publisher.
func (m *Memory) Publish(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for s := range m.subs {
		select {
		case s.events <- ev:
		default:
		}
	}
	return nil
}

// Fail delivers err to every open subscription, simulating a broken feed.
// The subscriptions stay registered until closed by their owners.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for s := range m.subs {
		select {
		case s.errc <- err:
		default:
		}
	}
}

// SubscriberCount returns the number of open subscriptions.
func (m *Memory) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Close shuts the source; existing subscriptions are detached and their
// event channels closed so consumers blocked on Events() wake up.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	detached := make([]*memSub, 0, len(m.subs))
	for s := range m.subs {
		detached = append(detached, s)
		delete(m.subs, s)
	}
	m.mu.Unlock()

	for _, s := range detached {
		s.once.Do(func() { close(s.events) })
	}
	return nil
}

type memSub struct {
	parent *Memory
	events chan Event
	errc   chan error
	once   sync.Once
}

func (s *memSub) Events() <-chan Event { return s.events }
func (s *memSub) Err() <-chan error    { return s.errc }

// Close detaches the subscription and closes its events channel. Detaching
// happens under the parent lock, so no publish can race the close.
func (s *memSub) Close() error {
	s.parent.mu.Lock()
	delete(s.parent.subs, s)
	s.parent.mu.Unlock()

	s.once.Do(func() { close(s.events) })
	return nil
}
