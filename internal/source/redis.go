package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	dialTimeout  = 5 * time.Second
	readTimeout  = 3 * time.Second
	writeTimeout = 3 * time.Second
	eventBufSize = 64
)

// Options configures the Redis change feed.
type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Redis is a ChangeSource over a Redis pub/sub channel. Every Subscribe
// builds its own client so that closing a subscription releases the
// connection entirely and a reconnect starts clean.
type Redis struct {
	opts Options
}

// NewRedis creates a Redis change source for the given options.
func NewRedis(opts Options) *Redis {
	return &Redis{opts: opts}
}

// Subscribe connects to Redis, verifies the connection with a ping, opens the
// pub/sub subscription, and starts the receive loop. The returned
// subscription's Err channel fires when the feed breaks.
func (r *Redis) Subscribe(ctx context.Context) (Subscription, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         r.opts.Addr,
		Password:     r.opts.Password,
		DB:           r.opts.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("source: connect to redis %s: %w", r.opts.Addr, err)
	}

	ps := client.Subscribe(ctx, r.opts.Channel)
	// Confirm the subscription before reporting success — a connected client
	// without an active subscription is not "watching".
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		client.Close()
		return nil, fmt.Errorf("source: subscribe to %q: %w", r.opts.Channel, err)
	}

	sub := &redisSub{
		client: client,
		ps:     ps,
		events: make(chan Event, eventBufSize),
		errc:   make(chan error, 1),
	}
	go sub.receive(ctx)
	return sub, nil
}

type redisSub struct {
	client *redis.Client
	ps     *redis.PubSub
	events chan Event
	errc   chan error
}

func (s *redisSub) Events() <-chan Event { return s.events }
func (s *redisSub) Err() <-chan error    { return s.errc }

// Close releases the subscription and then the client connection. Safe to
// call while receive is blocked — it unblocks with an error that the watcher
// ignores once closed.
func (s *redisSub) Close() error {
	err := s.ps.Close()
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *redisSub) receive(ctx context.Context) {
	for {
		msg, err := s.ps.ReceiveMessage(ctx)
		if err != nil {
			select {
			case s.errc <- err:
			default:
			}
			return
		}

		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			slog.Warn("source: dropping malformed change event", "err", err)
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// Publisher wraps a long-lived Redis client that fans raw-record inserts out
// to watchers.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects a publisher and verifies the connection.
func NewRedisPublisher(opts Options) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("source: connect publisher to redis %s: %w", opts.Addr, err)
	}

	return &RedisPublisher{client: client, channel: opts.Channel}, nil
}

// Publish emits one change event on the channel.
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("source: marshal change event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("source: publish change event: %w", err)
	}
	return nil
}

// Ping verifies the publisher connection, for health checks.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the publisher connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
