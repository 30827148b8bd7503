// Package redis transports tasks to a remote compute unit over Redis: task
// envelopes are pushed onto a request list and responses come back on a
// pub/sub reply channel. It is a transport for an out-of-process worker, not
// a shared cache; coordinator results never leave the process.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	backend "github.com/redis/go-redis/v9"

	"github.com/quotecast/tether/internal/logging"
	"github.com/quotecast/tether/pkg/domain"
)

const (
	defaultQueue        = "tether:tasks"
	defaultReplyChannel = "tether:replies"
)

// Executor submits tasks to a remote worker through Redis.
type Executor struct {
	client *backend.Client
	queue  string
	reply  string

	mu        sync.Mutex
	onMessage func(domain.Response)
	closed    bool

	pubsub *backend.PubSub
	logger *slog.Logger
}

// Option configures the Executor.
type Option func(*Executor)

// WithQueue sets the request list key.
func WithQueue(name string) Option {
	return func(e *Executor) {
		if name != "" {
			e.queue = name
		}
	}
}

// WithReplyChannel sets the pub/sub channel responses arrive on.
func WithReplyChannel(name string) Option {
	return func(e *Executor) {
		if name != "" {
			e.reply = name
		}
	}
}

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor creates an executor from an existing Redis client and starts
// listening on the reply channel. It returns once the subscription is
// confirmed, so no response published afterwards is missed.
func NewExecutor(ctx context.Context, client *backend.Client, opts ...Option) (*Executor, error) {
	e := &Executor{
		client: client,
		queue:  defaultQueue,
		reply:  defaultReplyChannel,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.pubsub = client.Subscribe(ctx, e.reply)
	if _, err := e.pubsub.Receive(ctx); err != nil {
		_ = e.pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", e.reply, err)
	}

	go e.pump()
	return e, nil
}

// Submit pushes the task envelope onto the request list.
func (e *Executor) Submit(ctx context.Context, env domain.Envelope) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return domain.ErrExecutorClosed
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := e.client.LPush(ctx, e.queue, data).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", e.queue, err)
	}
	return nil
}

// OnMessage registers the response sink.
func (e *Executor) OnMessage(fn func(domain.Response)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onMessage = fn
}

// Dispose closes the reply subscription.
func (e *Executor) Dispose() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()
	return e.pubsub.Close()
}

func (e *Executor) pump() {
	for msg := range e.pubsub.Channel() {
		var resp domain.Response
		if err := json.Unmarshal([]byte(msg.Payload), &resp); err != nil {
			e.logger.Warn("discarding malformed reply", "channel", e.reply, "err", err)
			continue
		}

		e.mu.Lock()
		fn := e.onMessage
		e.mu.Unlock()
		if fn != nil {
			fn(resp)
		}
	}
}
