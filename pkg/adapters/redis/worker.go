package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/quotecast/tether/internal/logging"
	"github.com/quotecast/tether/pkg/domain"
)

const popTimeout = time.Second

// Worker is the remote side of the Redis transport: it pops task envelopes
// from the request list, runs the registered handler, and publishes the
// response on the reply channel.
type Worker struct {
	client *backend.Client
	queue  string
	reply  string

	mu       sync.Mutex
	handlers map[string]domain.Handler

	logger *slog.Logger
}

// WorkerOption configures the Worker.
type WorkerOption func(*Worker)

// WithWorkerQueue sets the request list key.
func WithWorkerQueue(name string) WorkerOption {
	return func(w *Worker) {
		if name != "" {
			w.queue = name
		}
	}
}

// WithWorkerReplyChannel sets the channel responses are published on.
func WithWorkerReplyChannel(name string) WorkerOption {
	return func(w *Worker) {
		if name != "" {
			w.reply = name
		}
	}
}

// WithWorkerLogger configures a structured logger.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorker creates a Worker from an existing Redis client.
func NewWorker(client *backend.Client, opts ...WorkerOption) *Worker {
	w := &Worker{
		client:   client,
		queue:    defaultQueue,
		reply:    defaultReplyChannel,
		handlers: make(map[string]domain.Handler),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register binds a handler to a task type.
func (w *Worker) Register(taskType string, h domain.Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[taskType] = h
}

// Run consumes tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		vals, err := w.client.BRPop(ctx, popTimeout, w.queue).Result()
		if err != nil {
			if errors.Is(err, backend.Nil) {
				continue // poll timeout, re-check context via the next call
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("pop from %s: %w", w.queue, err)
		}
		if len(vals) != 2 {
			continue
		}

		var env domain.Envelope
		if err := json.Unmarshal([]byte(vals[1]), &env); err != nil {
			w.logger.Warn("discarding malformed task", "queue", w.queue, "err", err)
			continue
		}
		w.publish(ctx, w.handle(ctx, env))
	}
}

func (w *Worker) handle(ctx context.Context, env domain.Envelope) domain.Response {
	w.mu.Lock()
	handler, ok := w.handlers[env.Type]
	w.mu.Unlock()
	if !ok {
		return failure(env.ID, fmt.Sprintf("no handler for task type %q", env.Type))
	}

	data, err := handler(ctx, env.Payload)
	if err != nil {
		return failure(env.ID, err.Error())
	}
	return domain.Response{ID: env.ID, Data: data}
}

func (w *Worker) publish(ctx context.Context, resp domain.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		w.logger.Error("encode response", "task", resp.ID, "err", err)
		return
	}
	if err := w.client.Publish(ctx, w.reply, data).Err(); err != nil {
		w.logger.Error("publish response", "task", resp.ID, "err", err)
	}
}

func failure(id, msg string) domain.Response {
	ok := false
	return domain.Response{ID: id, OK: &ok, Error: msg}
}
