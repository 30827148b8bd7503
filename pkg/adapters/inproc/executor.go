// Package inproc provides the default background compute unit: a pool of
// worker goroutines inside the same process, reachable only through task and
// response messages. It shares no state with callers beyond those messages.
package inproc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/quotecast/tether/internal/logging"
	"github.com/quotecast/tether/pkg/domain"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 64
)

// Executor runs registered handlers on a goroutine pool.
type Executor struct {
	mu        sync.Mutex
	handlers  map[string]domain.Handler
	onMessage func(domain.Response)
	closed    bool

	workers   int
	queueSize int

	tasks  chan domain.Envelope
	group  *errgroup.Group
	cancel context.CancelFunc
	logger *slog.Logger
}

// Option configures the Executor.
type Option func(*Executor)

// WithWorkers sets the pool size.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithQueueSize sets the submission buffer.
func WithQueueSize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.queueSize = n
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

// New creates the executor and starts its worker pool immediately.
func New(opts ...Option) *Executor {
	e := &Executor{
		handlers:  make(map[string]domain.Handler),
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.tasks = make(chan domain.Envelope, e.queueSize)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < e.workers; i++ {
		e.group.Go(func() error {
			e.run(ctx)
			return nil
		})
	}
	return e
}

// Register binds a handler to a task type. Later registrations replace
// earlier ones.
func (e *Executor) Register(taskType string, h domain.Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[taskType] = h
}

// Submit queues a task envelope for the pool.
func (e *Executor) Submit(ctx context.Context, env domain.Envelope) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return domain.ErrExecutorClosed
	}

	select {
	case e.tasks <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnMessage registers the response sink.
func (e *Executor) OnMessage(fn func(domain.Response)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onMessage = fn
}

// Dispose stops the pool. Queued tasks that have not started are dropped;
// the router's timers settle them.
func (e *Executor) Dispose() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	return e.group.Wait()
}

func (e *Executor) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-e.tasks:
			e.emit(e.handle(ctx, env))
		}
	}
}

func (e *Executor) handle(ctx context.Context, env domain.Envelope) (resp domain.Response) {
	resp = domain.Response{ID: env.ID}

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("handler panicked", "type", env.Type, "task", env.ID, "panic", rec)
			resp = failure(env.ID, fmt.Sprintf("handler panicked: %v", rec))
		}
	}()

	e.mu.Lock()
	handler, ok := e.handlers[env.Type]
	e.mu.Unlock()
	if !ok {
		return failure(env.ID, fmt.Sprintf("no handler for task type %q", env.Type))
	}

	data, err := handler(ctx, env.Payload)
	if err != nil {
		return failure(env.ID, err.Error())
	}
	resp.Data = data
	return resp
}

func (e *Executor) emit(resp domain.Response) {
	e.mu.Lock()
	fn := e.onMessage
	e.mu.Unlock()
	if fn != nil {
		fn(resp)
	}
}

func failure(id, msg string) domain.Response {
	ok := false
	return domain.Response{ID: id, OK: &ok, Error: msg}
}
