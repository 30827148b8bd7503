package offload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quotecast/tether/internal/logging"
	"github.com/quotecast/tether/pkg/domain"
	"github.com/quotecast/tether/pkg/ports"
)

// Counters is a point-in-time snapshot of router activity.
type Counters struct {
	Pending   int
	Completed uint64
	TimedOut  uint64
	Failed    uint64
}

type pendingTask struct {
	result chan domain.TaskResult
	timer  *time.Timer
}

// Router tracks pending offload tasks and resolves each exactly once. Safe
// for concurrent use.
type Router struct {
	mu      sync.Mutex
	pending map[string]*pendingTask
	logger  *slog.Logger

	completed uint64
	timedOut  uint64
	failed    uint64
}

// Option configures the Router.
type Option func(*Router)

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRouter creates a Router. Wire it to an executor with
// exec.OnMessage(router.HandleMessage) before dispatching.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		pending: make(map[string]*pendingTask),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatch submits the task to the executor and blocks until it settles. A
// task with an empty or already-pending id fails immediately without
// contacting the executor. The result is never an exception: failures come
// back as OK=false with the error attached.
func (r *Router) Dispatch(ctx context.Context, exec ports.Executor, task domain.Task) domain.TaskResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if task.ID == "" {
		return domain.TaskResult{Err: domain.ErrEmptyTaskID}
	}

	r.mu.Lock()
	if _, exists := r.pending[task.ID]; exists {
		r.mu.Unlock()
		return domain.TaskResult{Err: fmt.Errorf("task %s: %w", task.ID, domain.ErrDuplicateTask)}
	}

	entry := &pendingTask{result: make(chan domain.TaskResult, 1)}
	budget := task.Budget()
	entry.timer = time.AfterFunc(budget, func() {
		r.resolve(task.ID, domain.TaskResult{
			Err: fmt.Errorf("task %s: no response within %s: %w", task.ID, budget, domain.ErrTaskTimeout),
		}, &r.timedOut)
	})
	r.pending[task.ID] = entry
	r.mu.Unlock()

	env := domain.Envelope{ID: task.ID, Type: task.Type, Payload: task.Payload}
	if err := exec.Submit(ctx, env); err != nil {
		r.resolve(task.ID, domain.TaskResult{
			Err: fmt.Errorf("task %s: submit: %w", task.ID, err),
		}, &r.failed)
	}

	select {
	case res := <-entry.result:
		return res
	case <-ctx.Done():
		r.resolve(task.ID, domain.TaskResult{
			Err: fmt.Errorf("task %s: %w", task.ID, ctx.Err()),
		}, &r.failed)
		return <-entry.result
	}
}

// HandleMessage feeds a compute-unit response into the router. Unmatched or
// already-resolved ids are ignored.
func (r *Router) HandleMessage(resp domain.Response) {
	res := domain.TaskResult{OK: resp.Succeeded(), Data: resp.Data}
	if !res.OK {
		msg := resp.Error
		if msg == "" {
			msg = "unspecified failure"
		}
		res.Err = fmt.Errorf("task %s: %s", resp.ID, msg)
	}

	counter := &r.completed
	if !res.OK {
		counter = &r.failed
	}
	r.resolve(resp.ID, res, counter)
}

// CancelAll resolves every pending task as failed, citing the reason. Used on
// teardown of the owning context.
func (r *Router) CancelAll(reason string) {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[string]*pendingTask)
	r.failed += uint64(len(pending))
	r.mu.Unlock()

	for id, entry := range pending {
		entry.timer.Stop()
		entry.result <- domain.TaskResult{
			Err: fmt.Errorf("task %s: cancelled: %s", id, reason),
		}
	}
	if len(pending) > 0 {
		r.logger.Debug("cancelled pending offload tasks", "count", len(pending), "reason", reason)
	}
}

// Counters returns a snapshot of router activity.
func (r *Router) Counters() Counters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Counters{
		Pending:   len(r.pending),
		Completed: r.completed,
		TimedOut:  r.timedOut,
		Failed:    r.failed,
	}
}

// resolve settles a pending task at most once. Later resolutions for the same
// id are no-ops.
func (r *Router) resolve(id string, res domain.TaskResult, counter *uint64) {
	r.mu.Lock()
	entry, ok := r.pending[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.pending, id)
	*counter++
	r.mu.Unlock()

	entry.timer.Stop()
	entry.result <- res
}
