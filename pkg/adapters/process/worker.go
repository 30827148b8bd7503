package process

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/quotecast/tether/internal/logging"
	"github.com/quotecast/tether/pkg/domain"
)

// Worker is the child-process side of the transport: it reads task envelopes
// line by line, runs the registered handler, and writes response lines.
// Run it from a worker binary's main with os.Stdin/os.Stdout.
type Worker struct {
	mu       sync.Mutex
	handlers map[string]domain.Handler
	logger   *slog.Logger
}

// WorkerOption configures the Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger configures a structured logger. It must not write to the
// worker's stdout.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorker creates a Worker.
func NewWorker(opts ...WorkerOption) *Worker {
	w := &Worker{
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

// Run consumes envelopes from r until EOF or context cancellation, writing
// one response line per task to out.
func (w *Worker) Run(ctx context.Context, r io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var env domain.Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			w.logger.Warn("discarding malformed task line", "err", err)
			continue
		}

		if err := enc.Encode(w.handle(ctx, env)); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err()
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

func failure(id, msg string) domain.Response {
	ok := false
	return domain.Response{ID: id, OK: &ok, Error: msg}
}
