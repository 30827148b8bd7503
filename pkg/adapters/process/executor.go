// Package process runs the background compute unit as a child process. Tasks
// go out as JSON lines on the worker's stdin; responses come back as JSON
// lines on its stdout. The worker's stderr is forwarded to the logger.
//
// A worker that exits (crash or clean EOF) marks the executor unusable;
// Submit then fails fast and the fallback policy takes over. There is no
// automatic restart here: acquisition policy belongs to the Provider.
package process

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/quotecast/tether/internal/logging"
	"github.com/quotecast/tether/pkg/domain"
)

const killGrace = 2 * time.Second

// Executor is a compute unit backed by a child process.
type Executor struct {
	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	enc       *json.Encoder
	onMessage func(domain.Response)
	closed    bool
	dead      bool

	exited chan struct{}
	logger *slog.Logger
}

// Option configures the Executor.
type Option func(*Executor)

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Start launches the worker command and begins reading its responses.
func Start(cfg WorkerConfig, opts ...Option) (*Executor, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("worker %q has no command", cfg.Name)
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	env := cmd.Environ()
	for k, v := range cfg.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker %q: stdin pipe: %w", cfg.Name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker %q: stdout pipe: %w", cfg.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("worker %q: stderr pipe: %w", cfg.Name, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("worker %q: start: %w", cfg.Name, err)
	}

	e := &Executor{
		cmd:    cmd,
		stdin:  stdin,
		enc:    json.NewEncoder(stdin),
		exited: make(chan struct{}),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	go e.readResponses(stdout)
	go e.forwardStderr(cfg.Name, stderr)
	return e, nil
}

// Submit writes the task envelope to the worker's stdin.
func (e *Executor) Submit(ctx context.Context, env domain.Envelope) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.closed:
		return domain.ErrExecutorClosed
	case e.dead:
		return fmt.Errorf("worker process exited: %w", domain.ErrExecutorUnavailable)
	}
	if err := e.enc.Encode(env); err != nil {
		e.dead = true
		return fmt.Errorf("write to worker: %w", err)
	}
	return nil
}

// OnMessage registers the response sink.
func (e *Executor) OnMessage(fn func(domain.Response)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onMessage = fn
}

// Healthy reports whether the worker is still usable.
func (e *Executor) Healthy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && !e.dead
}

// Dispose closes the worker's stdin and waits for it to exit, killing it
// after a short grace period.
func (e *Executor) Dispose() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	_ = e.stdin.Close()

	select {
	case <-e.exited:
	case <-time.After(killGrace):
		e.logger.Warn("worker did not exit, killing", "pid", e.cmd.Process.Pid)
		_ = e.cmd.Process.Kill()
		<-e.exited
	}
	return nil
}

func (e *Executor) readResponses(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp domain.Response
		if err := json.Unmarshal(line, &resp); err != nil {
			e.logger.Warn("discarding malformed worker output", "err", err)
			continue
		}

		e.mu.Lock()
		fn := e.onMessage
		e.mu.Unlock()
		if fn != nil {
			fn(resp)
		}
	}

	// EOF or read error: the worker is gone.
	e.mu.Lock()
	e.dead = true
	e.mu.Unlock()

	err := e.cmd.Wait()
	close(e.exited)
	e.logger.Info("worker exited", "err", err)
}

func (e *Executor) forwardStderr(name string, stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		e.logger.Debug("worker stderr", "worker", name, "line", scanner.Text())
	}
}
