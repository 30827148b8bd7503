package tether

import (
	"context"
	"log/slog"
	"time"

	"github.com/quotecast/tether/internal/logging"
	"github.com/quotecast/tether/pkg/coordinator"
	"github.com/quotecast/tether/pkg/domain"
	"github.com/quotecast/tether/pkg/offload"
	"github.com/quotecast/tether/pkg/policy"
	"github.com/quotecast/tether/pkg/ports"
)

// Version is the current library version.
const Version = "0.3.0"

// Client is the high-level entry point for the tether library. It wires a
// call coordinator, an offload router, and a fallback policy behind one
// surface. Construct one per process (or per test) and share it; all state is
// scoped to the instance.
type Client struct {
	coordinator *coordinator.Coordinator
	router      *offload.Router
	policy      *policy.Policy

	executor ports.Executor
	provider ports.Provider
	logger   *slog.Logger

	coordOpts []coordinator.Option
}

// Option defines a functional option for configuring the Client.
type Option func(*Client)

// WithLogger sets a structured logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithExecutor installs a fixed background compute unit. The Client wires it
// to the router and disposes it on Close.
func WithExecutor(exec ports.Executor) Option {
	return func(c *Client) {
		c.executor = exec
	}
}

// WithExecutorProvider installs lazy executor acquisition, e.g. restarting a
// worker subprocess on demand. Acquired executors are wired to the router on
// every acquisition; disposing them stays the provider's business.
func WithExecutorProvider(provider ports.Provider) Option {
	return func(c *Client) {
		c.provider = provider
	}
}

// WithCacheSize bounds the coordinator's result cache.
func WithCacheSize(n int) Option {
	return func(c *Client) {
		c.coordOpts = append(c.coordOpts, coordinator.WithMaxEntries(n))
	}
}

// WithDefaultFreshness sets the freshness window for calls that carry none.
func WithDefaultFreshness(d time.Duration) Option {
	return func(c *Client) {
		c.coordOpts = append(c.coordOpts, coordinator.WithDefaultFreshness(d))
	}
}

// WithCoordinatorHooks registers cache lifecycle hooks.
func WithCoordinatorHooks(h coordinator.Hooks) Option {
	return func(c *Client) {
		c.coordOpts = append(c.coordOpts, coordinator.WithHooks(h))
	}
}

// New initializes a tether Client.
func New(opts ...Option) *Client {
	c := &Client{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	c.coordinator = coordinator.New(append([]coordinator.Option{coordinator.WithLogger(c.logger)}, c.coordOpts...)...)
	c.router = offload.NewRouter(offload.WithLogger(c.logger))
	c.policy = policy.New(policy.WithLogger(c.logger))

	if c.executor != nil {
		c.executor.OnMessage(c.router.HandleMessage)
	}
	return c
}

// Run arbitrates a slow call through the coordinator: cache hit, attach to an
// in-flight execution, or execute.
func (c *Client) Run(ctx context.Context, call domain.Call) (domain.Result, error) {
	return c.coordinator.Run(ctx, call)
}

// Offload attempts the task on the background compute unit and degrades to
// the fallback on any non-success outcome.
func (c *Client) Offload(ctx context.Context, domainName string, task domain.Task, fallback policy.FallbackFn) policy.FallbackResult {
	return c.policy.RunWithFallback(ctx, domainName, c.router, c.ensure, task, fallback)
}

func (c *Client) ensure(ctx context.Context) (ports.Executor, error) {
	if c.executor != nil {
		return c.executor, nil
	}
	if c.provider == nil {
		return nil, domain.ErrExecutorUnavailable
	}
	exec, err := c.provider(ctx)
	if err != nil || exec == nil {
		return exec, err
	}
	exec.OnMessage(c.router.HandleMessage)
	return exec, nil
}

// Stats returns a read-only snapshot of per-domain offload statistics.
func (c *Client) Stats() map[string]policy.DomainStats {
	return c.policy.Stats().Snapshot()
}

// Coordinator exposes the underlying coordinator, e.g. for metrics export.
func (c *Client) Coordinator() *coordinator.Coordinator {
	return c.coordinator
}

// Router exposes the underlying offload router.
func (c *Client) Router() *offload.Router {
	return c.router
}

// Policy exposes the underlying fallback policy.
func (c *Client) Policy() *policy.Policy {
	return c.policy
}

// Close cancels all pending offload tasks and disposes the fixed executor,
// if any.
func (c *Client) Close() error {
	c.router.CancelAll("client closed")
	if c.executor != nil {
		return c.executor.Dispose()
	}
	return nil
}
