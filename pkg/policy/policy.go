package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quotecast/tether/internal/logging"
	"github.com/quotecast/tether/pkg/domain"
	"github.com/quotecast/tether/pkg/offload"
	"github.com/quotecast/tether/pkg/ports"
)

// ErrNoFallback is returned when a degraded call has no fallback to run.
var ErrNoFallback = errors.New("no fallback configured")

// FallbackFn computes the offloaded result locally. It must be a pure
// function of the same logical inputs the task carried, safe to call even
// when the primary path never ran.
type FallbackFn func(ctx context.Context) (any, error)

// FallbackResult is the outcome of an offload attempt with fallback. A
// fallback-produced result is shaped exactly like a primary-path result;
// FallbackUsed and Reason are the only tells.
type FallbackResult struct {
	OK           bool
	Data         any
	FallbackUsed bool
	Reason       domain.Reason
	Err          error
	// OffloadErr preserves the original offload failure for diagnostics when
	// the fallback produced the result.
	OffloadErr error
}

// Policy drives the router and substitutes the fallback computation whenever
// offload does not produce a usable result.
type Policy struct {
	stats  *Registry
	logger *slog.Logger
}

// Option configures the Policy.
type Option func(*Policy)

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRegistry injects a shared stats registry.
func WithRegistry(stats *Registry) Option {
	return func(p *Policy) {
		if stats != nil {
			p.stats = stats
		}
	}
}

// New creates a Policy with its own stats registry unless one is injected.
func New(opts ...Option) *Policy {
	p := &Policy{
		stats:  NewRegistry(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats returns the policy's stats registry.
func (p *Policy) Stats() *Registry {
	return p.stats
}

// RunWithFallback attempts the offload once and degrades to the fallback on
// any non-success outcome. There is no retry of the offload path: at most one
// attempt, then fallback.
func (p *Policy) RunWithFallback(ctx context.Context, domainName string, router *offload.Router, ensure ports.Provider, task domain.Task, fallback FallbackFn) FallbackResult {
	if ctx == nil {
		ctx = context.Background()
	}
	p.stats.recordCall(domainName)

	exec, err := p.acquire(ctx, ensure)
	if err != nil {
		return p.degrade(ctx, domainName, task, fallback, domain.ReasonUnitUnavailable, err)
	}

	res := router.Dispatch(ctx, exec, task)
	if res.OK && res.Data != nil {
		return FallbackResult{OK: true, Data: res.Data}
	}

	offloadErr := res.Err
	if offloadErr == nil {
		offloadErr = fmt.Errorf("task %s: %w", task.ID, domain.ErrNoData)
	}
	return p.degrade(ctx, domainName, task, fallback, domain.ClassifyFailure(offloadErr), offloadErr)
}

func (p *Policy) acquire(ctx context.Context, ensure ports.Provider) (ports.Executor, error) {
	if ensure == nil {
		return nil, domain.ErrExecutorUnavailable
	}
	exec, err := ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrExecutorUnavailable, err)
	}
	if exec == nil {
		return nil, domain.ErrExecutorUnavailable
	}
	return exec, nil
}

func (p *Policy) degrade(ctx context.Context, domainName string, task domain.Task, fallback FallbackFn, reason domain.Reason, offloadErr error) FallbackResult {
	p.logger.Warn("offload degraded",
		"domain", domainName,
		"task", task.ID,
		"type", task.Type,
		"reason", string(reason),
		"err", offloadErr,
	)

	if fallback == nil {
		p.stats.recordFallback(domainName, reason, true)
		return FallbackResult{
			FallbackUsed: true,
			Reason:       reason,
			Err:          ErrNoFallback,
			OffloadErr:   offloadErr,
		}
	}

	value, err := fallback(ctx)
	if err != nil {
		p.stats.recordFallback(domainName, reason, true)
		return FallbackResult{
			FallbackUsed: true,
			Reason:       reason,
			Err:          err,
			OffloadErr:   offloadErr,
		}
	}

	p.stats.recordFallback(domainName, reason, false)
	return FallbackResult{
		OK:           true,
		Data:         value,
		FallbackUsed: true,
		Reason:       reason,
		OffloadErr:   offloadErr,
	}
}
