package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/quotecast/tether/internal/logging"
	"github.com/quotecast/tether/pkg/domain"
)

const (
	// DefaultFreshness applies when a call carries no freshness window.
	DefaultFreshness = 10 * time.Second

	// DefaultMaxEntries bounds the result cache.
	DefaultMaxEntries = 3000
)

// ErrNoOperation is returned when a call carries no operation to execute.
var ErrNoOperation = errors.New("call has no operation")

// Hooks receives coordinator lifecycle events, keyed by fingerprint.
// All callbacks are optional and invoked synchronously.
type Hooks struct {
	OnHit   func(fingerprint string)
	OnMiss  func(fingerprint string)
	OnDedup func(fingerprint string)
}

// Counters is a point-in-time snapshot of coordinator activity.
type Counters struct {
	Hits      uint64
	Misses    uint64
	Deduped   uint64
	Evicted   uint64
	CacheSize int
	InFlight  int
}

type pendingCall struct {
	done    chan struct{}
	value   any
	err     error
	started time.Time
}

// Coordinator owns the in-flight map and the TTL cache. Safe for concurrent
// use; all state is guarded by a single mutex.
type Coordinator struct {
	mu       sync.Mutex
	inflight map[string]*pendingCall
	cache    map[string]*cachedResult

	maxEntries       int
	defaultFreshness time.Duration
	clock            func() time.Time
	hooks            Hooks
	logger           *slog.Logger

	hits    uint64
	misses  uint64
	deduped uint64
	evicted uint64
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithMaxEntries overrides the cache capacity.
func WithMaxEntries(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithDefaultFreshness overrides the freshness window used when a call
// carries none.
func WithDefaultFreshness(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.defaultFreshness = d
		}
	}
}

// WithHooks registers lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(c *Coordinator) {
		c.hooks = h
	}
}

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock injects a time source. Used by tests to drive expiry without
// sleeping.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New creates a Coordinator.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		inflight:         make(map[string]*pendingCall),
		cache:            make(map[string]*cachedResult),
		maxEntries:       DefaultMaxEntries,
		defaultFreshness: DefaultFreshness,
		clock:            time.Now,
		logger:           logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the call, serving it from cache or attaching it to an
// in-flight execution when possible. Operation errors are propagated
// unmodified to every attached caller and are never cached.
func (c *Coordinator) Run(ctx context.Context, call domain.Call) (domain.Result, error) {
	if call.Fn == nil {
		return domain.Result{}, ErrNoOperation
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fp := call.Fingerprint()

	c.mu.Lock()
	now := c.clock()

	if entry, ok := c.cache[fp]; ok {
		if entry.fresh(now) {
			c.hits++
			c.mu.Unlock()
			if c.hooks.OnHit != nil {
				c.hooks.OnHit(fp)
			}
			return domain.Result{Value: entry.value, FromCache: true}, nil
		}
		delete(c.cache, fp)
	}

	if pending, ok := c.inflight[fp]; ok {
		c.deduped++
		c.mu.Unlock()
		if c.hooks.OnDedup != nil {
			c.hooks.OnDedup(fp)
		}
		return c.attach(ctx, pending)
	}

	pending := &pendingCall{done: make(chan struct{}), started: now}
	c.inflight[fp] = pending
	c.misses++
	c.mu.Unlock()

	if c.hooks.OnMiss != nil {
		c.hooks.OnMiss(fp)
	}
	return c.execute(ctx, fp, call, pending)
}

// attach waits for an in-flight execution to settle. The waiting caller may
// bail out on its own context; the execution itself keeps running for the
// remaining callers.
func (c *Coordinator) attach(ctx context.Context, pending *pendingCall) (domain.Result, error) {
	select {
	case <-pending.done:
		if pending.err != nil {
			return domain.Result{Deduped: true}, pending.err
		}
		return domain.Result{Value: pending.value, Deduped: true}, nil
	case <-ctx.Done():
		return domain.Result{Deduped: true}, ctx.Err()
	}
}

func (c *Coordinator) execute(ctx context.Context, fp string, call domain.Call, pending *pendingCall) (domain.Result, error) {
	if delay := call.Priority.StartDelay(); delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.settle(fp, call, pending, nil, ctx.Err())
			return domain.Result{}, ctx.Err()
		}
	}

	value, err := call.Fn(ctx)
	c.settle(fp, call, pending, value, err)

	if err != nil {
		c.logger.Debug("coordinated call failed", "fingerprint", fp, "err", err)
		return domain.Result{}, err
	}
	return domain.Result{Value: value}, nil
}

// settle records the outcome, caches successes, and releases every attached
// caller. The pending entry is removed no matter how the execution ended.
func (c *Coordinator) settle(fp string, call domain.Call, pending *pendingCall, value any, err error) {
	c.mu.Lock()
	delete(c.inflight, fp)

	if err == nil {
		now := c.clock()
		freshness := call.Freshness
		if freshness <= 0 {
			freshness = c.defaultFreshness
		}
		c.cache[fp] = &cachedResult{
			value:     value,
			createdAt: now,
			expiresAt: now.Add(freshness),
		}
		c.evicted += uint64(c.prune(now))
	}
	c.mu.Unlock()

	pending.value = value
	pending.err = err
	close(pending.done)
}

// Counters returns a snapshot of coordinator activity.
func (c *Coordinator) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counters{
		Hits:      c.hits,
		Misses:    c.misses,
		Deduped:   c.deduped,
		Evicted:   c.evicted,
		CacheSize: len(c.cache),
		InFlight:  len(c.inflight),
	}
}
