package coordinator_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quotecast/tether/pkg/coordinator"
	"github.com/quotecast/tether/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually-advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func quoteCall(symbol string, freshness time.Duration, fn domain.Operation) domain.Call {
	return domain.Call{
		Operation: "quote",
		Targets:   []string{symbol, "M5"},
		Freshness: freshness,
		Priority:  domain.PriorityCritical,
		Fn:        fn,
	}
}

func TestRun_ExecutesAndCaches(t *testing.T) {
	clock := newFakeClock()
	coord := coordinator.New(coordinator.WithClock(clock.Now))

	var executions atomic.Int64
	call := quoteCall("EURUSD", 10*time.Second, func(ctx context.Context) (any, error) {
		executions.Add(1)
		return 1.0712, nil
	})

	res, err := coord.Run(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, 1.0712, res.Value)
	assert.False(t, res.FromCache)
	assert.False(t, res.Deduped)

	res, err = coord.Run(context.Background(), call)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, 1.0712, res.Value)
	assert.Equal(t, int64(1), executions.Load())
}

func TestRun_CacheRespectsFreshness(t *testing.T) {
	clock := newFakeClock()
	coord := coordinator.New(coordinator.WithClock(clock.Now))

	var executions atomic.Int64
	call := quoteCall("EURUSD", time.Second, func(ctx context.Context) (any, error) {
		executions.Add(1)
		return "tick", nil
	})

	_, err := coord.Run(context.Background(), call)
	require.NoError(t, err)

	// 500ms later: still fresh.
	clock.Advance(500 * time.Millisecond)
	res, err := coord.Run(context.Background(), call)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, int64(1), executions.Load())

	// 1500ms after creation: expired, re-executes.
	clock.Advance(time.Second)
	res, err = coord.Run(context.Background(), call)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, int64(2), executions.Load())
}

func TestRun_DedupesConcurrentCallers(t *testing.T) {
	coord := coordinator.New()

	const attachers = 9
	started := make(chan struct{})
	release := make(chan struct{})

	var executions atomic.Int64
	call := quoteCall("GBPUSD", 10*time.Second, func(ctx context.Context) (any, error) {
		executions.Add(1)
		close(started)
		<-release
		return 1.2650, nil
	})

	type outcome struct {
		res domain.Result
		err error
	}
	results := make(chan outcome, attachers+1)

	go func() {
		res, err := coord.Run(context.Background(), call)
		results <- outcome{res, err}
	}()

	// Wait until the first caller is executing, then pile on.
	<-started
	var wg sync.WaitGroup
	for i := 0; i < attachers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := coord.Run(context.Background(), call)
			results <- outcome{res, err}
		}()
	}

	// Give the attachers a moment to reach the in-flight map.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	primaries := 0
	for i := 0; i < attachers+1; i++ {
		out := <-results
		require.NoError(t, out.err)
		assert.Equal(t, 1.2650, out.res.Value)
		if !out.res.Deduped {
			primaries++
		}
	}
	assert.Equal(t, 1, primaries)
	assert.Equal(t, int64(1), executions.Load())
}

func TestRun_FailurePropagatesToAllAndIsNotCached(t *testing.T) {
	coord := coordinator.New()
	boom := errors.New("quote source down")

	started := make(chan struct{})
	release := make(chan struct{})
	var executions atomic.Int64
	call := quoteCall("USDJPY", 10*time.Second, func(ctx context.Context) (any, error) {
		if executions.Add(1) == 1 {
			close(started)
			<-release
			return nil, boom
		}
		return 155.02, nil
	})

	errs := make(chan error, 2)
	go func() {
		_, err := coord.Run(context.Background(), call)
		errs <- err
	}()
	<-started
	go func() {
		_, err := coord.Run(context.Background(), call)
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.ErrorIs(t, <-errs, boom)
	assert.ErrorIs(t, <-errs, boom)

	// The failure was not cached: the next call executes again.
	res, err := coord.Run(context.Background(), call)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 155.02, res.Value)
}

func TestRun_EvictsOldestFirst(t *testing.T) {
	clock := newFakeClock()
	const maxEntries = 20
	coord := coordinator.New(
		coordinator.WithClock(clock.Now),
		coordinator.WithMaxEntries(maxEntries),
	)

	run := func(i int) {
		call := quoteCall(fmt.Sprintf("SYM%03d", i), time.Hour, func(ctx context.Context) (any, error) {
			return i, nil
		})
		_, err := coord.Run(context.Background(), call)
		require.NoError(t, err)
		clock.Advance(time.Millisecond) // distinct creation times
	}

	for i := 0; i < maxEntries+50; i++ {
		run(i)
	}

	counters := coord.Counters()
	assert.Equal(t, maxEntries, counters.CacheSize)
	assert.Equal(t, uint64(50), counters.Evicted)

	// The most recently created entries survive.
	var hits atomic.Int64
	for i := 50; i < maxEntries+50; i++ {
		call := quoteCall(fmt.Sprintf("SYM%03d", i), time.Hour, func(ctx context.Context) (any, error) {
			hits.Add(-1) // would mark a re-execution
			return nil, nil
		})
		res, err := coord.Run(context.Background(), call)
		require.NoError(t, err)
		assert.True(t, res.FromCache, "entry %d should have been retained", i)
	}
	assert.Equal(t, int64(0), hits.Load())
}

func TestRun_PriorityDelaysStart(t *testing.T) {
	coord := coordinator.New()

	elapsed := func(p domain.Priority) time.Duration {
		call := domain.Call{
			Operation: "history",
			Targets:   []string{string(p)},
			Priority:  p,
			Fn: func(ctx context.Context) (any, error) {
				return nil, nil
			},
		}
		start := time.Now()
		_, err := coord.Run(context.Background(), call)
		require.NoError(t, err)
		return time.Since(start)
	}

	assert.Less(t, elapsed(domain.PriorityCritical), 10*time.Millisecond)
	assert.GreaterOrEqual(t, elapsed(domain.PriorityBackground), 45*time.Millisecond)
}

func TestRun_AttacherHonorsOwnContext(t *testing.T) {
	coord := coordinator.New()

	started := make(chan struct{})
	release := make(chan struct{})
	call := quoteCall("AUDUSD", 10*time.Second, func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return 0.6570, nil
	})

	go func() {
		_, _ = coord.Run(context.Background(), call)
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := coord.Run(ctx, call)
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("attacher did not honor context cancellation")
	}
	close(release)
}

func TestRun_NilOperation(t *testing.T) {
	coord := coordinator.New()
	_, err := coord.Run(context.Background(), domain.Call{Operation: "quote"})
	assert.ErrorIs(t, err, coordinator.ErrNoOperation)
}
