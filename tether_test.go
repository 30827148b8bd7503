package tether_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tether "github.com/quotecast/tether"
	"github.com/quotecast/tether/pkg/adapters/inproc"
	"github.com/quotecast/tether/pkg/domain"
	"github.com/quotecast/tether/pkg/policy"
	"github.com/quotecast/tether/pkg/ports"
)

func newClient(t *testing.T) *tether.Client {
	t.Helper()
	exec := inproc.New(inproc.WithWorkers(2))
	exec.Register("echo", func(ctx context.Context, payload any) (any, error) {
		return payload, nil
	})
	exec.Register("fail", func(ctx context.Context, payload any) (any, error) {
		return nil, errors.New("invalid payload: unusable input")
	})

	client := tether.New(tether.WithExecutor(exec))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_RunCachesAcrossCalls(t *testing.T) {
	client := newClient(t)

	var executions atomic.Int64
	call := domain.Call{
		Operation: "quote",
		Targets:   []string{"EURUSD", "M5"},
		Freshness: time.Minute,
		Fn: func(ctx context.Context) (any, error) {
			executions.Add(1)
			return 1.0712, nil
		},
	}

	res, err := client.Run(context.Background(), call)
	require.NoError(t, err)
	assert.False(t, res.FromCache)

	res, err = client.Run(context.Background(), call)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, int64(1), executions.Load())
}

func TestClient_OffloadPrimaryPath(t *testing.T) {
	client := newClient(t)

	res := client.Offload(context.Background(), "scoring", domain.Task{
		ID:      domain.NewTaskID(),
		Type:    "echo",
		Payload: "fast path",
		Timeout: 2 * time.Second,
	}, func(ctx context.Context) (any, error) {
		t.Fatal("fallback must not run")
		return nil, nil
	})

	assert.True(t, res.OK)
	assert.False(t, res.FallbackUsed)
	assert.Equal(t, "fast path", res.Data)

	stats := client.Stats()["scoring"]
	assert.Equal(t, uint64(1), stats.Total)
	assert.Equal(t, uint64(0), stats.FallbackUsed)
}

func TestClient_OffloadDegradesOnHandlerFailure(t *testing.T) {
	client := newClient(t)

	res := client.Offload(context.Background(), "scoring", domain.Task{
		ID:      domain.NewTaskID(),
		Type:    "fail",
		Timeout: 2 * time.Second,
	}, func(ctx context.Context) (any, error) {
		return "locally computed", nil
	})

	assert.True(t, res.OK)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, domain.ReasonInvalidPayload, res.Reason)
	assert.Equal(t, "locally computed", res.Data)
	require.Error(t, res.OffloadErr)
}

func TestClient_NoExecutorFallsBack(t *testing.T) {
	client := tether.New()
	t.Cleanup(func() { _ = client.Close() })

	res := client.Offload(context.Background(), "scoring", domain.Task{
		ID:   domain.NewTaskID(),
		Type: "echo",
	}, func(ctx context.Context) (any, error) {
		return "local", nil
	})

	assert.True(t, res.OK)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, domain.ReasonUnitUnavailable, res.Reason)
	assert.Equal(t, "local", res.Data)
}

func TestClient_ProviderAcquisition(t *testing.T) {
	exec := inproc.New()
	exec.Register("echo", func(ctx context.Context, payload any) (any, error) {
		return payload, nil
	})
	t.Cleanup(func() { _ = exec.Dispose() })

	var acquisitions atomic.Int64
	client := tether.New(tether.WithExecutorProvider(func(ctx context.Context) (ports.Executor, error) {
		acquisitions.Add(1)
		return exec, nil
	}))
	t.Cleanup(func() { _ = client.Close() })

	res := client.Offload(context.Background(), "scoring", domain.Task{
		ID:      domain.NewTaskID(),
		Type:    "echo",
		Payload: 7,
		Timeout: 2 * time.Second,
	}, nil)

	assert.True(t, res.OK)
	assert.Equal(t, 7, res.Data)
	assert.Equal(t, int64(1), acquisitions.Load())
}

func TestClient_FallbackResultShape(t *testing.T) {
	// A degraded result must be indistinguishable in shape from a primary
	// one, apart from the metadata fields.
	client := tether.New()
	t.Cleanup(func() { _ = client.Close() })

	fallback := func(ctx context.Context) (any, error) { return 3.14, nil }
	direct, err := fallback(context.Background())
	require.NoError(t, err)

	res := client.Offload(context.Background(), "scoring", domain.Task{
		ID:   domain.NewTaskID(),
		Type: "echo",
	}, fallback)

	assert.Equal(t, direct, res.Data)
	assert.True(t, res.OK)

	var zero policy.FallbackResult
	zero.OK = true
	zero.Data = direct
	zero.FallbackUsed = true
	zero.Reason = domain.ReasonUnitUnavailable
	zero.OffloadErr = res.OffloadErr
	assert.Equal(t, zero, res)
}
