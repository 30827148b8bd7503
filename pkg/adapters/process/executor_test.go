package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/quotecast/tether/pkg/adapters/process"
	"github.com/quotecast/tether/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix shell utilities")
	}
}

// cat echoes every envelope line back verbatim. The echoed envelope parses as
// a Response with a matching id and no ok field, i.e. a success signal.
func TestExecutor_CorrelatesByID(t *testing.T) {
	requireUnix(t)

	exec, err := process.Start(process.WorkerConfig{Name: "echo", Command: "cat"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Dispose() })

	inbox := make(chan domain.Response, 4)
	exec.OnMessage(func(r domain.Response) { inbox <- r })

	env := domain.Envelope{ID: "task-1", Type: "echo", Payload: map[string]any{"symbol": "EURUSD"}}
	require.NoError(t, exec.Submit(context.Background(), env))

	select {
	case resp := <-inbox:
		assert.Equal(t, "task-1", resp.ID)
		assert.True(t, resp.Succeeded())
	case <-time.After(2 * time.Second):
		t.Fatal("no response from worker")
	}
}

func TestExecutor_DeadWorkerFailsFast(t *testing.T) {
	requireUnix(t)

	exec, err := process.Start(process.WorkerConfig{Name: "quitter", Command: "true"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Dispose() })

	// The worker exits immediately; wait for the reader to notice.
	require.Eventually(t, func() bool {
		return !exec.Healthy()
	}, 2*time.Second, 10*time.Millisecond)

	err = exec.Submit(context.Background(), domain.Envelope{ID: "t1", Type: "echo"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExecutorUnavailable)
}

func TestExecutor_SubmitAfterDispose(t *testing.T) {
	requireUnix(t)

	exec, err := process.Start(process.WorkerConfig{Name: "echo", Command: "cat"})
	require.NoError(t, err)
	require.NoError(t, exec.Dispose())

	err = exec.Submit(context.Background(), domain.Envelope{ID: "t1", Type: "echo"})
	assert.ErrorIs(t, err, domain.ErrExecutorClosed)

	// Dispose is idempotent.
	assert.NoError(t, exec.Dispose())
}

func TestExecutor_MalformedOutputIgnored(t *testing.T) {
	requireUnix(t)

	// The worker prints garbage, then a valid response for every line read.
	script := `while read line; do echo "not json"; echo '{"id":"task-1","data":"pong"}'; done`
	exec, err := process.Start(process.WorkerConfig{Name: "noisy", Command: "sh", Args: []string{"-c", script}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Dispose() })

	inbox := make(chan domain.Response, 4)
	exec.OnMessage(func(r domain.Response) { inbox <- r })

	require.NoError(t, exec.Submit(context.Background(), domain.Envelope{ID: "task-1", Type: "echo"}))

	select {
	case resp := <-inbox:
		assert.Equal(t, "task-1", resp.ID)
		assert.Equal(t, "pong", resp.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("valid response was not delivered")
	}
}

func TestStart_MissingCommand(t *testing.T) {
	_, err := process.Start(process.WorkerConfig{Name: "empty"})
	assert.Error(t, err)
}

func TestLoadWorkers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workers.yaml")
	content := `workers:
  - name: indicators
    command: tether
    args: ["worker"]
    env:
      TETHER_LOG_LEVEL: debug
    description: Indicator computations.
  - name: ""
    command: ignored
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	workers, err := process.LoadWorkers(path)
	require.NoError(t, err)
	require.Len(t, workers, 1, "nameless entries are skipped")

	w := workers["indicators"]
	assert.Equal(t, "tether", w.Command)
	assert.Equal(t, []string{"worker"}, w.Args)
	assert.Equal(t, "debug", w.Environment["TETHER_LOG_LEVEL"])
}

func TestLoadWorkers_MissingFile(t *testing.T) {
	workers, err := process.LoadWorkers(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, workers)
}
