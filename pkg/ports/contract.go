package ports

import (
	"context"
	"testing"
	"time"

	"github.com/quotecast/tether/pkg/domain"
)

// RunExecutorContract verifies that an Executor implementation honors the
// message-passing contract. The executor must have a handler registered under
// type "echo" that returns the payload unchanged, and must answer unknown
// task types with a failure response rather than silence.
func RunExecutorContract(t *testing.T, exec Executor) {
	t.Helper()

	inbox := make(chan domain.Response, 16)
	exec.OnMessage(func(r domain.Response) {
		inbox <- r
	})

	ctx := context.Background()

	t.Run("Echo", func(t *testing.T) {
		env := domain.Envelope{ID: "contract-echo", Type: "echo", Payload: "ping"}
		if err := exec.Submit(ctx, env); err != nil {
			t.Fatalf("submit failed: %v", err)
		}

		resp := awaitResponse(t, inbox, "contract-echo")
		if !resp.Succeeded() {
			t.Fatalf("echo failed: %s", resp.Error)
		}
		if resp.Data != "ping" {
			t.Errorf("echo data mismatch. got %v, want %q", resp.Data, "ping")
		}
	})

	t.Run("UnknownType", func(t *testing.T) {
		env := domain.Envelope{ID: "contract-unknown", Type: "no-such-type"}
		if err := exec.Submit(ctx, env); err != nil {
			t.Fatalf("submit failed: %v", err)
		}

		resp := awaitResponse(t, inbox, "contract-unknown")
		if resp.Succeeded() {
			t.Error("expected failure response for unknown task type")
		}
		if resp.Error == "" {
			t.Error("expected an error message in the failure response")
		}
	})
}

func awaitResponse(t *testing.T, inbox <-chan domain.Response, id string) domain.Response {
	t.Helper()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case resp := <-inbox:
			if resp.ID == id {
				return resp
			}
			// A stale message from an earlier sub-test; keep draining.
		case <-deadline:
			t.Fatalf("no response for task %s", id)
			return domain.Response{}
		}
	}
}
