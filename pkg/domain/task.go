package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTaskTimeout applies when a task carries no budget of its own.
	DefaultTaskTimeout = 15 * time.Second

	// MinTaskTimeout is the floor enforced on every task budget.
	MinTaskTimeout = 250 * time.Millisecond
)

// Task is one unit of work submitted to a background compute unit. The ID is
// caller-assigned and must be unique among currently pending tasks.
type Task struct {
	ID      string
	Type    string
	Payload any
	Timeout time.Duration
}

// Budget returns the effective timeout for the task.
func (t Task) Budget() time.Duration {
	d := t.Timeout
	if d <= 0 {
		d = DefaultTaskTimeout
	}
	if d < MinTaskTimeout {
		d = MinTaskTimeout
	}
	return d
}

// NewTaskID returns a fresh unique task identifier.
func NewTaskID() string {
	return uuid.NewString()
}

// Envelope is the outbound message shape sent to a compute unit.
type Envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Response is the inbound message shape emitted by a compute unit. A missing
// OK field means success; an explicit false means failure regardless of Data.
type Response struct {
	ID    string `json:"id"`
	OK    *bool  `json:"ok,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Succeeded reports whether the response signals success.
func (r Response) Succeeded() bool {
	return r.OK == nil || *r.OK
}

// TaskResult is the settled outcome of a dispatched task.
type TaskResult struct {
	OK   bool
	Data any
	Err  error
}

// Handler computes a task result on the compute-unit side of the boundary.
type Handler func(ctx context.Context, payload any) (any, error)
