package ports

import (
	"context"

	"github.com/quotecast/tether/pkg/domain"
)

// Executor is an isolated background compute unit. Implementations share no
// memory with the caller: tasks go out as envelopes, results come back as
// response messages. An executor may crash or never answer; the router's
// per-task timers are the only liveness guarantee.
type Executor interface {
	// Submit sends a task envelope to the compute unit. It returns an error
	// only when the envelope could not be handed off at all (unit gone,
	// transport down); a submitted task may still fail or time out later.
	Submit(ctx context.Context, env domain.Envelope) error

	// OnMessage registers the sink for inbound response messages. A second
	// call replaces the previous sink. Implementations must be safe to call
	// concurrently with message delivery.
	OnMessage(fn func(domain.Response))

	// Dispose tears the compute unit down. Submit returns
	// domain.ErrExecutorClosed afterwards.
	Dispose() error
}

// Provider acquires the executor for an offload attempt. Returning an error
// (or a nil executor) marks the unit unavailable and sends the policy
// straight to its fallback.
type Provider func(ctx context.Context) (Executor, error)
