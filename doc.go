// Package tether coordinates calls to slow collaborators and offloads heavy
// computations to an isolated background compute unit with a guaranteed local
// fallback.
//
// Identical concurrent logical calls share one execution and a short-lived
// cache entry; expensive computations travel to a compute unit (worker pool,
// subprocess, or Redis-backed remote worker) as task messages, race a
// per-task timeout, and degrade to a caller-supplied local computation when
// the unit is unavailable, too slow, or erroring. Every degradation is
// classified and counted per logical domain.
//
// The Client composes the three layers behind one surface:
//
//	exec := inproc.New()
//	exec.Register("indicator", computeIndicator)
//
//	client := tether.New(tether.WithExecutor(exec))
//	defer client.Close()
//
//	res, err := client.Run(ctx, domain.Call{
//		Operation: "quote",
//		Targets:   []string{"EURUSD", "M5"},
//		Freshness: 5 * time.Second,
//		Priority:  domain.PriorityInteractive,
//		Fn:        fetchQuote,
//	})
//
//	out := client.Offload(ctx, "scoring", domain.Task{
//		ID:      domain.NewTaskID(),
//		Type:    "indicator",
//		Payload: payload,
//	}, computeIndicatorLocally)
//
// Offload is an optimization, never a dependency: a fallback-produced result
// is indistinguishable in shape from a primary-path result except for its
// FallbackUsed and Reason metadata.
package tether
