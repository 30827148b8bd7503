package domain

import (
	"context"
	"time"
)

// Priority influences how quickly an operation is started when no cached or
// in-flight result exists. It never reorders or preempts work that is already
// running.
type Priority string

const (
	PriorityCritical    Priority = "critical"
	PriorityInteractive Priority = "interactive"
	PriorityBackground  Priority = "background"
)

// StartDelay returns the pre-execution delay for the priority. The table is
// deliberately tiny: it lets urgent work win the race for the scheduler
// without starving background refreshes. Unknown or empty priorities start
// immediately.
func (p Priority) StartDelay() time.Duration {
	switch p {
	case PriorityInteractive:
		return 10 * time.Millisecond
	case PriorityBackground:
		return 50 * time.Millisecond
	default:
		return 0
	}
}

// Operation is the slow call arbitrated by the coordinator. The coordinator
// treats it as opaque: it either returns a value or fails.
type Operation func(ctx context.Context) (any, error)

// Call describes one logical invocation of a slow collaborator, e.g. a quote
// request for a symbol and timeframe.
type Call struct {
	Operation string
	Targets   []string // identifiers such as symbol and timeframe
	Freshness time.Duration
	ArgsHash  string
	Priority  Priority
	Fn        Operation
}

// Fingerprint returns the dedupe/cache key for the call.
func (c Call) Fingerprint() string {
	return BuildFingerprint(c.Operation, c.Targets, c.Freshness, c.ArgsHash)
}

// Result is the outcome of a coordinated call. FromCache and Deduped are
// mutually exclusive: a cache hit never attaches to an in-flight execution.
type Result struct {
	Value     any
	FromCache bool
	Deduped   bool
}
